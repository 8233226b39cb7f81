package entity

import (
	"maps"
	"time"
)

// Session is the opaque authentication state for one source.
// Cookies are sent with every request the HTTP facade issues on behalf of the session;
// Tokens hold adapter-private values that never leave the process.
type Session struct {
	Cookies   map[string]string
	Tokens    map[string]string
	CreatedAt time.Time
}

// NewSession returns an empty session stamped with createdAt.
func NewSession(createdAt time.Time) Session {
	return Session{
		Cookies:   map[string]string{},
		Tokens:    map[string]string{},
		CreatedAt: createdAt,
	}
}

// Cookie returns the named cookie value, or "" if absent.
func (s Session) Cookie(name string) string {
	return s.Cookies[name]
}

// Token returns the named token value, or "" if absent.
func (s Session) Token(name string) string {
	return s.Tokens[name]
}

// HasCookie reports whether the session carries a non-empty cookie with the given name.
func (s Session) HasCookie(name string) bool {
	return s.Cookies[name] != ""
}

// IsZero reports whether the session carries no state at all.
func (s Session) IsZero() bool {
	return len(s.Cookies) == 0 && len(s.Tokens) == 0 && s.CreatedAt.IsZero()
}

// Clone returns a deep copy so callers can never mutate a stored session in place.
func (s Session) Clone() Session {
	out := Session{CreatedAt: s.CreatedAt}
	if s.Cookies != nil {
		out.Cookies = maps.Clone(s.Cookies)
	}
	if s.Tokens != nil {
		out.Tokens = maps.Clone(s.Tokens)
	}
	return out
}
