package httpclient

import (
	"net/http"
	"time"

	"feedhub/internal/domain/entity"
)

// Response is a fully read upstream response. The body is always closed.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// URL is the request URL with the query string removed.
	URL        string
	Method     string
	SetCookies []*http.Cookie
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsRedirect reports a 3xx status. The facade never follows redirects,
// so a redirect reaches the caller unchanged.
func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

// Location returns the redirect target, if any.
func (r *Response) Location() string {
	return r.Header.Get("Location")
}

// ContentType returns the Content-Type header.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// StatusError returns a *StatusError for a non-2xx response, or nil.
func (r *Response) StatusError() error {
	if r.IsSuccess() {
		return nil
	}
	return &StatusError{StatusCode: r.StatusCode, Method: r.Method, URL: r.URL}
}

// Cookie returns the value of a cookie set by this response, or "".
func (r *Response) Cookie(name string) string {
	for _, c := range r.SetCookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// ApplyCookies merges the cookies set by this response into s.
// Cookies the upstream deletes (negative Max-Age, past expiry or empty value) are removed.
func (r *Response) ApplyCookies(s *entity.Session, now time.Time) {
	if s.Cookies == nil {
		s.Cookies = map[string]string{}
	}
	for _, c := range r.SetCookies {
		expired := c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(now))
		if expired || c.Value == "" {
			delete(s.Cookies, c.Name)
			continue
		}
		s.Cookies[c.Name] = c.Value
	}
}
