package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"feedhub/internal/domain/entity"
	"feedhub/internal/session"
)

var (
	t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 = time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
)

func entry(id string, updated time.Time) entity.Entry {
	return entity.Entry{
		ID:        "https://example.com/" + id,
		Title:     id,
		Link:      "https://example.com/" + id,
		Published: updated,
		Updated:   updated,
	}
}

// fakeAdapter replays scripted results and records the calls it receives.
type fakeAdapter struct {
	mu sync.Mutex

	// validCookie is the cookie value CheckSession accepts.
	validCookie string

	authResults  []error
	fetchResults []error
	extractErr   error
	extraction   entity.Extraction

	calls []string
	// fetchSessions records the session passed to every FetchRaw call.
	fetchSessions []entity.Session
	authCount     int
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		validCookie: "valid",
		extraction: entity.Extraction{
			Entries: []entity.Entry{entry("a", t0), entry("b", t2)},
		},
	}
}

func (f *fakeAdapter) Descriptor() entity.SourceDescriptor {
	return entity.SourceDescriptor{
		Name: "fake",
		Kind: entity.KindRSS,
		Meta: entity.FeedMeta{
			Title:         "fake feed",
			AlternateLink: "https://example.com/",
			SelfLink:      "https://feeds.example.com/fake.atom",
		},
	}
}

func (f *fakeAdapter) CheckSession(s entity.Session) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "check")
	return s.Cookie("sid") == f.validCookie
}

func (f *fakeAdapter) Authenticate(ctx context.Context) (entity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "auth")
	f.authCount++

	var err error
	if len(f.authResults) > 0 {
		err, f.authResults = f.authResults[0], f.authResults[1:]
	}
	if err != nil {
		return entity.Session{}, err
	}
	s := entity.NewSession(t0)
	s.Cookies["sid"] = f.validCookie
	s.Tokens["login"] = fmt.Sprint(f.authCount)
	return s, nil
}

func (f *fakeAdapter) FetchRaw(ctx context.Context, s entity.Session) (entity.RawPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "fetch")
	f.fetchSessions = append(f.fetchSessions, s)

	var err error
	if len(f.fetchResults) > 0 {
		err = f.fetchResults[0]
		if len(f.fetchResults) > 1 {
			f.fetchResults = f.fetchResults[1:]
		}
	}
	if err != nil {
		return entity.RawPayload{}, err
	}
	return entity.RawPayload{Body: []byte("ok"), FetchedAt: t2}, nil
}

func (f *fakeAdapter) ExtractEntries(p entity.RawPayload) (entity.Extraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "extract")
	if f.extractErr != nil {
		return entity.Extraction{}, f.extractErr
	}
	return f.extraction, nil
}

func (f *fakeAdapter) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

// countingStore wraps a MemoryStore and counts invalidations.
type countingStore struct {
	*session.MemoryStore
	mu          sync.Mutex
	invalidated int
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: session.NewMemoryStore()}
}

func (c *countingStore) Invalidate(source string) {
	c.mu.Lock()
	c.invalidated++
	c.mu.Unlock()
	c.MemoryStore.Invalidate(source)
}

func validSession() entity.Session {
	s := entity.NewSession(t0)
	s.Cookies["sid"] = "valid"
	return s
}

var (
	errLoginWall = fmt.Errorf("redirected to /login: %w", entity.ErrAuthExpired)
	errServer    = fmt.Errorf("status 503: %w", entity.ErrFetchFailed)
	errBadLogin  = fmt.Errorf("login form rejected: %w", entity.ErrAuthFailed)
	errNoTitle   = fmt.Errorf("item 3: %w", entity.ErrExtractionFailed)
	errUntagged  = errors.New("connection reset")
)
