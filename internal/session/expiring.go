package session

import (
	"time"

	"feedhub/internal/domain/entity"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCapacity bounds the number of sessions an ExpiringStore keeps.
const DefaultCapacity = 256

// ExpiringStore is a Store whose sessions are dropped after a maximum age,
// forcing a fresh login even when the upstream never rejects the old session.
type ExpiringStore struct {
	locks keyedLocks
	cache *expirable.LRU[string, entity.Session]
}

// NewExpiringStore creates an ExpiringStore holding at most capacity sessions for ttl each.
// A non-positive capacity falls back to DefaultCapacity.
func NewExpiringStore(capacity int, ttl time.Duration) *ExpiringStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ExpiringStore{
		cache: expirable.NewLRU[string, entity.Session](capacity, nil, ttl),
	}
}

// Get returns a copy of the stored session for source, unless it has expired.
func (e *ExpiringStore) Get(source string) (entity.Session, bool) {
	unlock := e.locks.lock(source)
	defer unlock()

	s, ok := e.cache.Get(source)
	if !ok {
		return entity.Session{}, false
	}
	return s.Clone(), true
}

// Put stores a copy of s for source and restarts its expiry clock.
func (e *ExpiringStore) Put(source string, s entity.Session) {
	unlock := e.locks.lock(source)
	defer unlock()

	e.cache.Add(source, s.Clone())
}

// Invalidate drops the session for source.
func (e *ExpiringStore) Invalidate(source string) {
	unlock := e.locks.lock(source)
	defer unlock()

	e.cache.Remove(source)
}

// New picks the store implementation for the configured session TTL:
// zero or negative means sessions live until rejected.
func New(ttl time.Duration) Store {
	if ttl <= 0 {
		return NewMemoryStore()
	}
	return NewExpiringStore(DefaultCapacity, ttl)
}
