// Package session holds per-source authentication state for the lifetime of the process.
//
// A Store keeps exactly one Session per source name (last write wins). Every
// operation on one source is serialized by a lock dedicated to that source, so
// concurrent runs for different sources never contend, while a concurrent
// authenticate-and-store cannot interleave with a read-and-use of the same source.
// Locks are only held for the in-memory copy of the Session, never across network calls.
package session

import (
	"sync"

	"feedhub/internal/domain/entity"
)

// Store is the contract the fetch pipeline depends on.
type Store interface {
	// Get returns a copy of the stored session for source, if any.
	Get(source string) (entity.Session, bool)

	// Put replaces the session for source wholesale.
	Put(source string, s entity.Session)

	// Invalidate drops the session for source. Invalidating an absent source is a no-op.
	Invalidate(source string)
}

// keyedLocks hands out one mutex per source name.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedLocks) lock(source string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[source]
	if !ok {
		l = &sync.Mutex{}
		k.locks[source] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// MemoryStore is a Store backed by a plain map. Sessions never expire on their own.
type MemoryStore struct {
	locks    keyedLocks
	mu       sync.RWMutex
	sessions map[string]entity.Session
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]entity.Session)}
}

// Get returns a copy of the stored session for source.
func (m *MemoryStore) Get(source string) (entity.Session, bool) {
	unlock := m.locks.lock(source)
	defer unlock()

	m.mu.RLock()
	s, ok := m.sessions[source]
	m.mu.RUnlock()
	if !ok {
		return entity.Session{}, false
	}
	return s.Clone(), true
}

// Put stores a copy of s for source.
func (m *MemoryStore) Put(source string, s entity.Session) {
	unlock := m.locks.lock(source)
	defer unlock()

	m.mu.Lock()
	m.sessions[source] = s.Clone()
	m.mu.Unlock()
}

// Invalidate drops the session for source.
func (m *MemoryStore) Invalidate(source string) {
	unlock := m.locks.lock(source)
	defer unlock()

	m.mu.Lock()
	delete(m.sessions, source)
	m.mu.Unlock()
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
