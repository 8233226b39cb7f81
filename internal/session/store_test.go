package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"feedhub/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionWith(cookie, value string) entity.Session {
	s := entity.NewSession(time.Unix(1700000000, 0))
	s.Cookies[cookie] = value
	return s
}

func storesUnderTest() map[string]func() Store {
	return map[string]func() Store{
		"memory":   func() Store { return NewMemoryStore() },
		"expiring": func() Store { return NewExpiringStore(8, time.Hour) },
	}
}

func TestStore_GetPutInvalidate(t *testing.T) {
	for name, newStore := range storesUnderTest() {
		t.Run(name, func(t *testing.T) {
			store := newStore()

			_, ok := store.Get("pixiv")
			assert.False(t, ok, "empty store must report absent")

			store.Put("pixiv", sessionWith("PHPSESSID", "one"))
			got, ok := store.Get("pixiv")
			require.True(t, ok)
			assert.Equal(t, "one", got.Cookie("PHPSESSID"))

			// last write wins, no merge
			replacement := entity.NewSession(time.Unix(1700000100, 0))
			replacement.Cookies["other"] = "x"
			store.Put("pixiv", replacement)
			got, ok = store.Get("pixiv")
			require.True(t, ok)
			assert.False(t, got.HasCookie("PHPSESSID"))
			assert.Equal(t, "x", got.Cookie("other"))

			store.Invalidate("pixiv")
			_, ok = store.Get("pixiv")
			assert.False(t, ok)

			// no-op on absent source
			store.Invalidate("never-stored")
		})
	}
}

func TestStore_IsolatesCopies(t *testing.T) {
	for name, newStore := range storesUnderTest() {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			s := sessionWith("PHPSESSID", "original")
			store.Put("pixiv", s)

			// mutating the value passed to Put must not leak into the store
			s.Cookies["PHPSESSID"] = "mutated-after-put"
			got, _ := store.Get("pixiv")
			assert.Equal(t, "original", got.Cookie("PHPSESSID"))

			// mutating a value returned from Get must not leak either
			got.Cookies["PHPSESSID"] = "mutated-after-get"
			again, _ := store.Get("pixiv")
			assert.Equal(t, "original", again.Cookie("PHPSESSID"))
		})
	}
}

func TestStore_SourcesAreIndependent(t *testing.T) {
	for name, newStore := range storesUnderTest() {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			store.Put("pixiv", sessionWith("PHPSESSID", "p"))
			store.Put("qiita", sessionWith("_qiita_login_session", "q"))

			store.Invalidate("pixiv")

			_, ok := store.Get("pixiv")
			assert.False(t, ok)
			got, ok := store.Get("qiita")
			require.True(t, ok)
			assert.Equal(t, "q", got.Cookie("_qiita_login_session"))
		})
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	for name, newStore := range storesUnderTest() {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					source := fmt.Sprintf("source-%d", i%4)
					store.Put(source, sessionWith("token", fmt.Sprint(i)))
					if s, ok := store.Get(source); ok {
						// a session is only ever observed whole
						assert.NotEmpty(t, s.Cookie("token"))
					}
					if i%7 == 0 {
						store.Invalidate(source)
					}
				}(i)
			}
			wg.Wait()
		})
	}
}

func TestExpiringStore_Expires(t *testing.T) {
	store := NewExpiringStore(4, 20*time.Millisecond)
	store.Put("comike", sessionWith(".ASPXAUTH", "v"))

	_, ok := store.Get("comike")
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := store.Get("comike")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestNew(t *testing.T) {
	assert.IsType(t, &MemoryStore{}, New(0))
	assert.IsType(t, &ExpiringStore{}, New(time.Minute))
}

func TestMemoryStore_Len(t *testing.T) {
	store := NewMemoryStore()
	store.Put("a", entity.Session{})
	store.Put("b", entity.Session{})
	store.Put("a", entity.Session{})
	assert.Equal(t, 2, store.Len())
}
