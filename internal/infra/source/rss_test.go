package source

import (
	"context"
	"net/http"
	"testing"
	"time"

	"feedhub/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssDoc = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
  <title>Example Blog</title>
  <link>https://blog.example.com/</link>
  <description>Posts &amp; notes</description>
  <item>
    <title>First &lt;post&gt;</title>
    <link>https://blog.example.com/first</link>
    <guid>tag:blog.example.com,2024:first</guid>
    <category>go</category>
    <pubDate>Tue, 02 Jan 2024 03:04:05 GMT</pubDate>
    <description>&lt;p&gt;Hi&lt;/p&gt;&lt;script&gt;x()&lt;/script&gt;</description>
  </item>
  <item>
    <title>Undated</title>
    <link>/second</link>
  </item>
</channel></rss>`

func TestRSS_FetchFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old.xml", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/feed.xml", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssDoc))
	})
	srv := newUpstream(t, mux)

	a, err := NewRSS(testParams("blog", ""), srv.URL+"/old.xml")
	require.NoError(t, err)

	s, err := a.Authenticate(context.Background())
	require.NoError(t, err)
	assert.True(t, a.CheckSession(s))

	p, err := a.FetchRaw(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/feed.xml", p.URL)
	assert.Equal(t, "application/rss+xml", p.ContentType)
}

func TestRSS_FetchFailures(t *testing.T) {
	t.Run("redirect loop", func(t *testing.T) {
		srv := newUpstream(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, r.URL.Path, http.StatusFound)
		}))
		a, err := NewRSS(testParams("blog", ""), srv.URL+"/loop")
		require.NoError(t, err)

		_, err = a.FetchRaw(context.Background(), entity.Session{})
		assert.ErrorIs(t, err, entity.ErrFetchFailed)
		assert.NotErrorIs(t, err, entity.ErrAuthExpired)
	})

	t.Run("forbidden is not a login wall", func(t *testing.T) {
		srv := newUpstream(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		a, err := NewRSS(testParams("blog", ""), srv.URL)
		require.NoError(t, err)

		_, err = a.FetchRaw(context.Background(), entity.Session{})
		assert.ErrorIs(t, err, entity.ErrFetchFailed)
		assert.NotErrorIs(t, err, entity.ErrAuthExpired)
	})
}

func TestRSS_ExtractEntries(t *testing.T) {
	a, err := NewRSS(testParams("blog", ""), "https://blog.example.com/feed.xml")
	require.NoError(t, err)

	ext, err := a.ExtractEntries(entity.RawPayload{
		Body:      []byte(rssDoc),
		URL:       "https://blog.example.com/feed.xml",
		FetchedAt: fixedNow,
	})
	require.NoError(t, err)

	assert.Equal(t, "Example Blog", ext.Meta.Title)
	assert.Equal(t, "Posts & notes", ext.Meta.Subtitle)
	assert.Equal(t, "https://blog.example.com/", ext.Meta.AlternateLink)

	require.Len(t, ext.Entries, 2)
	first := ext.Entries[0]
	assert.Equal(t, "tag:blog.example.com,2024:first", first.ID)
	assert.Equal(t, "First <post>", first.Title)
	assert.Equal(t, "go", first.Category)
	assert.Equal(t, "<p>Hi</p>", first.Content)
	assert.True(t, first.Published.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))

	second := ext.Entries[1]
	assert.Equal(t, "https://blog.example.com/second", second.Link)
	assert.Equal(t, second.Link, second.ID)
	assert.Equal(t, fixedNow, second.Published)
}

func TestRSS_ExtractMalformed(t *testing.T) {
	a, err := NewRSS(testParams("blog", ""), "https://blog.example.com/feed.xml")
	require.NoError(t, err)

	_, err = a.ExtractEntries(entity.RawPayload{Body: []byte("<html>not a feed</html>")})
	assert.ErrorIs(t, err, entity.ErrMalformedContent)
}
