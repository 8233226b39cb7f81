package source

import (
	"context"
	"net/http"
	"testing"

	"feedhub/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pixivIllustPage = `<html><body><ul class="_image-items">
<li class="image-item">
  <a class="work" href="/member_illust.php?mode=medium&amp;illust_id=1001"><img class="_thumbnail"
     src="https://i.example.net/c/150x150/img-master/img/2024/01/02/03/04/05/1001_p0_master1200.jpg"
     data-src="https://i.example.net/c/150x150/img-master/img/2024/01/02/03/04/05/1001_p0_master1200.jpg"
     data-tags="風景 &lt;script&gt;"></a>
  <h1 class="title">Sunset</h1>
  <a class="user" data-user_id="42" data-user_name="painter">painter</a>
</li>
<li class="image-item">
  <a class="work manga" href="/member_illust.php?mode=medium&amp;illust_id=1002"><img class="_thumbnail"
     src="https://i.example.net/c/150x150/img-master/img/2024/01/03/10/00/00/1002_p0_master1200.jpg"
     data-src="https://i.example.net/c/150x150/img-master/img/2024/01/03/10/00/00/1002_p0_master1200.jpg"
     data-tags="漫画"></a>
  <h1 class="title">Comic</h1>
  <a class="user" data-user_id="43" data-user_name="drawer">drawer</a>
</li>
</ul></body></html>`

const pixivNovelPage = `<html><body><ul class="novel-items">
<li>
  <img class="cover" src="https://i.example.net/novel-cover/1.jpg">
  <h1 class="title"><a href="/novel/show.php?id=77">A Story</a></h1>
  <p class="author"><a data-user_id="9" data-user_name="writer">writer</a></p>
  <ul class="tags"><li><span>#</span><a>ファンタジー</a></li><li><span>#</span><a>冒険</a></li></ul>
  <p class="novel-caption">Once upon a time</p>
</li>
</ul></body></html>`

func TestPixiv_Authenticate(t *testing.T) {
	srv := newUpstream(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/login.php", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "login", r.PostForm.Get("mode"))
		assert.Equal(t, "alice", r.PostForm.Get("pixiv_id"))
		assert.Equal(t, "s3cret", r.PostForm.Get("pass"))
		http.SetCookie(w, &http.Cookie{Name: pixivSessionCookie, Value: "sess-1"})
		http.Redirect(w, r, "/", http.StatusFound)
	}))

	a, err := NewPixiv(testParams("pixiv", srv.URL), "illust")
	require.NoError(t, err)

	s, err := a.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-1", s.Cookie(pixivSessionCookie))
	assert.True(t, a.CheckSession(s))
	assert.Equal(t, fixedNow, s.CreatedAt)
}

func TestPixiv_AuthenticateFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"no session cookie", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }},
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newUpstream(t, tt.handler)
			a, err := NewPixiv(testParams("pixiv", srv.URL), "illust")
			require.NoError(t, err)

			_, err = a.Authenticate(context.Background())
			assert.ErrorIs(t, err, entity.ErrAuthFailed)
		})
	}

	t.Run("missing credentials", func(t *testing.T) {
		p := testParams("pixiv", "https://pixiv.invalid")
		p.Credentials = entity.Credentials{}
		a, err := NewPixiv(p, "illust")
		require.NoError(t, err)

		_, err = a.Authenticate(context.Background())
		assert.ErrorIs(t, err, entity.ErrAuthFailed)
	})
}

func TestPixiv_FetchRaw(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"ok", http.StatusOK, pixivIllustPage, nil},
		{"login redirect", http.StatusFound, "", entity.ErrAuthExpired},
		{"forbidden", http.StatusForbidden, "", entity.ErrAuthExpired},
		{"server error", http.StatusServiceUnavailable, "", entity.ErrFetchFailed},
		{"not found", http.StatusNotFound, "", entity.ErrFetchFailed},
		{"empty body", http.StatusOK, "", entity.ErrFetchFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newUpstream(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/bookmark_new_illust.php", r.URL.Path)
				c, err := r.Cookie(pixivSessionCookie)
				require.NoError(t, err)
				assert.Equal(t, "sess-1", c.Value)
				if tt.status == http.StatusFound {
					w.Header().Set("Location", "/login.php")
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			a, err := NewPixiv(testParams("pixiv", srv.URL), "illust")
			require.NoError(t, err)

			p, err := a.FetchRaw(context.Background(), sessionWith(map[string]string{pixivSessionCookie: "sess-1"}))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, fixedNow, p.FetchedAt)
			assert.NotEmpty(t, p.Body)
		})
	}
}

func TestPixiv_ExtractIllusts(t *testing.T) {
	a, err := NewPixiv(testParams("pixiv", "https://www.pixiv.example"), "illust")
	require.NoError(t, err)

	ext, err := a.ExtractEntries(entity.RawPayload{Body: []byte(pixivIllustPage), FetchedAt: fixedNow})
	require.NoError(t, err)
	require.Len(t, ext.Entries, 2)

	first := ext.Entries[0]
	assert.Equal(t, "https://www.pixiv.example/artworks/1001", first.ID)
	assert.Equal(t, first.ID, first.Link)
	assert.Equal(t, "Sunset", first.Title)
	assert.Equal(t, "illust", first.Category)
	assert.Equal(t, "painter", first.AuthorName)
	assert.Equal(t, "https://www.pixiv.example/users/42", first.AuthorURI)
	assert.True(t, first.Published.Equal(tokyoTime(2024, 1, 2, 3, 4, 5)))
	assert.Equal(t, "2024-01-01T18:04:05Z", first.Updated.UTC().Format("2006-01-02T15:04:05Z07:00"))
	assert.Contains(t, first.Content, "480x960")
	assert.Contains(t, first.Content, "Caption unavailable")
	assert.Contains(t, first.Content, "&lt;script&gt;")
	assert.NotContains(t, first.Content, "<script>")

	assert.Equal(t, "manga", ext.Entries[1].Category)
	for _, e := range ext.Entries {
		assert.NoError(t, e.Validate())
	}
}

func TestPixiv_ExtractNovels(t *testing.T) {
	a, err := NewPixiv(testParams("pixiv-novels", "https://www.pixiv.example"), "novel")
	require.NoError(t, err)
	assert.Equal(t, "Recent Novels from pixiv Followers", a.Descriptor().Meta.Title)
	assert.Equal(t, "https://www.pixiv.example/novel/bookmark_new.php", a.Descriptor().Meta.AlternateLink)

	ext, err := a.ExtractEntries(entity.RawPayload{Body: []byte(pixivNovelPage), FetchedAt: fixedNow})
	require.NoError(t, err)
	require.Len(t, ext.Entries, 1)

	e := ext.Entries[0]
	assert.Equal(t, "https://www.pixiv.example/novel/show.php?id=77", e.Link)
	assert.Equal(t, "A Story", e.Title)
	assert.Equal(t, "novel", e.Category)
	assert.Equal(t, "writer", e.AuthorName)
	assert.Equal(t, fixedNow, e.Published)
	assert.Equal(t, fixedNow, e.Updated)
	assert.Contains(t, e.Content, "ファンタジー 冒険")
	assert.Contains(t, e.Content, "Once upon a time")
}

func TestPixiv_ExtractFailures(t *testing.T) {
	a, err := NewPixiv(testParams("pixiv", "https://www.pixiv.example"), "illust")
	require.NoError(t, err)

	t.Run("missing illust id", func(t *testing.T) {
		page := `<ul class="_image-items"><li class="image-item"><a class="work" href="/x"></a><h1 class="title">T</h1></li></ul>`
		_, err := a.ExtractEntries(entity.RawPayload{Body: []byte(page)})
		assert.ErrorIs(t, err, entity.ErrExtractionFailed)
		assert.ErrorIs(t, err, entity.ErrMalformedContent)
	})

	t.Run("missing upload date", func(t *testing.T) {
		page := `<ul class="_image-items"><li class="image-item"><a class="work" href="?illust_id=5"><img class="_thumbnail" src="/no-date.jpg"></a><h1 class="title">T</h1></li></ul>`
		_, err := a.ExtractEntries(entity.RawPayload{Body: []byte(page)})
		assert.ErrorIs(t, err, entity.ErrExtractionFailed)
	})

	t.Run("empty listing is not an error", func(t *testing.T) {
		ext, err := a.ExtractEntries(entity.RawPayload{Body: []byte(`<html><body><ul class="_image-items"></ul></body></html>`)})
		require.NoError(t, err)
		assert.Empty(t, ext.Entries)
	})
}

func TestPixiv_ExtractWithoutListing(t *testing.T) {
	pages := map[string]string{
		"login form":    `<html><body><form action="/login.php"><input name="pixiv_id"></form></body></html>`,
		"json error":    `{"error":true,"message":"not logged in"}`,
		"empty payload": ``,
	}

	for _, mode := range []string{"illust", "novel"} {
		a, err := NewPixiv(testParams("pixiv", "https://www.pixiv.example"), mode)
		require.NoError(t, err)

		for name, page := range pages {
			t.Run(mode+"/"+name, func(t *testing.T) {
				_, err := a.ExtractEntries(entity.RawPayload{Body: []byte(page)})
				assert.ErrorIs(t, err, entity.ErrMalformedContent)
			})
		}
	}
}

func TestPixiv_ExtractEmptyNovelListing(t *testing.T) {
	a, err := NewPixiv(testParams("pixiv", "https://www.pixiv.example"), "novel")
	require.NoError(t, err)

	ext, err := a.ExtractEntries(entity.RawPayload{Body: []byte(`<html><body><ul class="novel-items"></ul></body></html>`)})
	require.NoError(t, err)
	assert.Empty(t, ext.Entries)
}

func TestNewPixiv_UnknownMode(t *testing.T) {
	_, err := NewPixiv(testParams("pixiv", ""), "manga")
	assert.Error(t, err)
}
