package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"feedhub/internal/domain/entity"
	"feedhub/internal/infra/httpclient"

	"github.com/PuerkitoBio/goquery"
)

const (
	pixivBaseURL       = "https://www.pixiv.net"
	pixivSessionCookie = "PHPSESSID"
	pixivCaption       = "Caption unavailable"

	pixivIllustList = "._image-items"
	pixivNovelList  = ".novel-items"
)

var (
	pixivIllustID = regexp.MustCompile(`illust_id=(\d+)`)
	pixivNovelID  = regexp.MustCompile(`[?&]id=(\d+)`)
	// pixivThumbDate matches the upload time encoded in thumbnail paths.
	pixivThumbDate = regexp.MustCompile(`/img/(\d{4})/(\d{2})/(\d{2})/(\d{2})/(\d{2})/(\d{2})/`)
)

// Pixiv follows the new-works listing of the accounts a pixiv user follows.
type Pixiv struct {
	base
	novel bool
}

// NewPixiv creates a pixiv adapter for mode "illust" or "novel".
func NewPixiv(p Params, mode string) (*Pixiv, error) {
	novel := mode == "novel"
	if mode != "illust" && !novel {
		return nil, fmt.Errorf("pixiv: unknown mode %q", mode)
	}

	meta := entity.FeedMeta{Title: "Recent Illusts from pixiv Followers"}
	listing := "/bookmark_new_illust.php"
	if novel {
		meta.Title = "Recent Novels from pixiv Followers"
		listing = "/novel/bookmark_new.php"
	}

	b, err := newBase(p, entity.KindPixiv, pixivBaseURL, meta)
	if err != nil {
		return nil, err
	}
	b.desc.Meta.AlternateLink = b.url(listing)
	return &Pixiv{base: b, novel: novel}, nil
}

func (a *Pixiv) listingURL() string {
	if a.novel {
		return a.url("/novel/bookmark_new.php")
	}
	return a.url("/bookmark_new_illust.php")
}

// CheckSession accepts any session carrying the pixiv session cookie.
func (a *Pixiv) CheckSession(s entity.Session) bool {
	return s.HasCookie(pixivSessionCookie)
}

// Authenticate posts the login form. The upstream answers 200 or a redirect;
// only the presence of the session cookie proves success.
func (a *Pixiv) Authenticate(ctx context.Context) (entity.Session, error) {
	if err := a.requireLogin(); err != nil {
		return entity.Session{}, err
	}

	resp, err := a.client.PostForm(ctx, entity.Session{}, a.url("/login.php"), url.Values{
		"mode":     {"login"},
		"pixiv_id": {a.creds.Username},
		"pass":     {a.creds.Password},
		"skip":     {"1"},
	})
	if err != nil {
		return entity.Session{}, fmt.Errorf("%w: %w", entity.ErrAuthFailed, err)
	}
	if err := acceptLogin(resp); err != nil {
		return entity.Session{}, err
	}

	now := a.now()
	s := entity.NewSession(now)
	resp.ApplyCookies(&s, now)
	if !s.HasCookie(pixivSessionCookie) {
		return entity.Session{}, fmt.Errorf("%w: no %s cookie in login response", entity.ErrAuthFailed, pixivSessionCookie)
	}
	return s, nil
}

// FetchRaw downloads the listing page.
func (a *Pixiv) FetchRaw(ctx context.Context, s entity.Session) (entity.RawPayload, error) {
	return a.fetch(ctx, s, httpclient.Request{URL: a.listingURL()})
}

// ExtractEntries parses the listing page.
func (a *Pixiv) ExtractEntries(p entity.RawPayload) (entity.Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return entity.Extraction{}, fmt.Errorf("%w: parse listing: %w", entity.ErrMalformedContent, err)
	}

	selector := pixivIllustList
	if a.novel {
		selector = pixivNovelList
	}
	list, err := listing(doc, selector)
	if err != nil {
		return entity.Extraction{}, err
	}

	var (
		entries []entity.Entry
		extErr  error
	)
	if a.novel {
		list.ChildrenFiltered("li").EachWithBreak(func(i int, item *goquery.Selection) bool {
			e, err := a.novelEntry(i, item, p.FetchedAt)
			if err != nil {
				extErr = err
				return false
			}
			entries = append(entries, e)
			return true
		})
	} else {
		list.Find(".image-item").EachWithBreak(func(i int, item *goquery.Selection) bool {
			e, err := a.illustEntry(i, item)
			if err != nil {
				extErr = err
				return false
			}
			entries = append(entries, e)
			return true
		})
	}
	if extErr != nil {
		return entity.Extraction{}, extErr
	}
	return entity.Extraction{Entries: entries}, nil
}

func (a *Pixiv) illustEntry(i int, item *goquery.Selection) (entity.Entry, error) {
	work := item.Find(".work").First()
	m := pixivIllustID.FindStringSubmatch(work.AttrOr("href", ""))
	if m == nil {
		return entity.Entry{}, missing(i, "illust_id")
	}
	id := m[1]

	title := strings.TrimSpace(item.Find(".title").First().Text())
	if title == "" {
		return entity.Entry{}, missing(i, "title")
	}

	thumb := item.Find("._thumbnail").First()
	uploaded, err := pixivUploadTime(thumb.AttrOr("src", ""))
	if err != nil {
		return entity.Entry{}, fmt.Errorf("item %d: %w: %w", i, entity.ErrExtractionFailed, err)
	}

	user := item.Find(".user").First()
	link := a.url("/artworks/" + id)
	image := resolve(a.desc.BaseURL+"/", strings.Replace(thumb.AttrOr("data-src", ""), "150x150", "480x960", 1))

	content, err := render("pixiv-illust", map[string]string{
		"Caption": pixivCaption,
		"Tags":    thumb.AttrOr("data-tags", ""),
		"URL":     link,
		"Image":   image,
	})
	if err != nil {
		return entity.Entry{}, err
	}

	category := "illust"
	if work.HasClass("manga") {
		category = "manga"
	}

	return entity.Entry{
		ID:         link,
		Title:      title,
		Link:       link,
		Content:    content,
		Category:   category,
		AuthorName: user.AttrOr("data-user_name", ""),
		AuthorURI:  a.userURL(user.AttrOr("data-user_id", "")),
		Published:  uploaded,
		Updated:    uploaded,
	}, nil
}

func (a *Pixiv) novelEntry(i int, item *goquery.Selection, fetchedAt time.Time) (entity.Entry, error) {
	anchor := item.Find(".title > a").First()
	m := pixivNovelID.FindStringSubmatch(anchor.AttrOr("href", ""))
	if m == nil {
		return entity.Entry{}, missing(i, "novel id")
	}
	title := strings.TrimSpace(anchor.Text())
	if title == "" {
		return entity.Entry{}, missing(i, "title")
	}

	author := item.Find(".author > a").First()
	link := a.url("/novel/show.php?id=" + m[1])
	tags := item.Find(".tags > li > a:nth-child(2)").Map(func(_ int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})

	content, err := render("pixiv-novel", map[string]string{
		"Caption": strings.TrimSpace(item.Find(".novel-caption").First().Text()),
		"Tags":    strings.Join(tags, " "),
		"URL":     link,
		"Image":   resolve(a.desc.BaseURL+"/", item.Find(".cover").First().AttrOr("src", "")),
	})
	if err != nil {
		return entity.Entry{}, err
	}

	// The novel listing carries no timestamps.
	return entity.Entry{
		ID:         link,
		Title:      title,
		Link:       link,
		Content:    content,
		Category:   "novel",
		AuthorName: author.AttrOr("data-user_name", ""),
		AuthorURI:  a.userURL(author.AttrOr("data-user_id", "")),
		Published:  fetchedAt,
		Updated:    fetchedAt,
	}, nil
}

func (a *Pixiv) userURL(id string) string {
	if _, err := strconv.Atoi(id); err != nil {
		return ""
	}
	return a.url("/users/" + id)
}

// pixivUploadTime reads /img/YYYY/MM/DD/hh/mm/ss/ from a thumbnail URL as Tokyo time.
func pixivUploadTime(src string) (time.Time, error) {
	m := pixivThumbDate.FindStringSubmatch(src)
	if m == nil {
		return time.Time{}, fmt.Errorf("no upload date in thumbnail %q", src)
	}
	t, err := time.ParseInLocation("2006/01/02/15/04/05", strings.Join(m[1:], "/"), tokyo)
	if err != nil {
		return time.Time{}, fmt.Errorf("upload date in thumbnail %q: %w", src, err)
	}
	return t, nil
}
