package source

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"
	"time"

	"feedhub/internal/domain/entity"
	"feedhub/internal/infra/httpclient"

	"github.com/PuerkitoBio/goquery"
)

const (
	comikeBaseURL       = "https://webcatalog-free.circle.ms"
	comikeAuthURL       = "https://auth.circle.ms/auth/"
	comikeSessionCookie = ".ASPXAUTH"
	comikeDateLayout    = "2006/01/02 15:04"
	comikeListSelector  = ".c-table--list"
	comikeRowSelector   = "tr:not(.c-table__sep):not(:first-child)"
)

// ComikeCatalog follows the activity table of the Comiket web catalog.
type ComikeCatalog struct {
	base
	authURL string
}

// NewComikeCatalog creates a web catalog adapter. authURL defaults to the
// shared circle.ms login endpoint.
func NewComikeCatalog(p Params, authURL string) (*ComikeCatalog, error) {
	b, err := newBase(p, entity.KindComikeCatalog, comikeBaseURL, entity.FeedMeta{
		Title:    "Comike Catalog Recent Updates",
		Subtitle: "all",
	})
	if err != nil {
		return nil, err
	}
	b.desc.Meta.AlternateLink = b.url("/User")
	if authURL == "" {
		authURL = comikeAuthURL
	}
	return &ComikeCatalog{base: b, authURL: authURL}, nil
}

// CheckSession accepts any session carrying the forms-auth cookie.
func (a *ComikeCatalog) CheckSession(s entity.Session) bool {
	return s.HasCookie(comikeSessionCookie)
}

// Authenticate posts the credentials to the auth host. Whatever the status,
// the forms-auth cookie decides.
func (a *ComikeCatalog) Authenticate(ctx context.Context) (entity.Session, error) {
	if err := a.requireLogin(); err != nil {
		return entity.Session{}, err
	}

	resp, err := a.client.PostForm(ctx, entity.Session{}, a.authURL, url.Values{
		"Username": {a.creds.Username},
		"Password": {a.creds.Password},
	})
	if err != nil {
		return entity.Session{}, fmt.Errorf("%w: %w", entity.ErrAuthFailed, err)
	}

	now := a.now()
	s := entity.NewSession(now)
	resp.ApplyCookies(&s, now)
	if !s.HasCookie(comikeSessionCookie) {
		return entity.Session{}, fmt.Errorf("%w: cannot get session (status %d)", entity.ErrAuthFailed, resp.StatusCode)
	}
	return s, nil
}

// FetchRaw downloads the user page.
func (a *ComikeCatalog) FetchRaw(ctx context.Context, s entity.Session) (entity.RawPayload, error) {
	return a.fetch(ctx, s, httpclient.Request{URL: a.url("/User")})
}

// ExtractEntries reads the activity table rows.
func (a *ComikeCatalog) ExtractEntries(p entity.RawPayload) (entity.Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return entity.Extraction{}, fmt.Errorf("%w: parse user page: %w", entity.ErrMalformedContent, err)
	}

	table, err := listing(doc, comikeListSelector)
	if err != nil {
		return entity.Extraction{}, err
	}

	page := a.url("/User")
	var (
		entries []entity.Entry
		extErr  error
	)
	table.Find(comikeRowSelector).EachWithBreak(func(i int, row *goquery.Selection) bool {
		e, err := a.entry(i, row, page)
		if err != nil {
			extErr = err
			return false
		}
		entries = append(entries, e)
		return true
	})
	if extErr != nil {
		return entity.Extraction{}, extErr
	}
	return entity.Extraction{Entries: entries}, nil
}

func (a *ComikeCatalog) entry(i int, row *goquery.Selection, page string) (entity.Entry, error) {
	cells := row.ChildrenFiltered("td")
	circle := cells.Eq(2).ChildrenFiltered("a").First()

	link := resolve(page, circle.AttrOr("href", ""))
	if link == "" {
		return entity.Entry{}, missing(i, "circle link")
	}
	name := strings.TrimSpace(circle.Text())
	if name == "" {
		return entity.Entry{}, missing(i, "circle name")
	}
	date, err := time.ParseInLocation(comikeDateLayout, strings.TrimSpace(cells.Eq(4).Text()), tokyo)
	if err != nil {
		return entity.Entry{}, fmt.Errorf("item %d: %w: date: %w", i, entity.ErrExtractionFailed, err)
	}

	body, _ := cells.Eq(3).Html()
	content, err := render("comike-update", map[string]any{
		"URL":       link,
		"Thumbnail": resolve(page, row.Find("img").First().AttrOr("src", "")),
		// #nosec G203 -- reduced to an allow-list by SanitizeHTML
		"Body": template.HTML(SanitizeHTML(body, page)),
	})
	if err != nil {
		return entity.Entry{}, err
	}

	return entity.Entry{
		// A circle appears once per update, so the time keeps ids unique.
		ID:         link + "#" + strconv.FormatInt(date.Unix(), 10),
		Title:      fmt.Sprintf("「%s」さんがアクティビティを更新しました。", name),
		Link:       link,
		Content:    content,
		Category:   "update",
		AuthorName: name,
		AuthorURI:  link,
		Published:  date,
		Updated:    date,
	}, nil
}
