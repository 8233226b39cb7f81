package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"feedhub/internal/domain/entity"
	"feedhub/internal/infra/httpclient"

	"github.com/PuerkitoBio/goquery"
)

const (
	qiitaBaseURL       = "https://qiita.com"
	qiitaSessionCookie = "_qiita_login_session"
)

// Qiita follows the activity tracks of a Qiita account.
type Qiita struct {
	base
}

// NewQiita creates a Qiita adapter.
func NewQiita(p Params) (*Qiita, error) {
	b, err := newBase(p, entity.KindQiita, qiitaBaseURL, entity.FeedMeta{Title: "Qiita Feed"})
	if err != nil {
		return nil, err
	}
	b.desc.Meta.AlternateLink = b.url("/")
	return &Qiita{base: b}, nil
}

// CheckSession accepts any session carrying the Qiita login cookie.
func (a *Qiita) CheckSession(s entity.Session) bool {
	return s.HasCookie(qiitaSessionCookie)
}

// Authenticate reads the CSRF token from the login page and posts the login
// form with the cookies the login page set.
func (a *Qiita) Authenticate(ctx context.Context) (entity.Session, error) {
	if err := a.requireLogin(); err != nil {
		return entity.Session{}, err
	}

	now := a.now()
	s := entity.NewSession(now)

	page, err := a.client.Get(ctx, s, a.url("/login"))
	if err != nil {
		return entity.Session{}, fmt.Errorf("%w: %w", entity.ErrAuthFailed, err)
	}
	if !page.IsSuccess() {
		return entity.Session{}, fmt.Errorf("%w: login page: %w", entity.ErrAuthFailed, page.StatusError())
	}
	page.ApplyCookies(&s, now)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return entity.Session{}, fmt.Errorf("%w: parse login page: %w", entity.ErrAuthFailed, err)
	}
	token, ok := doc.Find(`meta[name="csrf-token"]`).First().Attr("content")
	if !ok || token == "" {
		return entity.Session{}, fmt.Errorf("%w: no csrf token on login page", entity.ErrAuthFailed)
	}

	resp, err := a.client.PostForm(ctx, s, a.url("/login"), url.Values{
		"authenticity_token": {token},
		"identity":           {a.creds.Username},
		"password":           {a.creds.Password},
	})
	if err != nil {
		return entity.Session{}, fmt.Errorf("%w: %w", entity.ErrAuthFailed, err)
	}
	if err := acceptLogin(resp); err != nil {
		return entity.Session{}, err
	}
	resp.ApplyCookies(&s, now)
	if !s.HasCookie(qiitaSessionCookie) {
		return entity.Session{}, fmt.Errorf("%w: login rejected", entity.ErrAuthFailed)
	}
	return s, nil
}

// FetchRaw downloads the tracks JSON.
func (a *Qiita) FetchRaw(ctx context.Context, s entity.Session) (entity.RawPayload, error) {
	return a.fetch(ctx, s, httpclient.Request{
		URL:    a.url("/api/tracks"),
		Header: http.Header{"Accept": {"application/json"}},
	})
}

type qiitaTag struct {
	Name    string `json:"name"`
	URLName string `json:"url_name"`
}

type qiitaTrack struct {
	TrackableType string     `json:"trackable_type"`
	UserName      string     `json:"followable_name"`
	UserURL       string     `json:"followable_url"`
	ObjectName    string     `json:"mentioned_object_name"`
	ObjectURL     string     `json:"mentioned_object_url"`
	Stocks        int        `json:"mentioned_object_stocks_count"`
	Tags          []qiitaTag `json:"mentioned_object_tags"`
	CreatedAtUnix int64      `json:"created_at_in_unixtime"`
}

// ExtractEntries decodes the tracks array.
func (a *Qiita) ExtractEntries(p entity.RawPayload) (entity.Extraction, error) {
	var tracks []qiitaTrack
	if err := json.Unmarshal(p.Body, &tracks); err != nil {
		return entity.Extraction{}, fmt.Errorf("%w: decode tracks: %w", entity.ErrMalformedContent, err)
	}

	entries := make([]entity.Entry, 0, len(tracks))
	for i, tr := range tracks {
		e, err := a.entry(i, tr)
		if err != nil {
			return entity.Extraction{}, err
		}
		entries = append(entries, e)
	}
	return entity.Extraction{Entries: entries}, nil
}

func (a *Qiita) entry(i int, tr qiitaTrack) (entity.Entry, error) {
	if tr.ObjectURL == "" {
		return entity.Entry{}, missing(i, "mentioned_object_url")
	}
	if tr.CreatedAtUnix <= 0 {
		return entity.Entry{}, missing(i, "created_at_in_unixtime")
	}

	type tagLink struct{ Name, URL string }
	tags := make([]tagLink, 0, len(tr.Tags))
	for _, t := range tr.Tags {
		tags = append(tags, tagLink{Name: t.Name, URL: a.url("/tags/" + url.PathEscape(t.URLName))})
	}
	data := struct {
		qiitaTrack
		TagLinks []tagLink
	}{tr, tags}

	var tmpl, title string
	switch tr.TrackableType {
	case "StockItem":
		tmpl, title = "qiita-stock", fmt.Sprintf("%s stocked item %s", tr.UserName, tr.ObjectName)
	case "Comment":
		tmpl, title = "qiita-comment", fmt.Sprintf("%s commented on item %s", tr.UserName, tr.ObjectName)
	case "TagFollowlist":
		tmpl, title = "qiita-tag", fmt.Sprintf("%s started following tag %s", tr.UserName, tr.ObjectName)
	case "FollowingUser":
		tmpl, title = "qiita-follow", fmt.Sprintf("%s followed %s", tr.UserName, tr.ObjectName)
	default:
		title = "Unknown type"
	}

	content := "Unknown type"
	if tmpl != "" {
		var err error
		if content, err = render(tmpl, data); err != nil {
			return entity.Entry{}, err
		}
	}

	created := time.Unix(tr.CreatedAtUnix, 0).UTC()
	return entity.Entry{
		ID:         strconv.FormatInt(tr.CreatedAtUnix, 10) + "-" + tr.ObjectURL,
		Title:      strings.TrimSpace(title),
		Link:       tr.ObjectURL,
		Content:    content,
		Category:   tr.TrackableType,
		AuthorName: tr.UserName,
		AuthorURI:  tr.UserURL,
		Published:  created,
		Updated:    created,
	}, nil
}
