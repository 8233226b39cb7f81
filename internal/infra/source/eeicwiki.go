package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"feedhub/internal/domain/entity"
	"feedhub/internal/infra/httpclient"
)

const (
	eeicWikiBaseURL = "https://wiki.eeic.jp"
	// wikiUserToken holds the logged-in user name in the session.
	wikiUserToken = "user"
	wikiRCLimit   = "50"
)

// wikiAuthErrors are the API error codes that mean the session is gone.
var wikiAuthErrors = map[string]bool{
	"readapidenied":         true,
	"assertuserfailed":      true,
	"assertnameduserfailed": true,
	"notloggedin":           true,
}

// EeicWiki follows the recent changes of a MediaWiki that requires login to read.
type EeicWiki struct {
	base
}

// NewEeicWiki creates a MediaWiki adapter.
func NewEeicWiki(p Params) (*EeicWiki, error) {
	b, err := newBase(p, entity.KindEeicWiki, eeicWikiBaseURL, entity.FeedMeta{Title: "EeicWiki Feed"})
	if err != nil {
		return nil, err
	}
	b.desc.Meta.AlternateLink = b.url("/index.php/" + url.PathEscape("特別:最近の更新"))
	return &EeicWiki{base: b}, nil
}

func (a *EeicWiki) api() string {
	return a.url("/api.php")
}

func (a *EeicWiki) pageURL(title string) string {
	return a.url("/index.php/" + url.PathEscape(title))
}

// CheckSession accepts a session that completed the login exchange.
func (a *EeicWiki) CheckSession(s entity.Session) bool {
	return s.Token(wikiUserToken) != "" && len(s.Cookies) > 0
}

type wikiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type wikiTokenResponse struct {
	Error *wikiError `json:"error"`
	Query struct {
		Tokens struct {
			LoginToken string `json:"logintoken"`
		} `json:"tokens"`
	} `json:"query"`
}

type wikiLoginResponse struct {
	Error *wikiError `json:"error"`
	Login struct {
		Result     string `json:"result"`
		Reason     string `json:"reason"`
		LgUsername string `json:"lgusername"`
	} `json:"login"`
}

// Authenticate runs the two-step API login: fetch a login token, then post it
// with the credentials and the cookies the first call set.
func (a *EeicWiki) Authenticate(ctx context.Context) (entity.Session, error) {
	if err := a.requireLogin(); err != nil {
		return entity.Session{}, err
	}
	now := a.now()
	s := entity.NewSession(now)

	resp, err := a.client.Do(ctx, s, httpclient.Request{
		URL:   a.api(),
		Query: url.Values{"action": {"query"}, "meta": {"tokens"}, "type": {"login"}, "format": {"json"}},
	})
	if err != nil {
		return entity.Session{}, fmt.Errorf("%w: %w", entity.ErrAuthFailed, err)
	}
	var tok wikiTokenResponse
	if err := decodeWiki(resp, &tok); err != nil {
		return entity.Session{}, fmt.Errorf("%w: login token: %w", entity.ErrAuthFailed, err)
	}
	if tok.Error != nil || tok.Query.Tokens.LoginToken == "" {
		return entity.Session{}, fmt.Errorf("%w: no login token", entity.ErrAuthFailed)
	}
	resp.ApplyCookies(&s, now)

	resp, err = a.client.PostForm(ctx, s, a.api(), url.Values{
		"action":     {"login"},
		"lgname":     {a.creds.Username},
		"lgpassword": {a.creds.Password},
		"lgtoken":    {tok.Query.Tokens.LoginToken},
		"format":     {"json"},
	})
	if err != nil {
		return entity.Session{}, fmt.Errorf("%w: %w", entity.ErrAuthFailed, err)
	}
	var login wikiLoginResponse
	if err := decodeWiki(resp, &login); err != nil {
		return entity.Session{}, fmt.Errorf("%w: login: %w", entity.ErrAuthFailed, err)
	}
	if login.Login.Result != "Success" {
		return entity.Session{}, fmt.Errorf("%w: login result %q: %s", entity.ErrAuthFailed, login.Login.Result, login.Login.Reason)
	}
	resp.ApplyCookies(&s, now)

	user := login.Login.LgUsername
	if user == "" {
		user = a.creds.Username
	}
	s.Tokens[wikiUserToken] = user
	return s, nil
}

func decodeWiki(resp *httpclient.Response, v any) error {
	if !resp.IsSuccess() {
		return resp.StatusError()
	}
	return json.Unmarshal(resp.Body, v)
}

// FetchRaw lists recent changes. The request asserts a logged-in user so an
// expired session is reported by the API instead of returning public data.
func (a *EeicWiki) FetchRaw(ctx context.Context, s entity.Session) (entity.RawPayload, error) {
	p, err := a.fetch(ctx, s, httpclient.Request{
		Method: http.MethodGet,
		URL:    a.api(),
		Query: url.Values{
			"action":  {"query"},
			"list":    {"recentchanges"},
			"rcprop":  {"user|title|timestamp|ids|sizes"},
			"rctype":  {"new|edit"},
			"rclimit": {wikiRCLimit},
			"assert":  {"user"},
			"format":  {"json"},
		},
	})
	if err != nil {
		return entity.RawPayload{}, err
	}

	var probe struct {
		Error *wikiError `json:"error"`
	}
	if json.Unmarshal(p.Body, &probe) == nil && probe.Error != nil {
		if wikiAuthErrors[probe.Error.Code] {
			return entity.RawPayload{}, fmt.Errorf("%w: api error %s", entity.ErrAuthExpired, probe.Error.Code)
		}
		return entity.RawPayload{}, fmt.Errorf("%w: api error %s: %s", entity.ErrFetchFailed, probe.Error.Code, probe.Error.Info)
	}
	return p, nil
}

type wikiChange struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	User      string `json:"user"`
	Timestamp string `json:"timestamp"`
	RevID     int64  `json:"revid"`
	OldLen    int    `json:"oldlen"`
	NewLen    int    `json:"newlen"`
}

// ExtractEntries decodes the recentchanges list.
func (a *EeicWiki) ExtractEntries(p entity.RawPayload) (entity.Extraction, error) {
	var doc struct {
		Query *struct {
			RecentChanges []wikiChange `json:"recentchanges"`
		} `json:"query"`
	}
	if err := json.Unmarshal(p.Body, &doc); err != nil {
		return entity.Extraction{}, fmt.Errorf("%w: decode recentchanges: %w", entity.ErrMalformedContent, err)
	}
	if doc.Query == nil {
		return entity.Extraction{}, fmt.Errorf("%w: no query result", entity.ErrMalformedContent)
	}

	entries := make([]entity.Entry, 0, len(doc.Query.RecentChanges))
	for i, c := range doc.Query.RecentChanges {
		e, err := a.entry(i, c)
		if err != nil {
			return entity.Extraction{}, err
		}
		entries = append(entries, e)
	}
	return entity.Extraction{Entries: entries}, nil
}

func (a *EeicWiki) entry(i int, c wikiChange) (entity.Entry, error) {
	if c.Title == "" {
		return entity.Entry{}, missing(i, "title")
	}
	if c.RevID == 0 {
		return entity.Entry{}, missing(i, "revid")
	}
	ts, err := time.Parse(time.RFC3339, c.Timestamp)
	if err != nil {
		return entity.Entry{}, fmt.Errorf("item %d: %w: timestamp: %w", i, entity.ErrExtractionFailed, err)
	}

	data := map[string]any{
		"User":    c.User,
		"UserURL": a.pageURL("利用者:" + c.User),
		"Title":   c.Title,
		"PageURL": a.pageURL(c.Title),
		"OldLen":  c.OldLen,
		"NewLen":  c.NewLen,
		"Diff":    signed(c.NewLen - c.OldLen),
	}

	var title, content string
	switch c.Type {
	case "new":
		title = fmt.Sprintf("%s が “%s” を作成しました", c.User, c.Title)
		content, err = render("wiki-new", data)
	case "edit":
		title = fmt.Sprintf("%s が “%s” を編集しました", c.User, c.Title)
		content, err = render("wiki-edit", data)
	default:
		title = "Unknown action: " + c.Title
		content = "Unknown action"
	}
	if err != nil {
		return entity.Entry{}, err
	}

	return entity.Entry{
		ID:         a.url("/index.php?oldid=" + strconv.FormatInt(c.RevID, 10)),
		Title:      title,
		Link:       a.pageURL(c.Title),
		Content:    content,
		Category:   c.Type,
		AuthorName: c.User,
		AuthorURI:  a.pageURL("利用者:" + c.User),
		Published:  ts,
		Updated:    ts,
	}, nil
}

func signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
