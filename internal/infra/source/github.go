package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"feedhub/internal/domain/entity"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
)

const (
	githubAPIURL = "https://api.github.com/"
	githubWebURL = "https://github.com/"
)

// GitHub follows the commit list of a repository through the REST API.
// No login is involved; a token, when configured, only raises the rate limit.
type GitHub struct {
	base
	endpoint string
	api      *gh.Client
}

// NewGitHub creates a GitHub adapter for an API path such as /repos/owner/repo/commits.
func NewGitHub(p Params, endpoint string) (*GitHub, error) {
	b, err := newBase(p, entity.KindGitHub, strings.TrimRight(githubAPIURL, "/"), entity.FeedMeta{
		Title:         "GitHub Feed for " + endpoint,
		AlternateLink: githubWebURL,
	})
	if err != nil {
		return nil, err
	}

	var rt http.RoundTripper = facadeTransport{client: b.client}
	if tok := b.creds.Token; tok != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok}),
			Base:   rt,
		}
	}
	api := gh.NewClient(&http.Client{Transport: rt})
	baseURL, err := url.Parse(b.desc.BaseURL + "/")
	if err != nil {
		return nil, fmt.Errorf("github: base url: %w", err)
	}
	api.BaseURL = baseURL

	a := &GitHub{base: b, endpoint: strings.TrimLeft(endpoint, "/"), api: api}
	if _, err := a.resolve(); err != nil {
		return nil, err
	}
	return a, nil
}

// resolve resolves the endpoint against the API base and refuses anything
// that leaves the API host.
func (a *GitHub) resolve() (*url.URL, error) {
	ref, err := url.Parse(a.endpoint)
	if err != nil {
		return nil, fmt.Errorf("github: endpoint %q: %w", a.endpoint, err)
	}
	u := a.api.BaseURL.ResolveReference(ref)
	if u.Host != a.api.BaseURL.Host || u.Scheme != a.api.BaseURL.Scheme {
		return nil, fmt.Errorf("github: endpoint %q leaves %s", a.endpoint, a.api.BaseURL.Host)
	}
	return u, nil
}

// CheckSession always succeeds: the API needs no session.
func (a *GitHub) CheckSession(entity.Session) bool {
	return true
}

// Authenticate returns an empty session.
func (a *GitHub) Authenticate(context.Context) (entity.Session, error) {
	return entity.NewSession(a.now()), nil
}

// FetchRaw calls the endpoint and returns the raw JSON.
func (a *GitHub) FetchRaw(ctx context.Context, _ entity.Session) (entity.RawPayload, error) {
	u, err := a.resolve()
	if err != nil {
		return entity.RawPayload{}, fmt.Errorf("%w: %w", entity.ErrFetchFailed, err)
	}
	req, err := a.api.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return entity.RawPayload{}, fmt.Errorf("%w: %w", entity.ErrFetchFailed, err)
	}

	var raw json.RawMessage
	resp, err := a.api.Do(ctx, req, &raw)
	if err != nil {
		return entity.RawPayload{}, classifyGitHub(resp, err)
	}
	if len(raw) == 0 {
		return entity.RawPayload{}, fmt.Errorf("%w: %s: empty body", entity.ErrFetchFailed, u.Path)
	}
	return entity.RawPayload{
		Body:        raw,
		ContentType: resp.Header.Get("Content-Type"),
		URL:         u.String(),
		FetchedAt:   a.now(),
	}, nil
}

// classifyGitHub treats 401 as a rejected token and everything else,
// rate limiting included, as a fetch failure.
func classifyGitHub(resp *gh.Response, err error) error {
	var rl *gh.RateLimitError
	var abuse *gh.AbuseRateLimitError
	switch {
	case errors.As(err, &rl), errors.As(err, &abuse):
		return fmt.Errorf("%w: rate limited: %w", entity.ErrFetchFailed, err)
	case resp != nil && resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", entity.ErrAuthExpired, err)
	default:
		return fmt.Errorf("%w: %w", entity.ErrFetchFailed, err)
	}
}

// ExtractEntries decodes a commit list.
func (a *GitHub) ExtractEntries(p entity.RawPayload) (entity.Extraction, error) {
	var commits []*gh.RepositoryCommit
	if err := json.Unmarshal(p.Body, &commits); err != nil {
		return entity.Extraction{}, fmt.Errorf("%w: decode commits: %w", entity.ErrMalformedContent, err)
	}

	entries := make([]entity.Entry, 0, len(commits))
	for i, c := range commits {
		link := c.GetHTMLURL()
		if link == "" {
			return entity.Extraction{}, missing(i, "html_url")
		}
		date := c.GetCommit().GetAuthor().GetDate().Time
		if date.IsZero() {
			return entity.Extraction{}, missing(i, "commit.author.date")
		}
		message := c.GetCommit().GetMessage()
		title, _, _ := strings.Cut(message, "\n")
		if strings.TrimSpace(title) == "" {
			title = c.GetSHA()
		}

		login := c.GetAuthor().GetLogin()
		if login == "" {
			login = c.GetCommit().GetAuthor().GetName()
		}
		content, err := render("github-commit", map[string]string{
			"AuthorURL":   c.GetAuthor().GetHTMLURL(),
			"AuthorLogin": login,
			"URL":         link,
			"Message":     message,
		})
		if err != nil {
			return entity.Extraction{}, err
		}

		entries = append(entries, entity.Entry{
			ID:         link,
			Title:      strings.TrimSpace(title),
			Link:       link,
			Content:    content,
			AuthorName: c.GetCommit().GetAuthor().GetName(),
			AuthorURI:  c.GetAuthor().GetHTMLURL(),
			Published:  date,
			Updated:    date,
		})
	}
	return entity.Extraction{Entries: entries}, nil
}
