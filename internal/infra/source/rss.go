package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"feedhub/internal/domain/entity"
	"feedhub/internal/infra/httpclient"

	"github.com/mmcdole/gofeed"
)

// maxFeedRedirects bounds the redirects followed for a public feed.
const maxFeedRedirects = 5

// RSS re-syndicates a public RSS, Atom or JSON feed as Atom.
type RSS struct {
	base
	feedURL string
}

// NewRSS creates an adapter for the feed at feedURL.
func NewRSS(p Params, feedURL string) (*RSS, error) {
	b, err := newBase(p, entity.KindRSS, feedURL, entity.FeedMeta{Title: p.Name, AlternateLink: feedURL})
	if err != nil {
		return nil, err
	}
	return &RSS{base: b, feedURL: feedURL}, nil
}

// CheckSession always succeeds: public feeds need no session.
func (a *RSS) CheckSession(entity.Session) bool {
	return true
}

// Authenticate returns an empty session.
func (a *RSS) Authenticate(context.Context) (entity.Session, error) {
	return entity.NewSession(a.now()), nil
}

// FetchRaw downloads the feed. A public feed has no login wall, so
// redirects are followed here and never reported as an expired session.
func (a *RSS) FetchRaw(ctx context.Context, s entity.Session) (entity.RawPayload, error) {
	target := a.feedURL
	for hops := 0; ; hops++ {
		resp, err := a.client.Do(ctx, s, httpclient.Request{
			URL:    target,
			Header: http.Header{"Accept": {"application/atom+xml, application/rss+xml, application/xml;q=0.9, */*;q=0.8"}},
		})
		if err != nil {
			return entity.RawPayload{}, fmt.Errorf("%w: %w", entity.ErrFetchFailed, err)
		}
		if resp.IsRedirect() && resp.Location() != "" {
			if hops >= maxFeedRedirects {
				return entity.RawPayload{}, fmt.Errorf("%w: more than %d redirects", entity.ErrFetchFailed, maxFeedRedirects)
			}
			target = resolve(target, resp.Location())
			continue
		}
		if !resp.IsSuccess() {
			return entity.RawPayload{}, fmt.Errorf("%w: %w", entity.ErrFetchFailed, resp.StatusError())
		}
		if len(resp.Body) == 0 {
			return entity.RawPayload{}, fmt.Errorf("%w: %s: empty body", entity.ErrFetchFailed, resp.URL)
		}
		p := payload(resp, a.now())
		p.URL = target
		return p, nil
	}
}

// ExtractEntries parses the feed with gofeed.
func (a *RSS) ExtractEntries(p entity.RawPayload) (entity.Extraction, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(p.Body))
	if err != nil {
		return entity.Extraction{}, fmt.Errorf("%w: parse feed: %w", entity.ErrMalformedContent, err)
	}

	entries := make([]entity.Entry, 0, len(feed.Items))
	for i, it := range feed.Items {
		link := resolve(p.URL, it.Link)
		if link == "" {
			link = resolve(p.URL, it.GUID)
		}
		if link == "" {
			return entity.Extraction{}, missing(i, "link")
		}

		id := it.GUID
		if id == "" {
			id = link
		}
		title := strings.TrimSpace(it.Title)
		if title == "" {
			title = link
		}

		published, updated := p.FetchedAt, p.FetchedAt
		switch {
		case it.PublishedParsed != nil && it.UpdatedParsed != nil:
			published, updated = *it.PublishedParsed, *it.UpdatedParsed
		case it.PublishedParsed != nil:
			published, updated = *it.PublishedParsed, *it.PublishedParsed
		case it.UpdatedParsed != nil:
			published, updated = *it.UpdatedParsed, *it.UpdatedParsed
		}

		body := it.Content
		if body == "" {
			body = it.Description
		}

		e := entity.Entry{
			ID:        id,
			Title:     title,
			Link:      link,
			Content:   SanitizeHTML(body, link),
			Published: published,
			Updated:   updated,
		}
		if len(it.Categories) > 0 {
			e.Category = it.Categories[0]
		}
		if len(it.Authors) > 0 && it.Authors[0] != nil {
			e.AuthorName = it.Authors[0].Name
		}
		entries = append(entries, e)
	}

	return entity.Extraction{
		Entries: entries,
		Meta: entity.FeedMeta{
			Title:         strings.TrimSpace(feed.Title),
			Subtitle:      strings.TrimSpace(feed.Description),
			AlternateLink: resolve(p.URL, feed.Link),
		},
	}, nil
}
