// Package source implements one pipeline adapter per upstream site.
//
// Adapters never touch the network directly: every request goes through the
// source's httpclient.Client, which attaches the session cookies and never
// follows redirects. A redirect, 401 or 403 on a listing page is reported as
// entity.ErrAuthExpired; every other failure is entity.ErrFetchFailed.
// Extraction is pure and reads the clock only through RawPayload.FetchedAt.
package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"feedhub/internal/domain/entity"
	"feedhub/internal/infra/httpclient"

	"github.com/PuerkitoBio/goquery"
)

// tokyo is the timezone Japanese sites print local times in.
var tokyo = mustLoadLocation("Asia/Tokyo")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
}

// Params is what every adapter constructor takes.
type Params struct {
	Name string
	// BaseURL overrides the adapter's default upstream origin.
	BaseURL     string
	SelfLink    string
	Title       string
	Client      *httpclient.Client
	Credentials entity.Credentials
	// Now defaults to time.Now.
	Now func() time.Time
}

// base carries the state shared by all adapters.
type base struct {
	desc   entity.SourceDescriptor
	client *httpclient.Client
	creds  entity.Credentials
	now    func() time.Time
}

func newBase(p Params, kind, defaultBaseURL string, meta entity.FeedMeta) (base, error) {
	if p.Client == nil {
		return base{}, fmt.Errorf("source %s: http client is required", p.Name)
	}
	baseURL := strings.TrimRight(p.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if p.SelfLink != "" {
		meta.SelfLink = p.SelfLink
	}
	if p.Title != "" {
		meta.Title = p.Title
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}

	desc := entity.SourceDescriptor{Name: p.Name, Kind: kind, BaseURL: baseURL, Meta: meta}
	if err := desc.Validate(); err != nil {
		return base{}, err
	}
	return base{desc: desc, client: p.Client, creds: p.Credentials, now: now}, nil
}

// Descriptor returns the adapter's static identity.
func (b *base) Descriptor() entity.SourceDescriptor {
	return b.desc
}

// UpstreamState reports the state of the source's circuit breaker.
func (b *base) UpstreamState() string {
	return b.client.BreakerState()
}

func (b *base) url(path string) string {
	return b.desc.BaseURL + path
}

// requireLogin fails authentication early when no credentials were configured.
func (b *base) requireLogin() error {
	if !b.creds.HasLogin() {
		return fmt.Errorf("%w: %s: credentials not configured", entity.ErrAuthFailed, b.desc.Name)
	}
	return nil
}

// fetch GETs a listing page and classifies the response.
func (b *base) fetch(ctx context.Context, s entity.Session, req httpclient.Request) (entity.RawPayload, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	resp, err := b.client.Do(ctx, s, req)
	if err != nil {
		return entity.RawPayload{}, fmt.Errorf("%w: %w", entity.ErrFetchFailed, err)
	}
	if err := classifyListing(resp); err != nil {
		return entity.RawPayload{}, err
	}
	if len(resp.Body) == 0 {
		return entity.RawPayload{}, fmt.Errorf("%w: %s %s: empty body", entity.ErrFetchFailed, resp.Method, resp.URL)
	}
	return payload(resp, b.now()), nil
}

// classifyListing maps the status of an authenticated listing request to a failure kind.
func classifyListing(resp *httpclient.Response) error {
	switch {
	case resp.IsRedirect():
		return fmt.Errorf("%w: %w (location %q)", entity.ErrAuthExpired, resp.StatusError(), resp.Location())
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %w", entity.ErrAuthExpired, resp.StatusError())
	case !resp.IsSuccess():
		return fmt.Errorf("%w: %w", entity.ErrFetchFailed, resp.StatusError())
	}
	return nil
}

// acceptLogin reports whether a login response status means the form was accepted.
func acceptLogin(resp *httpclient.Response) error {
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusFound || resp.StatusCode == http.StatusSeeOther {
		return nil
	}
	return fmt.Errorf("%w: %w", entity.ErrAuthFailed, resp.StatusError())
}

func payload(resp *httpclient.Response, now time.Time) entity.RawPayload {
	return entity.RawPayload{
		Body:        resp.Body,
		ContentType: resp.ContentType(),
		URL:         resp.URL,
		FetchedAt:   now,
	}
}

// missing reports a required field absent from an upstream item.
func missing(item int, field string) error {
	return fmt.Errorf("item %d: %w: %s", item, entity.ErrExtractionFailed, field)
}

// listing returns the element that holds a page's rows. A page without it is
// not the expected listing (a login form, a maintenance notice, a new layout),
// which is malformed content rather than an empty feed.
func listing(doc *goquery.Document, selector string) (*goquery.Selection, error) {
	container := doc.Find(selector).First()
	if container.Length() == 0 {
		return nil, fmt.Errorf("%w: no %s on page", entity.ErrMalformedContent, selector)
	}
	return container, nil
}

// resolve resolves ref against base, returning "" when ref is empty or unparsable.
func resolve(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return b.ResolveReference(r).String()
}
