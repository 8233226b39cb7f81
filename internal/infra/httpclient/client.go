// Package httpclient is the outbound HTTP facade every source adapter goes through.
//
// A Client belongs to one source. It attaches the session's cookies to each
// request, never follows redirects (a login wall must stay visible to the
// adapter), waits on a per-source rate limiter, and runs every request through
// a per-source circuit breaker. Transport errors and 5xx responses count as
// breaker failures; 5xx responses are still returned to the caller.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"feedhub/internal/domain/entity"
	"feedhub/internal/observability/metrics"
	"feedhub/internal/observability/tracing"
	"feedhub/internal/resilience/circuitbreaker"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

// Request describes one outbound call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Query  url.Values
	// Form is sent as application/x-www-form-urlencoded when non-nil.
	Form url.Values
	// Body is sent as is when Form is nil.
	Body []byte
}

// Client is the facade for one source.
type Client struct {
	source  string
	cfg     Config
	http    *resty.Client
	breaker *circuitbreaker.CircuitBreaker
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBreakerConfig replaces the default per-source breaker settings.
func WithBreakerConfig(cfg circuitbreaker.Config) Option {
	return func(c *Client) {
		c.breaker = circuitbreaker.New(cfg)
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient builds the facade on top of an existing *http.Client.
// Its redirect policy and cookie jar are overridden.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = resty.NewWithClient(hc)
	}
}

// New creates the facade for source.
func New(source string, cfg Config, opts ...Option) *Client {
	c := &Client{
		source:  source,
		cfg:     cfg,
		breaker: circuitbreaker.New(circuitbreaker.SourceConfig(source)),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = resty.New()
	}

	c.http.
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetLogger(restyLogger{logger: c.logger.With(slog.String("source", source))}).
		// Sessions live in the session store; a jar would leak cookies between them.
		SetCookieJar(nil).
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}))

	return c
}

// Source returns the source name the client was created for.
func (c *Client) Source() string {
	return c.source
}

// BreakerState reports the circuit breaker state: "closed", "half-open" or "open".
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// Get issues a GET carrying the session's cookies.
func (c *Client) Get(ctx context.Context, s entity.Session, rawURL string) (*Response, error) {
	return c.Do(ctx, s, Request{Method: http.MethodGet, URL: rawURL})
}

// PostForm issues a form POST carrying the session's cookies.
func (c *Client) PostForm(ctx context.Context, s entity.Session, rawURL string, form url.Values) (*Response, error) {
	return c.Do(ctx, s, Request{Method: http.MethodPost, URL: rawURL, Form: form})
}

// errServerStatus marks a 5xx response as a breaker failure without hiding it from the caller.
var errServerStatus = errors.New("server error status")

// Do sends req with the cookies of s attached.
//
// Errors:
//   - ErrInvalidRequest: the URL is not absolute http(s)
//   - ErrCircuitOpen: the breaker rejected the request
//   - ErrRequestFailed: no response (also wraps context errors)
//   - ErrBodyTooLarge: the body exceeded the configured limit
//
// Any status code, including 3xx and 5xx, is returned as a Response with a nil error.
func (c *Client) Do(ctx context.Context, s entity.Session, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	target, err := url.Parse(req.URL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute http(s) URL", ErrInvalidRequest, req.URL)
	}
	display := redact(target)

	ctx, span := tracing.StartSpan(ctx, "http.client "+req.Method,
		attribute.String("source", c.source),
		attribute.String("http.method", req.Method),
		attribute.String("http.url", display),
	)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		span.SetStatus(codes.Error, "rate limiter wait aborted")
		return nil, fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, req.Method, display, err)
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.execute(ctx, s, req, display)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return resp, errServerStatus
		}
		return resp, nil
	})
	duration := time.Since(start)

	switch {
	case circuitbreaker.IsRejected(err):
		metrics.RecordUpstreamRejected(c.source)
		span.SetStatus(codes.Error, "circuit open")
		return nil, fmt.Errorf("%w: %s: %w", ErrCircuitOpen, c.source, err)
	case errors.Is(err, errServerStatus):
		err = nil
	case err != nil:
		metrics.RecordUpstreamRequest(c.source, 0, duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		c.logger.Debug("upstream request failed",
			slog.String("source", c.source),
			slog.String("method", req.Method),
			slog.String("url", display),
			slog.Any("error", err))
		return nil, err
	}

	resp := result.(*Response)
	metrics.RecordUpstreamRequest(c.source, resp.StatusCode, duration)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= 500 {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}
	c.logger.Debug("upstream request completed",
		slog.String("source", c.source),
		slog.String("method", req.Method),
		slog.String("url", display),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(resp.Body)),
		slog.Duration("duration", duration))

	return resp, nil
}

func (c *Client) execute(ctx context.Context, s entity.Session, req Request, display string) (*Response, error) {
	r := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)

	for name, values := range req.Header {
		for _, v := range values {
			r.Header.Add(name, v)
		}
	}
	// Sorted so the Cookie header is stable for a given session.
	names := make([]string, 0, len(s.Cookies))
	for name := range s.Cookies {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		r.SetCookie(&http.Cookie{Name: name, Value: s.Cookies[name]})
	}
	if req.Query != nil {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Form != nil {
		r.SetFormDataFromValues(req.Form)
	} else if req.Body != nil {
		r.SetBody(req.Body)
	}

	res, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, req.Method, display, err)
	}
	raw := res.RawBody()
	defer raw.Close()

	body, err := io.ReadAll(io.LimitReader(raw, c.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: reading body: %w", ErrRequestFailed, req.Method, display, err)
	}
	if int64(len(body)) > c.cfg.MaxBodyBytes {
		return nil, fmt.Errorf("%w: %s %s: more than %d bytes", ErrBodyTooLarge, req.Method, display, c.cfg.MaxBodyBytes)
	}

	return &Response{
		StatusCode: res.StatusCode(),
		Header:     res.Header(),
		Body:       body,
		URL:        display,
		Method:     req.Method,
		SetCookies: res.Cookies(),
	}, nil
}

// redact drops the query string and user info, which may carry credentials.
func redact(u *url.URL) string {
	clean := *u
	clean.User = nil
	clean.RawQuery = ""
	clean.Fragment = ""
	return clean.String()
}
