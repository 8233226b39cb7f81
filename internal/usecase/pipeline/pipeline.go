// Package pipeline runs one source through the fetch state machine:
//
//	Start -> EnsureSession -> Fetch -> (AuthExpired) Reauthenticate -> RetryFetch -> Extract -> Assemble -> Done
//
// with Failed reachable from every step. The only recovered failure is a
// session the upstream rejects during Fetch, and it is recovered at most once
// per run. Nothing else is retried.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"feedhub/internal/domain/entity"
	"feedhub/internal/observability/logging"
	"feedhub/internal/observability/metrics"
	"feedhub/internal/observability/tracing"
	"feedhub/internal/session"
	"feedhub/internal/usecase/assemble"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Pipeline orchestrates fetch runs. It is safe for concurrent use;
// runs for the same source are serialized only inside the session store.
type Pipeline struct {
	store      session.Store
	generator  entity.Generator
	runTimeout time.Duration
	logger     *slog.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithGenerator overrides the generator stamped on every feed.
func WithGenerator(gen entity.Generator) Option {
	return func(p *Pipeline) {
		p.generator = gen
	}
}

// WithRunTimeout bounds each run. Zero disables the bound.
func WithRunTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.runTimeout = d
	}
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a Pipeline backed by store.
func New(store session.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     store,
		generator: entity.DefaultGenerator,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunStats describes one run.
type RunStats struct {
	Source     string
	AuthCalls  int
	FetchCalls int
	Entries    int
	// States lists every state the run entered, in order, ending with the final state.
	States   []State
	Final    State
	Duration time.Duration
}

// Run executes one pipeline run for adapter and returns the assembled feed.
// Failures are *entity.SourceError values whose kind matches one of
// entity.ErrAuthFailed, entity.ErrFetchFailed or entity.ErrMalformedContent.
func (p *Pipeline) Run(ctx context.Context, adapter Adapter) (*entity.Feed, error) {
	feed, _, err := p.RunWithStats(ctx, adapter)
	return feed, err
}

// RunWithStats is Run plus the statistics of the run, returned on success and failure alike.
func (p *Pipeline) RunWithStats(ctx context.Context, adapter Adapter) (*entity.Feed, RunStats, error) {
	desc := adapter.Descriptor()
	start := time.Now()

	if p.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.runTimeout)
		defer cancel()
	}

	ctx, span := tracing.StartSpan(ctx, "pipeline.run",
		attribute.String("source", desc.Name),
		attribute.String("source.kind", desc.Kind),
	)
	defer span.End()

	logger := p.logger
	if fromCtx := logging.FromContext(ctx); fromCtx != slog.Default() {
		logger = fromCtx
	}

	r := &run{
		pipeline: p,
		adapter:  adapter,
		desc:     desc,
		logger:   logger.With(slog.String("source", desc.Name)),
		stats:    RunStats{Source: desc.Name},
	}

	state := StateStart
	r.stats.States = append(r.stats.States, state)
	for !state.Terminal() {
		outcome := r.step(ctx, state)
		next := Transition(state, outcome)
		r.logger.Debug("pipeline transition",
			slog.String("state", state.String()),
			slog.String("outcome", outcome.String()),
			slog.String("next", next.String()))
		span.AddEvent(next.String())
		state = next
		r.stats.States = append(r.stats.States, state)
	}

	r.stats.Final = state
	r.stats.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("pipeline.auth_calls", r.stats.AuthCalls),
		attribute.Int("pipeline.fetch_calls", r.stats.FetchCalls),
	)

	if state == StateFailed {
		kind := entity.KindName(r.err.Kind)
		metrics.RecordPipelineRun(desc.Name, kind, r.stats.Duration)
		span.RecordError(r.err)
		span.SetStatus(codes.Error, kind)
		r.logger.Warn("pipeline run failed",
			slog.String("state", r.failedIn.String()),
			slog.String("kind", kind),
			slog.Int("auth_calls", r.stats.AuthCalls),
			slog.Int("fetch_calls", r.stats.FetchCalls),
			slog.Any("error", r.err))
		return nil, r.stats, r.err
	}

	r.stats.Entries = len(r.feed.Entries)
	metrics.RecordPipelineRun(desc.Name, "success", r.stats.Duration)
	metrics.UpdateFeedEntries(desc.Name, r.stats.Entries)
	r.logger.Info("pipeline run completed",
		slog.Int("entries", r.stats.Entries),
		slog.Int("auth_calls", r.stats.AuthCalls),
		slog.Int("fetch_calls", r.stats.FetchCalls),
		slog.Duration("duration", r.stats.Duration))

	return &r.feed, r.stats, nil
}

// run holds the data carried between the states of one execution.
type run struct {
	pipeline *Pipeline
	adapter  Adapter
	desc     entity.SourceDescriptor
	logger   *slog.Logger
	stats    RunStats

	session    entity.Session
	payload    entity.RawPayload
	extraction entity.Extraction
	feed       entity.Feed

	err      *entity.SourceError
	failedIn State
}

func (r *run) step(ctx context.Context, state State) Outcome {
	switch state {
	case StateStart:
		return OutcomeOK
	case StateEnsureSession:
		return r.ensureSession(ctx)
	case StateFetch:
		return r.fetch(ctx, false)
	case StateReauthenticate:
		r.logger.Info("session rejected by upstream, re-authenticating")
		return r.authenticate(ctx, state)
	case StateRetryFetch:
		return r.fetch(ctx, true)
	case StateExtract:
		return r.extract()
	case StateAssemble:
		meta := r.desc.Meta.Merge(r.extraction.Meta)
		r.feed = assemble.Assemble(r.pipeline.generator, meta, r.extraction.Entries)
		return OutcomeOK
	default:
		return r.fail(state, entity.ErrFetchFailed, fmt.Errorf("unexpected state %s", state))
	}
}

func (r *run) ensureSession(ctx context.Context) Outcome {
	if s, ok := r.pipeline.store.Get(r.desc.Name); ok && r.adapter.CheckSession(s) {
		r.session = s
		return OutcomeOK
	}
	return r.authenticate(ctx, StateEnsureSession)
}

func (r *run) authenticate(ctx context.Context, state State) Outcome {
	if err := ctx.Err(); err != nil {
		return r.fail(state, entity.ErrFetchFailed, err)
	}

	r.stats.AuthCalls++
	s, err := r.adapter.Authenticate(ctx)
	metrics.RecordAuthentication(r.desc.Name, err == nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return r.fail(state, entity.ErrFetchFailed, ctxErr)
		}
		r.pipeline.store.Invalidate(r.desc.Name)
		return r.fail(state, entity.ErrAuthFailed, err)
	}

	r.pipeline.store.Put(r.desc.Name, s)
	r.session = s
	return OutcomeOK
}

func (r *run) fetch(ctx context.Context, retry bool) Outcome {
	state := StateFetch
	if retry {
		state = StateRetryFetch
	}
	if err := ctx.Err(); err != nil {
		return r.fail(state, entity.ErrFetchFailed, err)
	}

	r.stats.FetchCalls++
	payload, err := r.adapter.FetchRaw(ctx, r.session)
	if err == nil {
		r.payload = payload
		return OutcomeOK
	}

	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, entity.ErrAuthExpired) {
		return r.fail(state, entity.ErrFetchFailed, errors.Join(err, ctxErr))
	}
	if errors.Is(err, entity.ErrAuthExpired) {
		if retry {
			r.pipeline.store.Invalidate(r.desc.Name)
			return r.fail(state, entity.ErrAuthFailed, err)
		}
		return OutcomeAuthExpired
	}

	kind := entity.KindOf(err)
	if kind == nil {
		kind = entity.ErrFetchFailed
	}
	return r.fail(state, kind, err)
}

func (r *run) extract() Outcome {
	extraction, err := r.adapter.ExtractEntries(r.payload)
	if err != nil {
		return r.fail(StateExtract, entity.ErrMalformedContent, err)
	}
	seen := make(map[string]int, len(extraction.Entries))
	for i, e := range extraction.Entries {
		if err := e.Validate(); err != nil {
			return r.fail(StateExtract, entity.ErrMalformedContent,
				fmt.Errorf("entry %d: %w: %w", i, entity.ErrExtractionFailed, err))
		}
		if first, dup := seen[e.ID]; dup {
			return r.fail(StateExtract, entity.ErrMalformedContent,
				fmt.Errorf("entry %d: %w: id %q already used by entry %d", i, entity.ErrExtractionFailed, e.ID, first))
		}
		seen[e.ID] = i
	}
	r.extraction = extraction
	return OutcomeOK
}

func (r *run) fail(state State, kind, err error) Outcome {
	r.err = entity.NewSourceError(r.desc.Name, kind, err)
	r.failedIn = state
	return OutcomeFailed
}
