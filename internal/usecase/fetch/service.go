package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"feedhub/internal/domain/entity"
	"feedhub/internal/infra/atom"
	"feedhub/internal/infra/cache"
	"feedhub/internal/usecase/pipeline"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Runner executes one pipeline run. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, adapter pipeline.Adapter) (*entity.Feed, error)
}

// FeedCache stores rendered documents. *cache.FeedCache satisfies it.
type FeedCache interface {
	Get(source string) (cache.Document, bool)
	Put(source string, doc cache.Document)
}

// Observer is told the outcome of every pipeline run the service performs.
// *slo.Tracker satisfies it.
type Observer interface {
	Observe(source string, err error, at time.Time)
}

// Service provides feed serving and refreshing use cases.
type Service struct {
	runner   Runner
	adapters map[string]pipeline.Adapter
	cache    FeedCache
	observer Observer
	group    singleflight.Group
	now      func() time.Time
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithObserver reports run outcomes to o.
func WithObserver(o Observer) ServiceOption {
	return func(s *Service) {
		s.observer = o
	}
}

// NewService creates a Service over the given adapters, keyed by source name.
// A nil cache disables caching.
func NewService(runner Runner, adapters map[string]pipeline.Adapter, feedCache FeedCache, opts ...ServiceOption) *Service {
	s := &Service{
		runner:   runner,
		adapters: adapters,
		cache:    feedCache,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SourceInfo describes one configured source for listings.
type SourceInfo struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	SelfLink string `json:"self_link,omitempty"`
}

// Sources lists the configured sources sorted by name.
func (s *Service) Sources() []SourceInfo {
	out := make([]SourceInfo, 0, len(s.adapters))
	for _, a := range s.adapters {
		d := a.Descriptor()
		out = append(out, SourceInfo{Name: d.Name, Kind: d.Kind, Title: d.Meta.Title, SelfLink: d.Meta.SelfLink})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Has reports whether name is a configured source.
func (s *Service) Has(name string) bool {
	_, ok := s.adapters[name]
	return ok
}

// Get returns the Atom document for name, from the cache when fresh.
// Concurrent misses for the same source share one pipeline run.
func (s *Service) Get(ctx context.Context, name string) (cache.Document, error) {
	if _, ok := s.adapters[name]; !ok {
		return cache.Document{}, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	if s.cache != nil {
		if doc, ok := s.cache.Get(name); ok {
			return doc, nil
		}
	}
	return s.Refresh(ctx, name)
}

// Refresh runs the pipeline for name regardless of the cache and stores
// the result on success.
//
// Concurrent calls for one source share a single run. The run is detached from
// the caller's cancellation, so a reader hanging up never fails the readers
// waiting on the same run; the pipeline's run timeout still bounds it. Each
// caller stops waiting as soon as its own ctx is done.
func (s *Service) Refresh(ctx context.Context, name string) (cache.Document, error) {
	adapter, ok := s.adapters[name]
	if !ok {
		return cache.Document{}, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}

	ch := s.group.DoChan(name, func() (interface{}, error) {
		doc, err := s.render(context.WithoutCancel(ctx), adapter)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Put(name, doc)
		}
		return doc, nil
	})

	select {
	case <-ctx.Done():
		return cache.Document{}, fmt.Errorf("waiting for %s: %w", name, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return cache.Document{}, res.Err
		}
		return res.Val.(cache.Document), nil
	}
}

func (s *Service) render(ctx context.Context, adapter pipeline.Adapter) (cache.Document, error) {
	feed, err := s.runner.Run(ctx, adapter)
	if s.observer != nil {
		s.observer.Observe(adapter.Descriptor().Name, err, s.now())
	}
	if err != nil {
		return cache.Document{}, err
	}
	body, err := atom.Marshal(*feed)
	if err != nil {
		return cache.Document{}, fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}
	return cache.Document{
		Body:       body,
		Entries:    len(feed.Entries),
		Updated:    feed.Updated,
		RenderedAt: s.now(),
	}, nil
}

// RefreshStats contains statistics about a refresh of all sources.
type RefreshStats struct {
	Sources   int
	Succeeded int64
	Failed    int64
	Duration  time.Duration
}

// RefreshAll refreshes every source with at most concurrency runs in flight.
// A failing source is logged and counted; it never stops the others.
// The returned error is non-nil only when ctx ends before all runs finish.
func (s *Service) RefreshAll(ctx context.Context, concurrency int) (*RefreshStats, error) {
	logger := slog.Default()
	start := time.Now()
	stats := &RefreshStats{Sources: len(s.adapters)}

	if concurrency <= 0 {
		concurrency = 1
	}
	var succeeded, failed atomic.Int64

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)
	for _, info := range s.Sources() {
		name := info.Name
		eg.Go(func() error {
			if egCtx.Err() != nil {
				failed.Add(1)
				return nil
			}
			if _, err := s.Refresh(egCtx, name); err != nil {
				failed.Add(1)
				logger.Warn("source refresh failed",
					slog.String("source", name),
					slog.String("kind", entity.KindName(entity.KindOf(err))),
					slog.Any("error", err))
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	_ = eg.Wait()

	stats.Succeeded = succeeded.Load()
	stats.Failed = failed.Load()
	stats.Duration = time.Since(start)
	logger.Info("all sources refresh completed",
		slog.Int("sources", stats.Sources),
		slog.Int64("succeeded", stats.Succeeded),
		slog.Int64("failed", stats.Failed),
		slog.Duration("duration", stats.Duration))

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("refresh interrupted: %w", err)
	}
	return stats, nil
}

// IsDeadline reports whether err came from a run that ran out of time.
func IsDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
