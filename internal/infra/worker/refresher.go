package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"feedhub/internal/handler/http/respond"
	"feedhub/internal/usecase/fetch"

	"github.com/robfig/cron/v3"
)

// RefreshService refreshes every configured source. *fetch.Service satisfies it.
type RefreshService interface {
	RefreshAll(ctx context.Context, concurrency int) (*fetch.RefreshStats, error)
	Sources() []fetch.SourceInfo
}

// Refresher runs RefreshAll on a cron schedule so sessions stay warm and
// the feed cache is filled before readers ask.
type Refresher struct {
	svc     RefreshService
	cfg     Config
	metrics *WorkerMetrics
	logger  *slog.Logger
	cron    *cron.Cron
}

// NewRefresher creates a Refresher. metrics may be nil.
func NewRefresher(svc RefreshService, cfg Config, metrics *WorkerMetrics, logger *slog.Logger) *Refresher {
	return &Refresher{svc: svc, cfg: cfg, metrics: metrics, logger: logger}
}

// Start schedules the refresh job and returns immediately.
// Jobs stop being scheduled when Stop is called.
func (r *Refresher) Start() error {
	loc, err := time.LoadLocation(r.cfg.Timezone)
	if err != nil {
		r.logger.Error("invalid timezone, using UTC", slog.String("timezone", r.cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	r.cron = cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	if _, err := r.cron.AddFunc(r.cfg.RefreshSchedule, func() {
		r.RunOnce(context.Background())
	}); err != nil {
		return fmt.Errorf("add refresh job: %w", err)
	}
	r.cron.Start()

	r.logger.Info("refresher started",
		slog.String("schedule", r.cfg.RefreshSchedule),
		slog.String("timezone", loc.String()))
	return nil
}

// Stop stops scheduling and waits for a running job to finish or ctx to end.
func (r *Refresher) Stop(ctx context.Context) {
	if r.cron == nil {
		return
	}
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce refreshes every source once. The job gets one run timeout per
// wave of concurrent runs.
func (r *Refresher) RunOnce(ctx context.Context) {
	start := time.Now()
	r.logger.Info("refresh started")

	if r.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.jobTimeout())
		defer cancel()
	}

	stats, err := r.svc.RefreshAll(ctx, r.cfg.RefreshConcurrency)
	duration := time.Since(start)

	status := "success"
	switch {
	case err != nil:
		status = "failure"
		r.logger.Error("refresh failed", slog.String("error", respond.SanitizeError(err)))
	case stats.Failed > 0:
		status = "partial"
	}

	if r.metrics != nil {
		r.metrics.RecordJobRun(status)
		r.metrics.RecordJobDuration(duration)
		if stats != nil {
			r.metrics.RecordSources(stats.Succeeded, stats.Failed)
		}
		if status == "success" {
			r.metrics.RecordLastSuccess()
		}
	}
	if stats != nil {
		r.logger.Info("refresh completed",
			slog.String("status", status),
			slog.Int("sources", stats.Sources),
			slog.Int64("succeeded", stats.Succeeded),
			slog.Int64("failed", stats.Failed),
			slog.Duration("duration", duration))
	}
}

func (r *Refresher) jobTimeout() time.Duration {
	n := len(r.svc.Sources())
	c := max(r.cfg.RefreshConcurrency, 1)
	waves := max((n+c-1)/c, 1)
	return time.Duration(waves) * r.cfg.RunTimeout
}
