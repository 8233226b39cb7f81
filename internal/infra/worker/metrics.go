package worker

import (
	"time"

	"feedhub/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for the refresh worker.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// metrics for refresh job execution.
//
// Worker-specific metrics:
//   - worker_refresh_job_runs_total: refresh job runs by status (success/partial/failure)
//   - worker_refresh_job_duration_seconds: duration of one refresh of all sources
//   - worker_refresh_sources_total: sources refreshed, by result
//   - worker_refresh_last_success_timestamp: Unix time of the last job with no failures
type WorkerMetrics struct {
	*config.ConfigMetrics

	JobRunsTotal         *prometheus.CounterVec
	JobDurationSeconds   prometheus.Histogram
	SourcesTotal         *prometheus.CounterVec
	LastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates WorkerMetrics registered with the default registerer.
func NewWorkerMetrics() *WorkerMetrics {
	return NewWorkerMetricsWith(prometheus.DefaultRegisterer)
}

// NewWorkerMetricsWith creates WorkerMetrics registered with reg.
// Tests pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewWorkerMetricsWith(reg prometheus.Registerer) *WorkerMetrics {
	factory := promauto.With(reg)
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetricsWith(reg, "worker"),

		JobRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_refresh_job_runs_total",
			Help: "Total number of refresh job runs by status",
		}, []string{"status"}),

		JobDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_refresh_job_duration_seconds",
			Help:    "Duration of refresh job execution in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		}),

		SourcesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_refresh_sources_total",
			Help: "Total number of source refreshes by result",
		}, []string{"result"}),

		LastSuccessTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "worker_refresh_last_success_timestamp",
			Help: "Unix timestamp of the last refresh job without failures",
		}),
	}
}

// RecordJobRun increments the job run counter for status.
func (m *WorkerMetrics) RecordJobRun(status string) {
	m.JobRunsTotal.WithLabelValues(status).Inc()
}

// RecordJobDuration observes the duration of one job.
func (m *WorkerMetrics) RecordJobDuration(d time.Duration) {
	m.JobDurationSeconds.Observe(d.Seconds())
}

// RecordSources adds the per-source results of one job.
func (m *WorkerMetrics) RecordSources(succeeded, failed int64) {
	m.SourcesTotal.WithLabelValues("success").Add(float64(succeeded))
	m.SourcesTotal.WithLabelValues("failure").Add(float64(failed))
}

// RecordLastSuccess stamps the current time as the last successful run.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.LastSuccessTimestamp.SetToCurrentTime()
}
