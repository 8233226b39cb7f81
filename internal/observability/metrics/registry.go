// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track inbound feed requests
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPResponseSize measures HTTP response body size in bytes
	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)
)

// Upstream metrics track requests issued by the HTTP client facade
var (
	// UpstreamRequestsTotal counts outbound requests by source and status class
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedhub_upstream_requests_total",
			Help: "Total number of requests sent to upstream sources",
		},
		[]string{"source", "status"}, // status: 2xx, 3xx, 4xx, 5xx, error, rejected
	)

	// UpstreamRequestDuration measures outbound request latency
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedhub_upstream_request_duration_seconds",
			Help:    "Upstream request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)
)

// Pipeline metrics track fetch pipeline runs
var (
	// PipelineRunsTotal counts pipeline runs by source and result
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedhub_pipeline_runs_total",
			Help: "Total number of fetch pipeline runs",
		},
		[]string{"source", "result"}, // result: success, auth_failed, auth_expired, fetch_failed, malformed_content, unknown
	)

	// PipelineRunDuration measures end-to-end run time
	PipelineRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedhub_pipeline_run_duration_seconds",
			Help:    "Time taken by one fetch pipeline run",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"source"},
	)

	// AuthenticationsTotal counts authenticate calls by source and result
	AuthenticationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedhub_authentications_total",
			Help: "Total number of source authentications",
		},
		[]string{"source", "result"},
	)

	// FeedEntries tracks the entry count of the last assembled feed per source
	FeedEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feedhub_feed_entries",
			Help: "Number of entries in the last assembled feed",
		},
		[]string{"source"},
	)

	// SourcesTotal tracks the number of configured sources
	SourcesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedhub_sources_total",
			Help: "Number of configured sources",
		},
	)
)

// Cache metrics track the assembled-feed cache
var (
	// FeedCacheLookupsTotal counts cache lookups by result
	FeedCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedhub_feed_cache_lookups_total",
			Help: "Total number of feed cache lookups",
		},
		[]string{"result"}, // result: hit, miss
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration, responseSize int) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())

	if responseSize > 0 {
		HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
	}
}
