// Package observability groups the logging, metrics, tracing and SLO
// packages used across feedhub.
//
// Subpackages:
//   - logging: slog JSON logger with request-scoped context propagation
//   - metrics: Prometheus collectors for HTTP, upstream and pipeline activity
//   - tracing: OpenTelemetry provider, HTTP middleware and span helpers
//   - slo: per-source success ratio and freshness objectives
//
// Example usage:
//
//	import (
//	    "feedhub/internal/observability/logging"
//	    "feedhub/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("application started")
//
//	    metrics.RecordPipelineRun("pixiv", "success", time.Second)
//	}
package observability
