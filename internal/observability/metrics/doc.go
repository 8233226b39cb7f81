// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - inbound HTTP request metrics (duration, count, size)
//   - upstream request metrics issued by the HTTP client facade
//   - fetch pipeline metrics (runs, authentications, entries)
//   - feed cache metrics
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "feedhub/internal/observability/metrics"
//
//	func run(source string) {
//	    start := time.Now()
//	    // ... run the pipeline ...
//	    metrics.RecordPipelineRun(source, "success", time.Since(start))
//	}
package metrics
