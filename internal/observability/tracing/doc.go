// Package tracing provides OpenTelemetry tracing integration.
//
// InitProvider installs an SDK tracer provider at startup; Middleware opens a
// server span per inbound request, and StartSpan is used by the fetch pipeline
// and the HTTP client facade for their own spans.
//
// Example usage:
//
//	import "feedhub/internal/observability/tracing"
//
//	func main() {
//	    shutdown := tracing.InitProvider(1.0)
//	    defer shutdown(context.Background())
//	}
//
//	func run(ctx context.Context) {
//	    ctx, span := tracing.StartSpan(ctx, "pipeline.run")
//	    defer span.End()
//	    // ...
//	}
package tracing
