// Package logging wraps log/slog with the conventions used across feedhub:
// JSON output, a LOG_LEVEL environment variable and a logger carried in the
// request context.
//
//	logger := logging.NewLogger()
//	slog.SetDefault(logger)
//
//	func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
//	    logger := logging.FromContext(r.Context())
//	    logger.Info("serving feed", slog.String("source", name))
//	}
package logging
