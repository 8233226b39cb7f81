package http

import (
	"net/http"

	"feedhub/pkg/security/csp"
)

// SecurityHeaders sets the response headers that keep upstream markup inside
// a feed from executing when the document is opened in a browser.
func SecurityHeaders(policy *csp.Policy) func(http.Handler) http.Handler {
	name, value := policy.HeaderName(), policy.String()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set(name, value)
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "no-referrer")
			next.ServeHTTP(w, r)
		})
	}
}
