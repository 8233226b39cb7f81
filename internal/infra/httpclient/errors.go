package httpclient

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestFailed indicates that no response was received (transport error, timeout, cancellation).
	ErrRequestFailed = errors.New("request failed")

	// ErrCircuitOpen indicates that the source's circuit breaker rejected the request without sending it.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrBodyTooLarge indicates that the response body exceeded Config.MaxBodyBytes.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrInvalidRequest indicates that the request could not be built.
	ErrInvalidRequest = errors.New("invalid request")
)

// StatusError reports a response whose status code is outside 2xx.
type StatusError struct {
	StatusCode int
	Method     string
	URL        string
}

// Error returns a message such as "GET https://example.com/path: unexpected status 503".
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// IsRedirect reports whether the status is a 3xx.
func (e *StatusError) IsRedirect() bool {
	return e.StatusCode >= 300 && e.StatusCode < 400
}

// IsUnauthorized reports whether the status is 401 or 403.
func (e *StatusError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}
