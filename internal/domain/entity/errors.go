package entity

import (
	"errors"
	"fmt"
)

// Failure kinds reported by source adapters and the fetch pipeline.
// Adapters wrap one of these with %w so the pipeline can classify the failure.
var (
	// ErrAuthFailed indicates that an authentication exchange was rejected or could not reach the upstream.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrAuthExpired indicates that the upstream rejected a previously valid session during a fetch.
	// It is the only kind the pipeline recovers from, and only once per run.
	ErrAuthExpired = errors.New("session expired")

	// ErrFetchFailed indicates a transport error or a non-success status unrelated to authentication.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrMalformedContent indicates that a payload could not be parsed into entries.
	ErrMalformedContent = errors.New("malformed content")

	// ErrExtractionFailed indicates that a field required to build an entry was absent.
	// errors.Is(ErrExtractionFailed, ErrMalformedContent) is true.
	ErrExtractionFailed = fmt.Errorf("required field missing: %w", ErrMalformedContent)
)

// kinds lists the failure kinds in classification order.
// ErrExtractionFailed is absent on purpose: it reports as ErrMalformedContent.
var kinds = []error{ErrAuthFailed, ErrAuthExpired, ErrFetchFailed, ErrMalformedContent}

// KindOf returns the failure kind err belongs to, or nil if it matches none.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// KindName returns a short label for a failure kind, suitable for metrics and logs.
func KindName(kind error) string {
	switch kind {
	case ErrAuthFailed:
		return "auth_failed"
	case ErrAuthExpired:
		return "auth_expired"
	case ErrFetchFailed:
		return "fetch_failed"
	case ErrMalformedContent:
		return "malformed_content"
	default:
		return "unknown"
	}
}

// SourceError tags a pipeline failure with the source it came from.
// Both Kind and the underlying cause are reachable through errors.Is and errors.As.
type SourceError struct {
	Source string
	Kind   error
	Err    error
}

// Error returns a message of the form "source: kind: cause".
func (e *SourceError) Error() string {
	if e.Err == nil || e.Err == e.Kind {
		return fmt.Sprintf("%s: %v", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Source, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause.
func (e *SourceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewSourceError builds a SourceError, dropping the cause when it is the kind itself.
func NewSourceError(source string, kind, err error) *SourceError {
	if err == kind {
		err = nil
	}
	return &SourceError{Source: source, Kind: kind, Err: err}
}

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
