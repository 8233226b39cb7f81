package pipeline

import (
	"context"

	"feedhub/internal/domain/entity"
)

// Adapter is the capability set one upstream source implements.
// The pipeline drives every source through this interface only.
type Adapter interface {
	// Descriptor returns the static identity of the adapter.
	Descriptor() entity.SourceDescriptor

	// CheckSession reports whether s looks usable. It performs no I/O.
	CheckSession(s entity.Session) bool

	// Authenticate performs a login exchange and returns a fresh session.
	// Failures wrap entity.ErrAuthFailed.
	Authenticate(ctx context.Context) (entity.Session, error)

	// FetchRaw retrieves the activity payload using s.
	// An explicit login-wall signal wraps entity.ErrAuthExpired;
	// any other failure wraps entity.ErrFetchFailed.
	FetchRaw(ctx context.Context, s entity.Session) (entity.RawPayload, error)

	// ExtractEntries parses p into entries. It performs no I/O.
	// Failures wrap entity.ErrMalformedContent. Zero entries is not a failure.
	ExtractEntries(p entity.RawPayload) (entity.Extraction, error)
}
