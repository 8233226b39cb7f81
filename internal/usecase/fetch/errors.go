// Package fetch serves feeds: it resolves a source name to its adapter,
// answers from the feed cache when it can, and otherwise runs the fetch
// pipeline and renders the result as Atom.
package fetch

import "errors"

// Sentinel errors for fetch use case operations.
var (
	// ErrUnknownSource indicates that no source with the requested name is configured.
	ErrUnknownSource = errors.New("unknown source")

	// ErrRenderFailed indicates that an assembled feed could not be serialized.
	ErrRenderFailed = errors.New("failed to render feed")
)
