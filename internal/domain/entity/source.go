package entity

import (
	"fmt"
	"regexp"
	"time"
)

// Source kinds understood by the adapter factory.
const (
	KindPixiv         = "pixiv"
	KindQiita         = "qiita"
	KindGitHub        = "github"
	KindEeicWiki      = "eeicwiki"
	KindComikeCatalog = "comikecatalog"
	KindRSS           = "rss"
)

// validKinds mirrors the adapters registered in the source factory.
var validKinds = map[string]bool{
	KindPixiv:         true,
	KindQiita:         true,
	KindGitHub:        true,
	KindEeicWiki:      true,
	KindComikeCatalog: true,
	KindRSS:           true,
}

// sourceNamePattern keeps source names usable as a URL path segment.
var sourceNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// SourceDescriptor is the static identity of an adapter instance.
// It is built once when the adapter is constructed and never changes afterwards.
type SourceDescriptor struct {
	Name    string
	Kind    string
	BaseURL string
	Meta    FeedMeta
}

// Validate checks that the descriptor names a known kind and a routable name.
func (d SourceDescriptor) Validate() error {
	if !sourceNamePattern.MatchString(d.Name) {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("invalid source name %q", d.Name)}
	}
	if !IsValidKind(d.Kind) {
		return &ValidationError{Field: "kind", Message: fmt.Sprintf("invalid source kind %q", d.Kind)}
	}
	return nil
}

// IsValidKind reports whether kind has a registered adapter.
func IsValidKind(kind string) bool {
	return validKinds[kind]
}

// Credentials are handed to adapters by configuration.
// The pipeline never reads them.
type Credentials struct {
	Username string
	Password string
	Token    string
}

// HasLogin reports whether both username and password are present.
func (c Credentials) HasLogin() bool {
	return c.Username != "" && c.Password != ""
}

// RawPayload is the untyped result of one fetch. It lives only for the duration of a run.
type RawPayload struct {
	Body        []byte
	ContentType string
	URL         string
	FetchedAt   time.Time
}

// Extraction is what an adapter produces from a payload: entries in upstream order
// plus optional per-run overrides of the descriptor's feed metadata.
type Extraction struct {
	Entries []Entry
	Meta    FeedMeta
}
