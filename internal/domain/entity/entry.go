// Package entity defines the core domain types of the feed pipeline:
// sessions, source descriptors, entries and feed documents, together with
// the failure kinds the pipeline reports.
package entity

import (
	"net/url"
	"time"
)

// Entry is one normalized unit of upstream activity.
// Published and Updated are timezone-aware instants; Updated >= Published is not enforced,
// each source decides its own last-writer policy.
type Entry struct {
	ID         string
	Title      string
	Link       string
	Content    string // sanitized HTML fragment
	Category   string
	AuthorName string
	AuthorURI  string
	Published  time.Time
	Updated    time.Time
}

// Validate checks the fields the feed document cannot do without.
func (e Entry) Validate() error {
	if e.ID == "" {
		return &ValidationError{Field: "id", Message: "id is required"}
	}
	if e.Title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if err := ValidateLink(e.Link); err != nil {
		return err
	}
	if e.Published.IsZero() {
		return &ValidationError{Field: "published", Message: "published is required"}
	}
	if e.Updated.IsZero() {
		return &ValidationError{Field: "updated", Message: "updated is required"}
	}
	return nil
}

// maxURLLength defines the maximum allowed length for links.
const maxURLLength = 2048

// ValidateLink checks that a link is an absolute http(s) URL.
// Unlike request targets, entry links are never dereferenced by the server,
// so no private-address check is applied.
func ValidateLink(rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Field: "link", Message: "link is required"}
	}
	if len(rawURL) > maxURLLength {
		return &ValidationError{Field: "link", Message: "link is too long"}
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Field: "link", Message: "link is invalid: " + err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "link", Message: "link must use http or https scheme"}
	}
	if u.Host == "" {
		return &ValidationError{Field: "link", Message: "link must have a valid host"}
	}
	return nil
}
