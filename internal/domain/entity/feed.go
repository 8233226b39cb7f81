package entity

import "time"

// EpochSentinel is the feed-level updated timestamp of a feed without entries.
var EpochSentinel = time.Unix(0, 0).UTC()

// FeedMeta is feed-level metadata supplied by an adapter.
type FeedMeta struct {
	Title         string
	Subtitle      string
	AlternateLink string
	SelfLink      string
}

// Merge returns m with every non-empty field of override applied on top.
func (m FeedMeta) Merge(override FeedMeta) FeedMeta {
	if override.Title != "" {
		m.Title = override.Title
	}
	if override.Subtitle != "" {
		m.Subtitle = override.Subtitle
	}
	if override.AlternateLink != "" {
		m.AlternateLink = override.AlternateLink
	}
	if override.SelfLink != "" {
		m.SelfLink = override.SelfLink
	}
	return m
}

// Generator identifies the software that produced a feed.
type Generator struct {
	Name    string
	URI     string
	Version string
}

// DefaultGenerator is stamped on every feed unless the caller supplies another.
var DefaultGenerator = Generator{
	Name:    "feedhub",
	URI:     "https://github.com/feedhub/feedhub",
	Version: "1.0.0",
}

// Feed is the assembled, serializable feed document.
// Entries keep the order the adapter produced them in.
type Feed struct {
	ID            string
	Title         string
	Subtitle      string
	SelfLink      string
	AlternateLink string
	Generator     Generator
	Updated       time.Time
	Entries       []Entry
}
