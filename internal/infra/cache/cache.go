// Package cache keeps the latest rendered feed per source so repeated
// requests within the TTL do not hit the upstream again.
package cache

import (
	"time"

	"feedhub/internal/observability/metrics"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCapacity bounds the number of cached documents.
const DefaultCapacity = 128

// Document is one rendered Atom feed.
type Document struct {
	Body       []byte
	Entries    int
	Updated    time.Time
	RenderedAt time.Time
}

// FeedCache maps source names to their latest successful Document.
// Failures are never stored.
type FeedCache struct {
	lru *expirable.LRU[string, Document]
}

// New creates a FeedCache whose documents live for ttl.
// A non-positive capacity falls back to DefaultCapacity.
func New(capacity int, ttl time.Duration) *FeedCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &FeedCache{lru: expirable.NewLRU[string, Document](capacity, nil, ttl)}
}

// Get returns the cached document for source if it has not expired.
func (c *FeedCache) Get(source string) (Document, bool) {
	doc, ok := c.lru.Get(source)
	metrics.RecordFeedCacheLookup(ok)
	return doc, ok
}

// Put stores doc for source and restarts its expiry clock.
func (c *FeedCache) Put(source string, doc Document) {
	c.lru.Add(source, doc)
}

// Remove drops the document for source.
func (c *FeedCache) Remove(source string) {
	c.lru.Remove(source)
}

// Len returns the number of live documents.
func (c *FeedCache) Len() int {
	return c.lru.Len()
}
