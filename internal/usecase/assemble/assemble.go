// Package assemble turns extracted entries and feed metadata into a feed document.
package assemble

import (
	"slices"
	"time"

	"feedhub/internal/domain/entity"
)

// Assemble builds the feed document for one run.
//
// It is a pure function: no clock is read, so the same inputs always give the
// same document. Entries keep the order they were given in and are copied, so
// later changes to the caller's slice do not alter the feed. The feed's Updated
// timestamp is the latest entry Updated, or entity.EpochSentinel without entries.
// The feed ID is the self link, or the alternate link when no self link is set.
func Assemble(gen entity.Generator, meta entity.FeedMeta, entries []entity.Entry) entity.Feed {
	id := meta.SelfLink
	if id == "" {
		id = meta.AlternateLink
	}

	return entity.Feed{
		ID:            id,
		Title:         meta.Title,
		Subtitle:      meta.Subtitle,
		SelfLink:      meta.SelfLink,
		AlternateLink: meta.AlternateLink,
		Generator:     gen,
		Updated:       LatestUpdate(entries),
		Entries:       slices.Clone(entries),
	}
}

// LatestUpdate returns the maximum Updated across entries, or entity.EpochSentinel.
func LatestUpdate(entries []entity.Entry) time.Time {
	latest := entity.EpochSentinel
	found := false
	for _, e := range entries {
		if !found || e.Updated.After(latest) {
			latest = e.Updated
			found = true
		}
	}
	return latest
}
