package domain

import (
	"strings"
	"time"
)

// FeedItem is one entry fetched from a source before any generation.
type FeedItem struct {
	ID          string
	SourceID    string
	GUID        string
	URL         string
	Title       string
	Content     string
	PublishedAt *time.Time
	FetchedAt   time.Time
	CreatedAt   time.Time
	Processed   bool
	ArticleID   string
}

// DedupKey identifies an item within its source by one unique field.
type DedupKey struct {
	SourceID string
	Value    string
}

// URLKey is the (sourceId, url) uniqueness key; ok is false for items without a URL.
func (i FeedItem) URLKey() (DedupKey, bool) {
	u := strings.TrimSpace(i.URL)
	if u == "" {
		return DedupKey{}, false
	}
	return DedupKey{SourceID: i.SourceID, Value: u}, true
}

// GUIDKey is the (sourceId, guid) uniqueness key; ok is false for items without a GUID.
func (i FeedItem) GUIDKey() (DedupKey, bool) {
	g := strings.TrimSpace(i.GUID)
	if g == "" {
		return DedupKey{}, false
	}
	return DedupKey{SourceID: i.SourceID, Value: g}, true
}

// CreatedBefore orders rows for dedup survival: earliest createdAt, then smallest id.
func (i FeedItem) CreatedBefore(other FeedItem) bool {
	if !i.CreatedAt.Equal(other.CreatedAt) {
		return i.CreatedAt.Before(other.CreatedAt)
	}
	return i.ID < other.ID
}
