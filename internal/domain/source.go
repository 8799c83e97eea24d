package domain

import (
	"fmt"
	"strings"
	"time"
)

// SourceKind selects the fetch strategy used for a source.
type SourceKind string

const (
	SourceRSS   SourceKind = "rss"
	SourceArxiv SourceKind = "arxiv"
)

// ParseSourceKind rejects kinds no fetch strategy exists for.
func ParseSourceKind(v string) (SourceKind, error) {
	switch k := SourceKind(strings.ToLower(strings.TrimSpace(v))); k {
	case SourceRSS, SourceArxiv:
		return k, nil
	default:
		return "", fmt.Errorf("source kind %q: %w", v, ErrUnknownStatus)
	}
}

const defaultPollingInterval = 60 * time.Minute

// SourceConfig is the per-source automation blob.
type SourceConfig struct {
	AutoGenerate           bool     `json:"autoGenerate" yaml:"autoGenerate"`
	PollingIntervalMinutes int      `json:"pollingIntervalMinutes" yaml:"pollingIntervalMinutes"`
	MaxItems               int      `json:"maxItems" yaml:"maxItems"`
	DefaultCategory        string   `json:"defaultCategory" yaml:"defaultCategory"`
	AttachImage            bool     `json:"attachImage" yaml:"attachImage"`
	AutoPublish            bool     `json:"autoPublish" yaml:"autoPublish"`
	TargetWordCount        int      `json:"targetWordCount" yaml:"targetWordCount"`
	Tone                   string   `json:"tone" yaml:"tone"`
	Style                  string   `json:"style" yaml:"style"`
	Keywords               []string `json:"keywords" yaml:"keywords"`
}

// PollingInterval falls back to an hour when unset.
func (c SourceConfig) PollingInterval() time.Duration {
	if c.PollingIntervalMinutes <= 0 {
		return defaultPollingInterval
	}
	return time.Duration(c.PollingIntervalMinutes) * time.Minute
}

// Source is a content origin owned by a user.
type Source struct {
	ID            string
	UserID        string
	Name          string
	Kind          SourceKind
	URL           string
	Config        SourceConfig
	LastFetchedAt *time.Time
	CreatedAt     time.Time
}

// DueForFetch reports whether the polling interval has elapsed.
func (s Source) DueForFetch(now time.Time) bool {
	if s.LastFetchedAt == nil {
		return true
	}
	return !now.Before(s.LastFetchedAt.Add(s.Config.PollingInterval()))
}

// Site is the publishing target and its policy.
type Site struct {
	Name            string
	AutoPublish     bool
	DefaultCategory string
	PostStatus      string
}

// ResolveCategories applies the source > site > none priority.
func ResolveCategories(sourceCategory, siteCategory string) []string {
	if c := strings.TrimSpace(sourceCategory); c != "" {
		return []string{c}
	}
	if c := strings.TrimSpace(siteCategory); c != "" {
		return []string{c}
	}
	return []string{}
}
