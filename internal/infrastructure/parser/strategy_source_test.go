package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticlesPublisher/internal/domain"
	"ArticlesPublisher/internal/scanner"
)

type recordingScanner struct {
	got scanner.Request
}

func (r *recordingScanner) Kind() domain.SourceKind { return domain.SourceRSS }

func (r *recordingScanner) Scan(_ context.Context, req scanner.Request) ([]domain.FeedItem, error) {
	r.got = req
	return []domain.FeedItem{{GUID: "g1"}}, nil
}

func TestStrategySourceDispatchesByKind(t *testing.T) {
	rec := &recordingScanner{}
	src := NewStrategySource(scanner.NewRegistry(rec), nil)

	items, err := src.Fetch(context.Background(), domain.Source{
		ID:     "s1",
		Kind:   domain.SourceRSS,
		URL:    "https://example.com/feed",
		Config: domain.SourceConfig{MaxItems: 3},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "s1", items[0].SourceID)
	assert.Equal(t, "https://example.com/feed", rec.got.URL)
	assert.Equal(t, 3, rec.got.MaxItems)

	_, err = src.Fetch(context.Background(), domain.Source{ID: "s2", Kind: domain.SourceArxiv})
	assert.ErrorContains(t, err, "not registered")
}
