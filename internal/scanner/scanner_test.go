package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticlesPublisher/internal/domain"
)

type stubScanner struct{ kind domain.SourceKind }

func (s stubScanner) Kind() domain.SourceKind { return s.kind }

func (s stubScanner) Scan(context.Context, Request) ([]domain.FeedItem, error) { return nil, nil }

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry(stubScanner{kind: domain.SourceRSS})

	got, err := reg.Resolve(domain.SourceRSS)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceRSS, got.Kind())

	_, err = reg.Resolve(domain.SourceArxiv)
	assert.ErrorContains(t, err, "arxiv is not registered")
}
