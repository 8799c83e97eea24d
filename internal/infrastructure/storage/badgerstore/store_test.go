package badgerstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticlesPublisher/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestFeedItemInsertRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Ports().Items

	first := &domain.FeedItem{ID: "i1", SourceID: "s1", URL: "https://x/1", GUID: "g1"}
	require.NoError(t, repo.Insert(ctx, first))

	byURL := &domain.FeedItem{ID: "i2", SourceID: "s1", URL: "https://x/1", GUID: "other"}
	assert.ErrorIs(t, repo.Insert(ctx, byURL), domain.ErrDuplicateIngestion)

	byGUID := &domain.FeedItem{ID: "i3", SourceID: "s1", URL: "https://x/3", GUID: "g1"}
	assert.ErrorIs(t, repo.Insert(ctx, byGUID), domain.ErrDuplicateIngestion)

	otherSource := &domain.FeedItem{ID: "i4", SourceID: "s2", URL: "https://x/1", GUID: "g1"}
	require.NoError(t, repo.Insert(ctx, otherSource))

	found, err := repo.FindExisting(ctx, "s1", []string{"https://x/1"}, nil)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "i1", found[0].ID)
}

func TestGenerationCreateIsIdempotentPerItem(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Ports().Generations
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	item := domain.FeedItem{ID: "item-1", SourceID: "s1"}

	first, created, err := repo.Create(ctx, domain.NewGenerationAttempt("g1", item, 0, now))
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repo.Create(ctx, domain.NewGenerationAttempt("g2", item, 0, now))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestCompareAndSetUpdate(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Ports().Publications
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	pub := domain.NewPublication("p1", "a1", 3, now)
	require.NoError(t, repo.Create(ctx, pub))

	started := pub
	require.NoError(t, started.Start(now))
	require.NoError(t, repo.Update(ctx, started, domain.PublicationPending))

	again := pub
	require.NoError(t, again.Start(now))
	assert.ErrorIs(t, repo.Update(ctx, again, domain.PublicationPending), domain.ErrStaleState)

	stored, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.PublicationProcessing, stored.Status)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestArticlesListOldestFirst(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Ports().Articles
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, status := range []domain.ArticleStatus{
		domain.ArticleReadyToPublish, domain.ArticleGenerated, domain.ArticleGeneratedWithImage, domain.ArticleReadyToPublish,
	} {
		require.NoError(t, repo.Create(ctx, domain.Article{
			ID:        string(rune('d' - i)),
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	got, err := repo.ListByStatus(ctx, domain.PublishableStatuses(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "d", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestSourceDeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t).Ports()

	source := &domain.Source{ID: "s1", Name: "feed", Kind: domain.SourceRSS}
	require.NoError(t, store.Sources.Save(ctx, source))
	require.NoError(t, store.Items.Insert(ctx, &domain.FeedItem{ID: "i1", SourceID: "s1", URL: "https://x/1"}))
	_, _, err := store.Generations.Create(ctx, domain.GenerationAttempt{ID: "g1", FeedItemID: "i1", SourceID: "s1"})
	require.NoError(t, err)
	require.NoError(t, store.Rules.Save(ctx, domain.AutomationRule{ID: "r1", SourceID: "s1", Enabled: true}))

	require.NoError(t, store.Sources.Delete(ctx, "s1"))

	_, err = store.Items.Get(ctx, "i1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.Generations.Get(ctx, "g1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	rules, err := store.Rules.ListBySource(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestLocker(t *testing.T) {
	l := NewLocker()
	unlock, ok, err := l.TryLock(context.Background(), "autopublish")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(context.Background(), "autopublish")
	require.NoError(t, err)
	assert.False(t, ok)

	unlock()
	unlock()
	_, ok, err = l.TryLock(context.Background(), "autopublish")
	require.NoError(t, err)
	assert.True(t, ok)
}
