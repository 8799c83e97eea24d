package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticlesPublisher/internal/domain"
)

func TestPublicationServiceOperatorActions(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	svc := NewPublicationService(store.Publications, nil, newTestClock().Clock())

	create := func(id string, status domain.PublicationStatus, retries int) {
		pub := domain.NewPublication(id, "article-"+id, 3, testEpoch)
		pub.Status = status
		pub.RetryCount = retries
		require.NoError(t, store.Publications.Create(ctx, pub))
	}
	create("failed", domain.PublicationFailed, 1)
	create("exhausted", domain.PublicationFailed, 3)
	create("processing", domain.PublicationProcessing, 0)
	create("completed", domain.PublicationCompleted, 0)

	pub, err := svc.Retry(ctx, "failed")
	require.NoError(t, err)
	assert.Equal(t, domain.PublicationPending, pub.Status)
	assert.Equal(t, 2, pub.RetryCount)

	_, err = svc.Retry(ctx, "exhausted")
	assert.ErrorIs(t, err, domain.ErrRetriesExhausted)

	_, err = svc.Retry(ctx, "processing")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	assert.ErrorIs(t, svc.Delete(ctx, "processing"), domain.ErrInvalidTransition)

	_, err = svc.Cancel(ctx, "completed")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	pub, err = svc.Cancel(ctx, "processing")
	require.NoError(t, err)
	assert.Equal(t, domain.PublicationCancelled, pub.Status)

	require.NoError(t, svc.Delete(ctx, "processing"))
	require.NoError(t, svc.Delete(ctx, "exhausted"))

	_, err = svc.Get(ctx, "processing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Retry(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelledPublicationIsReplacedOnNextRun(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, testSite)
	readyArticle(t, p, "a1", "s1", domain.ArticleReadyToPublish, 0)

	cancelled := domain.NewPublication("old", "a1", 3, testEpoch.Add(-1))
	cancelled.Status = domain.PublicationCancelled
	require.NoError(t, p.store.Publications.Create(ctx, cancelled))

	report, err := p.publisher.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Published)

	latest, err := p.store.Publications.LatestForArticle(ctx, "a1")
	require.NoError(t, err)
	assert.NotEqual(t, "old", latest.ID)
	assert.Equal(t, domain.PublicationCompleted, latest.Status)
}
