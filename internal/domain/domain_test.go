package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func TestArticleTransitions(t *testing.T) {
	t.Parallel()

	allowed := []struct{ from, to ArticleStatus }{
		{ArticleDraft, ArticleGenerated},
		{ArticleGenerated, ArticleGeneratedImageDraft},
		{ArticleGenerated, ArticleReadyToPublish},
		{ArticleGeneratedImageDraft, ArticleGeneratedWithImage},
		{ArticleGeneratedImageDraft, ArticleReadyToPublish},
		{ArticleGeneratedWithImage, ArticleReadyToPublish},
		{ArticleReadyToPublish, ArticleArchived},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	rejected := []struct{ from, to ArticleStatus }{
		{ArticleDraft, ArticleReadyToPublish},
		{ArticlePublished, ArticleDraft},
		{ArticlePublished, ArticleArchived},
		{ArticleArchived, ArticleGenerated},
		{ArticleReadyToPublish, ArticleGenerated},
	}
	for _, tc := range rejected {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	a := Article{ID: "a1", Status: ArticleDraft}
	err := a.TransitionTo(ArticleReadyToPublish, now)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "draft", te.From)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, ArticleDraft, a.Status)
}

func TestArticlePublishedRequiresCompletedPublication(t *testing.T) {
	t.Parallel()

	a := Article{ID: "a1", Status: ArticleReadyToPublish}
	assert.ErrorIs(t, a.TransitionTo(ArticlePublished, now), ErrInvalidTransition)

	pending := NewPublication("p1", "a1", 3, now)
	assert.ErrorIs(t, a.MarkPublished(pending, 7, "https://blog/7", now), ErrInvalidTransition)

	other := Publication{ID: "p2", ArticleID: "other", Status: PublicationCompleted}
	assert.ErrorIs(t, a.MarkPublished(other, 7, "https://blog/7", now), ErrInvalidTransition)

	done := Publication{ID: "p1", ArticleID: "a1", Status: PublicationCompleted}
	require.NoError(t, a.MarkPublished(done, 7, "https://blog/7", now))
	assert.Equal(t, ArticlePublished, a.Status)
	assert.Equal(t, int64(7), a.CMSPostID)
	require.NotNil(t, a.PublishedAt)
	assert.True(t, a.Status.Terminal())
}

func TestPublicationLifecycle(t *testing.T) {
	t.Parallel()

	p := NewPublication("p1", "a1", 1, now)
	assert.ErrorIs(t, p.Complete(1, now), ErrInvalidTransition)
	require.NoError(t, p.Start(now))
	require.NotNil(t, p.StartedAt)
	require.NoError(t, p.Fail(errors.New("502"), now))
	assert.Equal(t, "502", p.Error)
	assert.True(t, p.CanRetry())

	require.NoError(t, p.Retry(now))
	assert.Equal(t, PublicationPending, p.Status)
	assert.Equal(t, 1, p.RetryCount)
	assert.Nil(t, p.StartedAt)
	assert.Empty(t, p.Error)

	require.NoError(t, p.Start(now))
	require.NoError(t, p.Fail(nil, now))
	assert.False(t, p.CanRetry())
	assert.ErrorIs(t, p.Retry(now), ErrRetriesExhausted)
	require.NoError(t, p.CheckDeletable())

	require.NoError(t, p.Cancel(now))
	assert.ErrorIs(t, p.Cancel(now), ErrInvalidTransition)

	completed := Publication{ID: "p2", Status: PublicationCompleted}
	assert.ErrorIs(t, completed.Cancel(now), ErrInvalidTransition)
	assert.ErrorIs(t, completed.CheckDeletable(), ErrInvalidTransition)
}

func TestGenerationAttemptLifecycle(t *testing.T) {
	t.Parallel()

	g := NewGenerationAttempt("g1", FeedItem{ID: "i1", SourceID: "s1", Title: "T"}, 1, now)
	assert.Equal(t, GenerationPending, g.Status)
	assert.ErrorIs(t, g.Complete("a1", now), ErrInvalidTransition)

	require.NoError(t, g.Start(now))
	assert.ErrorIs(t, g.Start(now), ErrInvalidTransition)
	assert.ErrorIs(t, g.Complete("", now), ErrInvalidTransition)
	require.NoError(t, g.Fail(errors.New("bad json"), "{", now))
	assert.Equal(t, 1, g.RetryCount)

	assert.ErrorIs(t, g.Retry(1, now), ErrRetriesExhausted)
	require.NoError(t, g.Retry(0, now), "zero maximum is unbounded")
	require.NoError(t, g.Complete("a1", now))
	assert.Empty(t, g.RawResponse)
	assert.Empty(t, g.Error)
}

func TestFeaturedImage(t *testing.T) {
	t.Parallel()

	img := FeaturedImage{ID: "img", Status: ImageFound}
	assert.True(t, img.NeedsUpload())
	require.NoError(t, img.MarkUploaded(5, "https://blog/wp-content/x.jpg", now))
	assert.ErrorIs(t, img.MarkUploaded(6, "", now), ErrInvalidTransition)

	img.MarkError(errors.New("late failure"), now)
	assert.Equal(t, ImageUploaded, img.Status, "uploaded images keep their media")

	failed := FeaturedImage{ID: "img2", Status: ImageGenerated}
	failed.MarkError(errors.New("timeout"), now)
	assert.Equal(t, ImageError, failed.Status)
	assert.False(t, failed.NeedsUpload())
}

func TestParseStatuses(t *testing.T) {
	t.Parallel()

	_, err := ParseArticleStatus("ready_to_publish")
	assert.NoError(t, err)
	_, err = ParseArticleStatus("scheduled")
	assert.ErrorIs(t, err, ErrUnknownStatus)
	_, err = ParseGenerationStatus("queued")
	assert.ErrorIs(t, err, ErrUnknownStatus)
	_, err = ParseImageStatus("uploaded")
	assert.NoError(t, err)
	_, err = ParsePublicationStatus("cancelled")
	assert.NoError(t, err)

	kind, err := ParseSourceKind(" RSS ")
	require.NoError(t, err)
	assert.Equal(t, SourceRSS, kind)
	_, err = ParseSourceKind("atom")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestResolveCategories(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"Tech"}, ResolveCategories("Tech", "General"))
	assert.Equal(t, []string{"General"}, ResolveCategories(" ", "General"))
	assert.Equal(t, []string{}, ResolveCategories("", ""))
}

func TestDedupKeysAndOrdering(t *testing.T) {
	t.Parallel()

	item := FeedItem{ID: "b", SourceID: "s1", URL: " https://x/1 ", CreatedAt: now}
	key, ok := item.URLKey()
	require.True(t, ok)
	assert.Equal(t, DedupKey{SourceID: "s1", Value: "https://x/1"}, key)
	_, ok = item.GUIDKey()
	assert.False(t, ok)

	earlier := FeedItem{ID: "z", CreatedAt: now.Add(-time.Second)}
	sameTime := FeedItem{ID: "a", CreatedAt: now}
	assert.True(t, earlier.CreatedBefore(item))
	assert.True(t, sameTime.CreatedBefore(item))
	assert.False(t, item.CreatedBefore(sameTime))
}

func TestSourceDueForFetch(t *testing.T) {
	t.Parallel()

	s := Source{Config: SourceConfig{PollingIntervalMinutes: 30}}
	assert.True(t, s.DueForFetch(now))

	last := now.Add(-29 * time.Minute)
	s.LastFetchedAt = &last
	assert.False(t, s.DueForFetch(now))
	assert.True(t, s.DueForFetch(now.Add(time.Minute)))
	assert.Equal(t, time.Hour, SourceConfig{}.PollingInterval())
}

func TestRuleConditionsAndActions(t *testing.T) {
	t.Parallel()

	cond := RuleConditions{IncludeKeywords: []string{"Go"}, ExcludeKeywords: []string{"sponsored"}, MinContentLength: 5}
	assert.True(t, cond.Matches(FeedItem{Title: "go 1.25", Content: "lots of text"}))
	assert.False(t, cond.Matches(FeedItem{Title: "go 1.25", Content: "tiny"}))
	assert.False(t, cond.Matches(FeedItem{Title: "Sponsored: go", Content: "lots of text"}))
	assert.False(t, cond.Matches(FeedItem{Title: "rust", Content: "lots of text"}))

	actions := Actions{GenerateArticles{Priority: 2, MaxItems: 4}, SkipItems{Reason: "noise"}}
	data, err := json.Marshal(actions)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"kind":"generate_articles","payload":{"priority":2,"maxItems":4}},{"kind":"skip_items","payload":{"reason":"noise"}}]`, string(data))

	var decoded Actions
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, actions, decoded)

	err = json.Unmarshal([]byte(`[{"kind":"tweet"}]`), &decoded)
	assert.ErrorIs(t, err, ErrUnknownStatus)
}
