package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticlesPublisher/internal/domain"
	"ArticlesPublisher/internal/ports"
)

var testSite = domain.Site{Name: "blog", AutoPublish: true, DefaultCategory: "General", PostStatus: "publish"}

type pipeline struct {
	store     ports.Store
	clock     *testClock
	feed      *fakeItemSource
	generator *fakeGenerator
	imageSvc  *fakeImageService
	cms       *fakeCMS
	events    *fakeEvents
	ingestor  *Ingestor
	runner    *GenerationRunner
	publisher *AutoPublisher
}

func newPipeline(t *testing.T, site domain.Site) *pipeline {
	t.Helper()
	store, _ := newTestStore(t)
	p := &pipeline{
		store:     store,
		clock:     newTestClock(),
		feed:      &fakeItemSource{items: map[string][]domain.FeedItem{}},
		generator: &fakeGenerator{},
		imageSvc:  &fakeImageService{},
		cms:       &fakeCMS{},
		events:    &fakeEvents{},
	}
	clock := p.clock.Clock()

	monitor := NewGenerationMonitor(store.Generations, store.Items, 3, nil, clock)
	p.ingestor = NewIngestor(IngestorDeps{
		Sources:   store.Sources,
		Fetcher:   p.feed,
		Dedup:     NewDeduplicator(store.Items, nil, clock),
		Evaluator: NewRuleEvaluator(store.Rules, store.Items, monitor, nil),
		Clock:     clock,
	})
	images := NewImageAttacher(p.imageSvc, p.cms, store.Images, store.Articles, nil, clock)
	p.runner = NewGenerationRunner(GenerationRunnerDeps{
		Sources:   store.Sources,
		Articles:  store.Articles,
		Monitor:   monitor,
		Generator: p.generator,
		Images:    images,
		Events:    p.events,
		Clock:     clock,
	})
	p.publisher = NewAutoPublisher(AutoPublishDeps{
		Site:         site,
		Sources:      store.Sources,
		Articles:     store.Articles,
		Publications: store.Publications,
		Images:       images,
		CMS:          p.cms,
		Locker:       store.Locker,
		Events:       p.events,
		Clock:        clock,
	})
	return p
}

func TestPipelineIngestGeneratePublish(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, testSite)
	source := saveSource(t, p.store, domain.Source{ID: "s1", Name: "Go blog", URL: "https://go.dev/feed",
		Config: domain.SourceConfig{AutoGenerate: true, AutoPublish: true, DefaultCategory: "Tech"}})
	p.feed.items["s1"] = []domain.FeedItem{
		{GUID: "g1", URL: "https://go.dev/1", Title: "Range over func", Content: "<p>iterators</p>"},
		{GUID: "g2", URL: "https://go.dev/2", Title: "Swiss tables", Content: "<p>maps</p>"},
	}
	p.generator.responses = []string{
		`{"title":"Iterators explained","content":"## Iterators\nThey arrived.","tags":["go"]}`,
		`{"title":"Faster maps","content":"Swiss tables land","meta_description":"maps"}`,
	}

	results, err := p.ingestor.RunDue(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, SourceIngest{SourceID: "s1", Fetched: 2, Inserted: 2, Queued: 2}, results[0])

	again, err := p.ingestor.IngestSource(ctx, source)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Duplicates)
	assert.Zero(t, again.Inserted)
	assert.Zero(t, again.Queued)

	notDue, err := p.ingestor.RunDue(ctx)
	require.NoError(t, err)
	assert.Empty(t, notDue, "polling interval has not elapsed")

	genReport, err := p.runner.RunPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, GenerationReport{Started: 2, Completed: 2, Errors: []string{}}, genReport)
	require.Len(t, p.generator.requests, 2)
	assert.Equal(t, "Range over func", p.generator.requests[0].Topic)
	assert.Equal(t, "https://go.dev/feed", p.generator.requests[0].SourceURL)

	ready, err := p.store.Articles.ListByStatus(ctx, []domain.ArticleStatus{domain.ArticleReadyToPublish}, 0)
	require.NoError(t, err)
	require.Len(t, ready, 2)
	assert.Equal(t, "iterators-explained", ready[0].Slug)

	pubReport, err := p.publisher.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, AutoPublishReport{Processed: 2, Published: 2, Errors: []string{}}, pubReport)

	require.Len(t, p.cms.posts, 2)
	assert.Equal(t, "Iterators explained", p.cms.posts[0].Title, "oldest article first")
	assert.Equal(t, []string{"Tech"}, p.cms.posts[0].Categories)
	assert.Equal(t, "publish", p.cms.posts[0].Status)
	assert.Equal(t, map[string]string{"description": "maps"}, p.cms.posts[1].Meta)

	for _, article := range ready {
		stored, err := p.store.Articles.Get(ctx, article.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ArticlePublished, stored.Status)
		assert.NotZero(t, stored.CMSPostID)
		assert.NotEmpty(t, stored.CMSURL)
		require.NotNil(t, stored.PublishedAt)

		pub, err := p.store.Publications.LatestForArticle(ctx, article.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PublicationCompleted, pub.Status)
		assert.Equal(t, stored.CMSPostID, pub.CMSPostID)

		item, err := p.store.Items.Get(ctx, article.FeedItemID)
		require.NoError(t, err)
		assert.True(t, item.Processed)
		assert.Equal(t, article.ID, item.ArticleID)
	}

	assert.Equal(t, []string{
		SubjectArticleGenerated, SubjectArticleGenerated,
		SubjectArticlePublished, SubjectArticlePublished,
	}, p.events.subjects)
	assert.Equal(t, []time.Duration{defaultAutoPublishDelay}, p.clock.slept)

	empty, err := p.publisher.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.Processed)
}

func TestGenerationFailureIsRecordedAndRetried(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, testSite)
	saveSource(t, p.store, domain.Source{ID: "s1", Config: domain.SourceConfig{AutoGenerate: true}})
	p.feed.items["s1"] = []domain.FeedItem{{GUID: "g1", URL: "https://x/1", Title: "T"}}

	_, err := p.ingestor.RunDue(ctx)
	require.NoError(t, err)

	p.generator.responses = []string{"Sorry, I can't write that."}
	report, err := p.runner.RunPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)

	attempts, err := p.store.Generations.ListByStatus(ctx, domain.GenerationError, 0)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	failed := attempts[0]
	assert.Equal(t, 1, failed.RetryCount)
	assert.Equal(t, "Sorry, I can't write that.", failed.RawResponse)
	assert.Contains(t, failed.Error, "extract article")

	p.generator.responses = []string{`{"title":"Recovered","content":"Body"}`}
	retried, err := p.runner.Retry(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationCompleted, retried.Status)

	article, err := p.store.Articles.Get(ctx, retried.ArticleID)
	require.NoError(t, err)
	assert.Equal(t, domain.ArticleGenerated, article.Status, "source without autoPublish stays generated")
}

func TestGenerationProviderErrorKeepsItemUnprocessed(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, testSite)
	saveSource(t, p.store, domain.Source{ID: "s1", Config: domain.SourceConfig{AutoGenerate: true}})
	p.feed.items["s1"] = []domain.FeedItem{{GUID: "g1", URL: "https://x/1", Title: "T"}}
	_, err := p.ingestor.RunDue(ctx)
	require.NoError(t, err)

	p.generator.err = errors.New("429 too many requests")
	report, err := p.runner.RunPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	all, err := p.store.Items.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].Processed)
}
