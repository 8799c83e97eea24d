package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ArticlesPublisher/internal/domain"
	"ArticlesPublisher/internal/metrics"
	"ArticlesPublisher/internal/ports"
)

const (
	// AutoPublishLock is the advisory lock name held for a whole run.
	AutoPublishLock = "autopublish"

	defaultAutoPublishBatch = 10
	defaultAutoPublishDelay = 2 * time.Second
	defaultMaxRetries       = 3
)

var errPublicationInFlight = errors.New("publication already in flight")

// AutoPublishDeps wires the auto-publish scheduler.
type AutoPublishDeps struct {
	Site         domain.Site
	Sources      ports.SourceRepository
	Articles     ports.ArticleRepository
	Publications ports.PublicationRepository
	Images       *ImageAttacher
	CMS          ports.CMS
	Locker       ports.Locker
	Events       ports.EventPublisher
	BatchSize    int
	Delay        time.Duration
	MaxRetries   int
	Logger       *slog.Logger
	Clock        Clock
}

// AutoPublisher publishes ready articles in small sequential batches.
type AutoPublisher struct {
	site         domain.Site
	sources      ports.SourceRepository
	articles     ports.ArticleRepository
	publications ports.PublicationRepository
	images       *ImageAttacher
	cms          ports.CMS
	locker       ports.Locker
	events       ports.EventPublisher
	batchSize    int
	delay        time.Duration
	maxRetries   int
	logger       *slog.Logger
	now          func() time.Time
	newID        func() string
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewAutoPublisher applies defaults: batch 10, delay 2s, 3 retries.
func NewAutoPublisher(deps AutoPublishDeps) *AutoPublisher {
	p := &AutoPublisher{
		site:         deps.Site,
		sources:      deps.Sources,
		articles:     deps.Articles,
		publications: deps.Publications,
		images:       deps.Images,
		cms:          deps.CMS,
		locker:       deps.Locker,
		events:       deps.Events,
		batchSize:    deps.BatchSize,
		delay:        deps.Delay,
		maxRetries:   deps.MaxRetries,
		logger:       componentLogger(deps.Logger, "autopublish"),
		now:          deps.Clock.now(),
		newID:        deps.Clock.id(),
		sleep:        deps.Clock.sleep(),
	}
	if p.batchSize <= 0 {
		p.batchSize = defaultAutoPublishBatch
	}
	switch {
	case p.delay == 0:
		p.delay = defaultAutoPublishDelay
	case p.delay < 0:
		p.delay = 0
	}
	if p.maxRetries <= 0 {
		p.maxRetries = defaultMaxRetries
	}
	return p
}

// AutoPublishReport is returned by every run, including partial failures.
type AutoPublishReport struct {
	Processed int      `json:"processed"`
	Published int      `json:"published"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
	// Blocked counts failed articles whose publication is exhausted or in flight.
	Blocked int `json:"blocked"`
	// Skipped is set when the site disables auto-publish or another run holds the lock.
	Skipped bool `json:"skipped"`
}

// Run executes one scheduler pass. An error means the pass could not run at
// all; per-article failures are reported in the result.
func (p *AutoPublisher) Run(ctx context.Context) (AutoPublishReport, error) {
	report := AutoPublishReport{Errors: []string{}}

	if !p.site.AutoPublish {
		p.logger.Debug("auto-publish disabled for site", "site", p.site.Name)
		report.Skipped = true
		return report, nil
	}

	if p.locker != nil {
		unlock, acquired, err := p.locker.TryLock(ctx, AutoPublishLock)
		if err != nil {
			return report, fmt.Errorf("acquire %s lock: %w", AutoPublishLock, err)
		}
		if !acquired {
			p.logger.Info("another auto-publish run is active")
			report.Skipped = true
			return report, nil
		}
		defer unlock()
	}

	// Every publishable article is a candidate; blocked ones do not take a batch slot.
	articles, err := p.articles.ListByStatus(ctx, domain.PublishableStatuses(), 0)
	if err != nil {
		return report, fmt.Errorf("select publishable articles: %w", err)
	}

	attempted := 0
	for _, article := range articles {
		if attempted == p.batchSize {
			break
		}
		pub, done, err := p.acquirePublication(ctx, article)
		if blocked(err) {
			report.Processed++
			report.Failed++
			report.Blocked++
			report.Errors = append(report.Errors, fmt.Sprintf("article %s: %v", article.ID, err))
			p.logger.Debug("article blocked", "article_id", article.ID, "error", err)
			continue
		}

		if attempted > 0 {
			if err := p.sleep(ctx, p.delay); err != nil {
				return report, err
			}
		}
		attempted++
		report.Processed++
		if err == nil && !done {
			err = p.publishOne(ctx, article, pub)
		}
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("article %s: %v", article.ID, err))
			p.logger.Warn("article not published", "article_id", article.ID, "error", err)
			continue
		}
		report.Published++
	}

	p.logger.Info("auto-publish finished",
		"processed", report.Processed,
		"published", report.Published,
		"failed", report.Failed,
		"blocked", report.Blocked)
	return report, nil
}

// blocked reports articles no run can move without an operator: an exhausted
// publication or one still in flight.
func blocked(err error) bool {
	return errors.Is(err, domain.ErrRetriesExhausted) || errors.Is(err, errPublicationInFlight)
}

func (p *AutoPublisher) publishOne(ctx context.Context, article domain.Article, pub domain.Publication) error {
	if err := pub.Start(p.now()); err != nil {
		return err
	}
	if err := p.publications.Update(ctx, pub, domain.PublicationPending); err != nil {
		return fmt.Errorf("start publication %s: %w", pub.ID, err)
	}

	result, err := p.createPost(ctx, &article)
	if err != nil {
		return p.failPublication(ctx, pub, err)
	}

	if err := pub.Complete(result.ID, p.now()); err != nil {
		return err
	}
	if err := p.publications.Update(ctx, pub, domain.PublicationProcessing); err != nil {
		return fmt.Errorf("complete publication %s: %w", pub.ID, err)
	}
	metrics.PublicationsTotal.WithLabelValues(string(domain.PublicationCompleted)).Inc()

	if err := p.markPublished(ctx, article, pub, result.URL); err != nil {
		return err
	}
	p.publishEvent(ctx, SubjectArticlePublished, map[string]any{
		"articleId":     article.ID,
		"publicationId": pub.ID,
		"cmsPostId":     result.ID,
		"cmsUrl":        result.URL,
	})
	return nil
}

// createPost sends the article to the CMS once. A post id already recorded on
// the article is reused.
func (p *AutoPublisher) createPost(ctx context.Context, article *domain.Article) (ports.PostResult, error) {
	if article.CMSPostID != 0 {
		p.logger.Warn("article already posted, completing publication", "article_id", article.ID, "cms_post_id", article.CMSPostID)
		return ports.PostResult{ID: article.CMSPostID, URL: article.CMSURL}, nil
	}

	post := p.buildPost(ctx, article)
	result, err := p.cms.CreatePost(ctx, post)
	if err != nil {
		return result, err
	}

	from := article.Status
	article.RecordPost(result.ID, result.URL, p.now())
	if err := p.articles.Update(ctx, *article, from); err != nil {
		p.logger.Error("post created but not recorded on article",
			"article_id", article.ID, "cms_post_id", result.ID, "error", err)
	}
	return result, nil
}

// acquirePublication picks the publication to drive for article. done is true
// when an earlier completed publication only had to be recorded on the article.
func (p *AutoPublisher) acquirePublication(ctx context.Context, article domain.Article) (pub domain.Publication, done bool, err error) {
	latest, err := p.publications.LatestForArticle(ctx, article.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return p.newPublication(ctx, article)
	case err != nil:
		return pub, false, fmt.Errorf("load publications: %w", err)
	}

	switch latest.Status {
	case domain.PublicationPending:
		return latest, false, nil
	case domain.PublicationFailed:
		if !latest.CanRetry() {
			return latest, false, fmt.Errorf("publication %s exhausted after %d retries: %w", latest.ID, latest.RetryCount, domain.ErrRetriesExhausted)
		}
		if err := latest.Retry(p.now()); err != nil {
			return latest, false, err
		}
		if err := p.publications.Update(ctx, latest, domain.PublicationFailed); err != nil {
			return latest, false, fmt.Errorf("retry publication %s: %w", latest.ID, err)
		}
		return latest, false, nil
	case domain.PublicationProcessing:
		return latest, false, fmt.Errorf("publication %s: %w", latest.ID, errPublicationInFlight)
	case domain.PublicationCompleted:
		p.logger.Warn("article has a completed publication, recording it", "article_id", article.ID, "publication_id", latest.ID)
		return latest, true, p.markPublished(ctx, article, latest, article.CMSURL)
	default:
		return p.newPublication(ctx, article)
	}
}

func (p *AutoPublisher) newPublication(ctx context.Context, article domain.Article) (domain.Publication, bool, error) {
	pub := domain.NewPublication(p.newID(), article.ID, p.maxRetries, p.now())
	if err := p.publications.Create(ctx, pub); err != nil {
		return pub, false, fmt.Errorf("create publication: %w", err)
	}
	return pub, false, nil
}

// buildPost resolves image and categories. Image problems never block the post.
func (p *AutoPublisher) buildPost(ctx context.Context, article *domain.Article) ports.Post {
	if p.images != nil {
		image, ok, err := p.images.EnsureUploaded(ctx, article.ID)
		switch {
		case err != nil:
			p.logger.Warn("publishing without featured image", "article_id", article.ID, "error", err)
		case ok:
			article.FeaturedMediaID = image.WordPressMediaID
			article.FeaturedImageURL = image.WordPressURL
		}
	}

	var sourceCategory string
	if source, err := p.sources.Get(ctx, article.SourceID); err == nil {
		sourceCategory = source.Config.DefaultCategory
	} else {
		p.logger.Warn("source not loaded, using site category", "article_id", article.ID, "source_id", article.SourceID, "error", err)
	}
	article.Categories = domain.ResolveCategories(sourceCategory, p.site.DefaultCategory)

	post := ports.Post{
		Title:         article.Title,
		Content:       article.Content,
		Excerpt:       article.Excerpt,
		Slug:          article.Slug,
		Status:        p.site.PostStatus,
		Categories:    article.Categories,
		Tags:          article.Tags,
		FeaturedMedia: article.FeaturedMediaID,
	}
	if article.MetaDescription != "" {
		post.Meta = map[string]string{"description": article.MetaDescription}
	}
	return post
}

func (p *AutoPublisher) failPublication(ctx context.Context, pub domain.Publication, cause error) error {
	metrics.PublicationsTotal.WithLabelValues(string(domain.PublicationFailed)).Inc()
	if err := pub.Fail(cause, p.now()); err != nil {
		return errors.Join(cause, err)
	}
	if err := p.publications.Update(ctx, pub, domain.PublicationProcessing); err != nil {
		return errors.Join(cause, fmt.Errorf("record publication %s failure: %w", pub.ID, err))
	}
	p.publishEvent(ctx, SubjectPublicationFailed, map[string]any{
		"articleId":     pub.ArticleID,
		"publicationId": pub.ID,
		"retryCount":    pub.RetryCount,
		"error":         pub.Error,
	})
	return cause
}

func (p *AutoPublisher) markPublished(ctx context.Context, article domain.Article, pub domain.Publication, url string) error {
	from := article.Status
	if err := article.MarkPublished(pub, pub.CMSPostID, url, p.now()); err != nil {
		return err
	}
	if err := p.articles.Update(ctx, article, from); err != nil {
		return fmt.Errorf("mark article %s published: %w", article.ID, err)
	}
	return nil
}

func (p *AutoPublisher) publishEvent(ctx context.Context, subject string, payload any) {
	if p.events == nil {
		return
	}
	if err := p.events.Publish(ctx, subject, payload); err != nil {
		p.logger.Warn("publish event failed", "subject", subject, "error", err)
	}
}
