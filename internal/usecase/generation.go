package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ArticlesPublisher/internal/content"
	"ArticlesPublisher/internal/domain"
	"ArticlesPublisher/internal/metrics"
	"ArticlesPublisher/internal/ports"
)

const defaultGenerationBatch = 5

// Event subjects published by the pipeline.
const (
	SubjectArticleGenerated  = "articles.generated"
	SubjectArticlePublished  = "articles.published"
	SubjectPublicationFailed = "publications.failed"
)

// GenerationRunnerDeps wires the generation stage.
type GenerationRunnerDeps struct {
	Sources   ports.SourceRepository
	Articles  ports.ArticleRepository
	Monitor   *GenerationMonitor
	Generator ports.Generator
	// Images is optional; without it sources with attachImage skip the image step.
	Images    *ImageAttacher
	Events    ports.EventPublisher
	BatchSize int
	Logger    *slog.Logger
	Clock     Clock
}

// GenerationRunner turns pending attempts into articles.
type GenerationRunner struct {
	sources   ports.SourceRepository
	articles  ports.ArticleRepository
	monitor   *GenerationMonitor
	generator ports.Generator
	images    *ImageAttacher
	events    ports.EventPublisher
	batchSize int
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// NewGenerationRunner constructs the runner.
func NewGenerationRunner(deps GenerationRunnerDeps) *GenerationRunner {
	batch := deps.BatchSize
	if batch <= 0 {
		batch = defaultGenerationBatch
	}
	return &GenerationRunner{
		sources:   deps.Sources,
		articles:  deps.Articles,
		monitor:   deps.Monitor,
		generator: deps.Generator,
		images:    deps.Images,
		events:    deps.Events,
		batchSize: batch,
		logger:    componentLogger(deps.Logger, "generation"),
		now:       deps.Clock.now(),
		newID:     deps.Clock.id(),
	}
}

// GenerationReport summarises one RunPending call.
type GenerationReport struct {
	Started   int      `json:"started"`
	Completed int      `json:"completed"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
}

// RunPending claims and processes up to one batch of pending attempts.
// Attempts claimed by a concurrent runner are skipped.
func (r *GenerationRunner) RunPending(ctx context.Context) (GenerationReport, error) {
	report := GenerationReport{Errors: []string{}}

	pending, err := r.monitor.Pending(ctx, r.batchSize)
	if err != nil {
		return report, err
	}

	for _, attempt := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		attempt, err = r.monitor.Start(ctx, attempt)
		if errors.Is(err, domain.ErrStaleState) || errors.Is(err, domain.ErrInvalidTransition) {
			r.logger.Debug("generation claimed elsewhere", "generation_id", attempt.ID)
			continue
		}
		if err != nil {
			return report, err
		}
		report.Started++

		if _, err := r.process(ctx, attempt); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("generation %s: %v", attempt.ID, err))
			continue
		}
		report.Completed++
	}
	return report, nil
}

// Retry re-runs a failed attempt immediately.
func (r *GenerationRunner) Retry(ctx context.Context, id string) (domain.GenerationAttempt, error) {
	attempt, err := r.monitor.Retry(ctx, id)
	if err != nil {
		return attempt, err
	}
	return r.process(ctx, attempt)
}

// process runs a processing attempt to completed or error. The returned error
// is the generation failure; it is already recorded on the attempt.
func (r *GenerationRunner) process(ctx context.Context, attempt domain.GenerationAttempt) (domain.GenerationAttempt, error) {
	logger := r.logger.With("generation_id", attempt.ID, "feed_item_id", attempt.FeedItemID)

	source, err := r.sources.Get(ctx, attempt.SourceID)
	if err != nil {
		return r.fail(ctx, attempt, fmt.Errorf("load source %s: %w", attempt.SourceID, err), "")
	}

	started := time.Now()
	raw, err := r.generator.Generate(ctx, buildGenerationRequest(attempt, source))
	metrics.GenerationDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		return r.fail(ctx, attempt, fmt.Errorf("generate: %w", err), raw)
	}

	parsed, err := ParseGeneratedArticle(raw)
	if err != nil {
		if errors.Is(err, domain.ErrTruncatedUnrepairable) {
			metrics.JSONRepairsTotal.WithLabelValues("unrepairable").Inc()
		}
		return r.fail(ctx, attempt, fmt.Errorf("extract article: %w", err), raw)
	}
	metrics.JSONRepairsTotal.WithLabelValues("ok").Inc()

	article, err := r.buildArticle(attempt, parsed)
	if err != nil {
		return r.fail(ctx, attempt, err, raw)
	}
	if err := r.articles.Create(ctx, article); err != nil {
		return r.fail(ctx, attempt, fmt.Errorf("create article: %w", err), raw)
	}

	attempt, err = r.monitor.Complete(ctx, attempt, article.ID)
	if err != nil {
		return attempt, err
	}

	article, err = r.advance(ctx, source, article)
	if err != nil {
		logger.Error("article left in generated state", "article_id", article.ID, "error", err)
	}

	r.publishEvent(ctx, SubjectArticleGenerated, map[string]any{
		"articleId":    article.ID,
		"generationId": attempt.ID,
		"sourceId":     article.SourceID,
		"title":        article.Title,
		"status":       article.Status,
	})
	logger.Info("article generated", "article_id", article.ID, "status", article.Status)
	return attempt, nil
}

func (r *GenerationRunner) fail(ctx context.Context, attempt domain.GenerationAttempt, cause error, raw string) (domain.GenerationAttempt, error) {
	attempt, err := r.monitor.Fail(ctx, attempt, cause, raw)
	if err != nil {
		return attempt, errors.Join(cause, err)
	}
	return attempt, cause
}

func (r *GenerationRunner) buildArticle(attempt domain.GenerationAttempt, parsed GeneratedArticle) (domain.Article, error) {
	body, err := content.ToHTML(parsed.Content)
	if err != nil {
		return domain.Article{}, err
	}
	slug := Slugify(parsed.Slug)
	if slug == "" {
		slug = Slugify(parsed.Title)
	}
	excerpt := content.Excerpt(body, content.DefaultExcerptWords)
	meta := parsed.MetaDescription
	if meta == "" {
		meta = content.Excerpt(body, 25)
	}

	now := r.now()
	article := domain.Article{
		ID:              r.newID(),
		SourceID:        attempt.SourceID,
		FeedItemID:      attempt.FeedItemID,
		Title:           parsed.Title,
		Slug:            slug,
		Content:         body,
		Excerpt:         excerpt,
		MetaDescription: meta,
		Tags:            parsed.Tags,
		Status:          domain.ArticleDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := article.TransitionTo(domain.ArticleGenerated, now); err != nil {
		return domain.Article{}, err
	}
	return article, nil
}

// advance applies the source policy after generation: image attachment, or
// straight to ready_to_publish for auto-published sources.
func (r *GenerationRunner) advance(ctx context.Context, source domain.Source, article domain.Article) (domain.Article, error) {
	if source.Config.AttachImage && r.images != nil {
		return r.images.Prepare(ctx, article)
	}
	if !source.Config.AutoPublish {
		return article, nil
	}
	if err := article.TransitionTo(domain.ArticleReadyToPublish, r.now()); err != nil {
		return article, err
	}
	if err := r.articles.Update(ctx, article, domain.ArticleGenerated); err != nil {
		return article, fmt.Errorf("mark article %s ready: %w", article.ID, err)
	}
	return article, nil
}

func (r *GenerationRunner) publishEvent(ctx context.Context, subject string, payload any) {
	if r.events == nil {
		return
	}
	if err := r.events.Publish(ctx, subject, payload); err != nil {
		r.logger.Warn("publish event failed", "subject", subject, "error", err)
	}
}

func buildGenerationRequest(attempt domain.GenerationAttempt, source domain.Source) ports.GenerationRequest {
	return ports.GenerationRequest{
		Topic:           attempt.Title,
		SourceContent:   content.ToMarkdown(attempt.Content),
		SourceURL:       source.URL,
		TargetWordCount: source.Config.TargetWordCount,
		Tone:            source.Config.Tone,
		Style:           source.Config.Style,
		Keywords:        source.Config.Keywords,
	}
}
