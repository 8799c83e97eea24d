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

// GenerationMonitor drives generation attempts through their lifecycle.
// Every write is a compare-and-set on the status the transition started from.
type GenerationMonitor struct {
	generations ports.GenerationRepository
	items       ports.FeedItemRepository
	maxRetries  int
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
}

// NewGenerationMonitor builds a monitor. maxRetries <= 0 leaves retries unbounded.
func NewGenerationMonitor(generations ports.GenerationRepository, items ports.FeedItemRepository, maxRetries int, logger *slog.Logger, clock Clock) *GenerationMonitor {
	return &GenerationMonitor{
		generations: generations,
		items:       items,
		maxRetries:  maxRetries,
		logger:      componentLogger(logger, "generation-monitor"),
		now:         clock.now(),
		newID:       clock.id(),
	}
}

// Create opens a pending attempt for item. When the item already has an attempt
// the stored one is returned with created=false.
func (m *GenerationMonitor) Create(ctx context.Context, item domain.FeedItem, priority int) (domain.GenerationAttempt, bool, error) {
	attempt := domain.NewGenerationAttempt(m.newID(), item, priority, m.now())
	stored, created, err := m.generations.Create(ctx, attempt)
	if err != nil {
		return domain.GenerationAttempt{}, false, fmt.Errorf("create generation for item %s: %w", item.ID, err)
	}
	if created {
		m.logger.Debug("generation queued", "generation_id", stored.ID, "feed_item_id", item.ID, "priority", priority)
	}
	return stored, created, nil
}

// CreateFresh is Create for callers that require a new attempt; an existing one
// is reported as an invalid transition.
func (m *GenerationMonitor) CreateFresh(ctx context.Context, item domain.FeedItem, priority int) (domain.GenerationAttempt, error) {
	stored, created, err := m.Create(ctx, item, priority)
	if err != nil {
		return domain.GenerationAttempt{}, err
	}
	if !created {
		return stored, &domain.TransitionError{
			Entity: "generation", ID: stored.ID, From: stored.Status.String(), To: domain.GenerationPending.String(),
			Reason: "feed item " + item.ID + " already has a generation attempt",
		}
	}
	return stored, nil
}

// Start claims a pending attempt. Losing the race to another runner yields domain.ErrStaleState.
func (m *GenerationMonitor) Start(ctx context.Context, attempt domain.GenerationAttempt) (domain.GenerationAttempt, error) {
	if err := attempt.Start(m.now()); err != nil {
		return attempt, err
	}
	if err := m.generations.Update(ctx, attempt, domain.GenerationPending); err != nil {
		return attempt, fmt.Errorf("start generation %s: %w", attempt.ID, err)
	}
	return attempt, nil
}

// Complete links the article and marks the originating item processed.
func (m *GenerationMonitor) Complete(ctx context.Context, attempt domain.GenerationAttempt, articleID string) (domain.GenerationAttempt, error) {
	if err := attempt.Complete(articleID, m.now()); err != nil {
		return attempt, err
	}
	if err := m.generations.Update(ctx, attempt, domain.GenerationProcessing); err != nil {
		return attempt, fmt.Errorf("complete generation %s: %w", attempt.ID, err)
	}
	err := m.items.MarkProcessed(ctx, attempt.FeedItemID, articleID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		m.logger.Warn("feed item removed before generation completed", "generation_id", attempt.ID, "feed_item_id", attempt.FeedItemID)
	case err != nil:
		return attempt, fmt.Errorf("mark item %s processed: %w", attempt.FeedItemID, err)
	}
	metrics.GenerationsTotal.WithLabelValues(string(domain.GenerationCompleted)).Inc()
	m.logger.Info("generation completed", "generation_id", attempt.ID, "article_id", articleID)
	return attempt, nil
}

// Fail records cause and the raw provider text on the attempt.
func (m *GenerationMonitor) Fail(ctx context.Context, attempt domain.GenerationAttempt, cause error, raw string) (domain.GenerationAttempt, error) {
	if err := attempt.Fail(cause, raw, m.now()); err != nil {
		return attempt, err
	}
	if err := m.generations.Update(ctx, attempt, domain.GenerationProcessing); err != nil {
		return attempt, fmt.Errorf("fail generation %s: %w", attempt.ID, err)
	}
	metrics.GenerationsTotal.WithLabelValues(string(domain.GenerationError)).Inc()
	m.logger.Warn("generation failed",
		"generation_id", attempt.ID,
		"feed_item_id", attempt.FeedItemID,
		"retry_count", attempt.RetryCount,
		"error", cause)
	return attempt, nil
}

// Retry moves a failed attempt back to processing.
func (m *GenerationMonitor) Retry(ctx context.Context, id string) (domain.GenerationAttempt, error) {
	attempt, err := m.generations.Get(ctx, id)
	if err != nil {
		return domain.GenerationAttempt{}, fmt.Errorf("load generation %s: %w", id, err)
	}
	if err := attempt.Retry(m.maxRetries, m.now()); err != nil {
		return attempt, err
	}
	if err := m.generations.Update(ctx, attempt, domain.GenerationError); err != nil {
		return attempt, fmt.Errorf("retry generation %s: %w", id, err)
	}
	m.logger.Info("generation retried", "generation_id", id, "retry_count", attempt.RetryCount)
	return attempt, nil
}

// Pending lists attempts waiting for a runner.
func (m *GenerationMonitor) Pending(ctx context.Context, limit int) ([]domain.GenerationAttempt, error) {
	attempts, err := m.generations.ListByStatus(ctx, domain.GenerationPending, limit)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("list pending generations: %w", err)
	}
	return attempts, nil
}
