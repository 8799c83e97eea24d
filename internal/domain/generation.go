package domain

import (
	"fmt"
	"time"
)

// GenerationStatus is the lifecycle of one generation attempt.
type GenerationStatus string

const (
	GenerationPending    GenerationStatus = "pending"
	GenerationProcessing GenerationStatus = "processing"
	GenerationCompleted  GenerationStatus = "completed"
	GenerationError      GenerationStatus = "error"
)

func (s GenerationStatus) String() string { return string(s) }

// ParseGenerationStatus rejects values outside the closed set.
func ParseGenerationStatus(v string) (GenerationStatus, error) {
	switch s := GenerationStatus(v); s {
	case GenerationPending, GenerationProcessing, GenerationCompleted, GenerationError:
		return s, nil
	default:
		return "", fmt.Errorf("generation status %q: %w", v, ErrUnknownStatus)
	}
}

// GenerationAttempt tracks turning one feed item into an article.
type GenerationAttempt struct {
	ID          string
	FeedItemID  string
	SourceID    string
	Title       string
	Content     string
	Status      GenerationStatus
	ArticleID   string
	RetryCount  int
	Error       string
	RawResponse string
	Priority    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewGenerationAttempt builds a pending attempt for item.
func NewGenerationAttempt(id string, item FeedItem, priority int, now time.Time) GenerationAttempt {
	return GenerationAttempt{
		ID:         id,
		FeedItemID: item.ID,
		SourceID:   item.SourceID,
		Title:      item.Title,
		Content:    item.Content,
		Status:     GenerationPending,
		Priority:   priority,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Start moves pending -> processing.
func (g *GenerationAttempt) Start(now time.Time) error {
	if g.Status != GenerationPending {
		return transitionErr("generation", g.ID, g.Status, GenerationProcessing, "")
	}
	g.Status = GenerationProcessing
	g.UpdatedAt = now
	return nil
}

// Complete moves processing -> completed and links the article.
func (g *GenerationAttempt) Complete(articleID string, now time.Time) error {
	if g.Status != GenerationProcessing {
		return transitionErr("generation", g.ID, g.Status, GenerationCompleted, "")
	}
	if articleID == "" {
		return transitionErr("generation", g.ID, g.Status, GenerationCompleted, "article id is empty")
	}
	g.Status = GenerationCompleted
	g.ArticleID = articleID
	g.Error = ""
	g.RawResponse = ""
	g.UpdatedAt = now
	return nil
}

// Fail moves processing -> error, counting the failure.
func (g *GenerationAttempt) Fail(cause error, raw string, now time.Time) error {
	if g.Status != GenerationProcessing {
		return transitionErr("generation", g.ID, g.Status, GenerationError, "")
	}
	g.Status = GenerationError
	g.RetryCount++
	if cause != nil {
		g.Error = cause.Error()
	}
	g.RawResponse = raw
	g.UpdatedAt = now
	return nil
}

// Retry re-enters processing from error. maxRetries <= 0 means unbounded.
func (g *GenerationAttempt) Retry(maxRetries int, now time.Time) error {
	if g.Status != GenerationError {
		return transitionErr("generation", g.ID, g.Status, GenerationProcessing, "only failed attempts can be retried")
	}
	if maxRetries > 0 && g.RetryCount >= maxRetries {
		return fmt.Errorf("generation %s after %d failures: %w", g.ID, g.RetryCount, ErrRetriesExhausted)
	}
	g.Status = GenerationProcessing
	g.UpdatedAt = now
	return nil
}
