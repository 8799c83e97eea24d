package domain

import (
	"fmt"
	"time"
)

// PublicationStatus is the lifecycle of one publish attempt.
type PublicationStatus string

const (
	PublicationPending    PublicationStatus = "pending"
	PublicationProcessing PublicationStatus = "processing"
	PublicationCompleted  PublicationStatus = "completed"
	PublicationFailed     PublicationStatus = "failed"
	PublicationCancelled  PublicationStatus = "cancelled"
)

func (s PublicationStatus) String() string { return string(s) }

// ParsePublicationStatus rejects values outside the closed set.
func ParsePublicationStatus(v string) (PublicationStatus, error) {
	switch s := PublicationStatus(v); s {
	case PublicationPending, PublicationProcessing, PublicationCompleted, PublicationFailed, PublicationCancelled:
		return s, nil
	default:
		return "", fmt.Errorf("publication status %q: %w", v, ErrUnknownStatus)
	}
}

// Publication is one attempt to push an article to the CMS.
type Publication struct {
	ID          string
	ArticleID   string
	Status      PublicationStatus
	RetryCount  int
	MaxRetries  int
	StartedAt   *time.Time
	CompletedAt *time.Time
	Error       string
	CMSPostID   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewPublication builds a pending publication.
func NewPublication(id, articleID string, maxRetries int, now time.Time) Publication {
	return Publication{
		ID:         id,
		ArticleID:  articleID,
		Status:     PublicationPending,
		MaxRetries: maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// CanRetry reports whether Retry would succeed.
func (p Publication) CanRetry() bool {
	return p.Status == PublicationFailed && p.RetryCount < p.MaxRetries
}

// Start moves pending -> processing.
func (p *Publication) Start(now time.Time) error {
	if p.Status != PublicationPending {
		return transitionErr("publication", p.ID, p.Status, PublicationProcessing, "")
	}
	p.Status = PublicationProcessing
	p.StartedAt = &now
	p.UpdatedAt = now
	return nil
}

// Complete moves processing -> completed.
func (p *Publication) Complete(postID int64, now time.Time) error {
	if p.Status != PublicationProcessing {
		return transitionErr("publication", p.ID, p.Status, PublicationCompleted, "")
	}
	p.Status = PublicationCompleted
	p.CMSPostID = postID
	p.CompletedAt = &now
	p.Error = ""
	p.UpdatedAt = now
	return nil
}

// Fail moves pending or processing -> failed.
func (p *Publication) Fail(cause error, now time.Time) error {
	if p.Status != PublicationPending && p.Status != PublicationProcessing {
		return transitionErr("publication", p.ID, p.Status, PublicationFailed, "")
	}
	p.Status = PublicationFailed
	if cause != nil {
		p.Error = cause.Error()
	}
	p.CompletedAt = &now
	p.UpdatedAt = now
	return nil
}

// Retry resets a failed publication to pending.
func (p *Publication) Retry(now time.Time) error {
	if p.Status != PublicationFailed {
		return transitionErr("publication", p.ID, p.Status, PublicationPending, "only failed publications can be retried")
	}
	if p.RetryCount >= p.MaxRetries {
		return fmt.Errorf("publication %s after %d of %d retries: %w", p.ID, p.RetryCount, p.MaxRetries, ErrRetriesExhausted)
	}
	p.Status = PublicationPending
	p.RetryCount++
	p.StartedAt = nil
	p.CompletedAt = nil
	p.Error = ""
	p.UpdatedAt = now
	return nil
}

// Cancel is valid from every status except completed and cancelled.
func (p *Publication) Cancel(now time.Time) error {
	if p.Status == PublicationCompleted || p.Status == PublicationCancelled {
		return transitionErr("publication", p.ID, p.Status, PublicationCancelled, "")
	}
	p.Status = PublicationCancelled
	p.UpdatedAt = now
	return nil
}

// CheckDeletable allows deletion of cancelled or failed publications only.
func (p Publication) CheckDeletable() error {
	if p.Status != PublicationCancelled && p.Status != PublicationFailed {
		return &TransitionError{Entity: "publication", ID: p.ID, From: p.Status.String(), To: "deleted",
			Reason: "only cancelled or failed publications can be deleted"}
	}
	return nil
}
