package api

import (
	"time"

	"ArticlesPublisher/internal/domain"
)

type publicationView struct {
	ID          string     `json:"id"`
	ArticleID   string     `json:"articleId"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retryCount"`
	MaxRetries  int        `json:"maxRetries"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
	CMSPostID   int64      `json:"cmsPostId,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func newPublicationView(p domain.Publication) publicationView {
	return publicationView{
		ID:          p.ID,
		ArticleID:   p.ArticleID,
		Status:      p.Status.String(),
		RetryCount:  p.RetryCount,
		MaxRetries:  p.MaxRetries,
		StartedAt:   p.StartedAt,
		CompletedAt: p.CompletedAt,
		Error:       p.Error,
		CMSPostID:   p.CMSPostID,
		UpdatedAt:   p.UpdatedAt,
	}
}

type generationView struct {
	ID         string    `json:"id"`
	FeedItemID string    `json:"feedItemId"`
	SourceID   string    `json:"sourceId"`
	Status     string    `json:"status"`
	ArticleID  string    `json:"articleId,omitempty"`
	RetryCount int       `json:"retryCount"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func newGenerationView(a domain.GenerationAttempt) generationView {
	return generationView{
		ID:         a.ID,
		FeedItemID: a.FeedItemID,
		SourceID:   a.SourceID,
		Status:     string(a.Status),
		ArticleID:  a.ArticleID,
		RetryCount: a.RetryCount,
		Error:      a.Error,
		UpdatedAt:  a.UpdatedAt,
	}
}
