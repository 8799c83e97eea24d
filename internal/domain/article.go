package domain

import (
	"fmt"
	"time"
)

// ArticleStatus is the article lifecycle from draft to published.
type ArticleStatus string

const (
	ArticleDraft               ArticleStatus = "draft"
	ArticleGenerated           ArticleStatus = "generated"
	ArticleGeneratedImageDraft ArticleStatus = "generated_image_draft"
	ArticleGeneratedWithImage  ArticleStatus = "generated_with_image"
	ArticleReadyToPublish      ArticleStatus = "ready_to_publish"
	ArticlePublished           ArticleStatus = "published"
	ArticleArchived            ArticleStatus = "archived"
)

func (s ArticleStatus) String() string { return string(s) }

// ParseArticleStatus rejects values outside the closed set.
func ParseArticleStatus(v string) (ArticleStatus, error) {
	s := ArticleStatus(v)
	if _, ok := articleTransitions[s]; !ok {
		return "", fmt.Errorf("article status %q: %w", v, ErrUnknownStatus)
	}
	return s, nil
}

// archived is reachable from every non-terminal state and handled in CanTransition.
var articleTransitions = map[ArticleStatus][]ArticleStatus{
	ArticleDraft:               {ArticleGenerated},
	ArticleGenerated:           {ArticleGeneratedImageDraft, ArticleReadyToPublish},
	ArticleGeneratedImageDraft: {ArticleGeneratedWithImage, ArticleReadyToPublish},
	ArticleGeneratedWithImage:  {ArticleReadyToPublish, ArticlePublished},
	ArticleReadyToPublish:      {ArticlePublished},
	ArticlePublished:           nil,
	ArticleArchived:            nil,
}

// Terminal reports whether no further transitions exist.
func (s ArticleStatus) Terminal() bool {
	return s == ArticlePublished || s == ArticleArchived
}

// Publishable reports whether the auto-publish scheduler may pick the article.
func (s ArticleStatus) Publishable() bool {
	return s == ArticleReadyToPublish || s == ArticleGeneratedWithImage
}

// PublishableStatuses lists the scheduler input states.
func PublishableStatuses() []ArticleStatus {
	return []ArticleStatus{ArticleReadyToPublish, ArticleGeneratedWithImage}
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to ArticleStatus) bool {
	if to == ArticleArchived {
		return !from.Terminal()
	}
	for _, next := range articleTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Article is a generated piece of content on its way to the CMS.
type Article struct {
	ID               string
	SourceID         string
	FeedItemID       string
	Title            string
	Slug             string
	Content          string
	Excerpt          string
	MetaDescription  string
	Tags             []string
	Categories       []string
	Status           ArticleStatus
	FeaturedMediaID  int64
	FeaturedImageURL string
	CMSPostID        int64
	CMSURL           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	PublishedAt      *time.Time
}

// TransitionTo applies a status change. Use MarkPublished for the published state.
func (a *Article) TransitionTo(to ArticleStatus, now time.Time) error {
	if to == ArticlePublished {
		return transitionErr("article", a.ID, a.Status, to, "requires a completed publication")
	}
	return a.transition(to, now)
}

// MarkPublished records a completed publication on the article.
func (a *Article) MarkPublished(pub Publication, postID int64, url string, now time.Time) error {
	if pub.ArticleID != a.ID || pub.Status != PublicationCompleted {
		return transitionErr("article", a.ID, a.Status, ArticlePublished, "publication is not completed")
	}
	if err := a.transition(ArticlePublished, now); err != nil {
		return err
	}
	a.CMSPostID = postID
	a.CMSURL = url
	a.PublishedAt = &now
	return nil
}

// RecordPost stores the CMS post of an article before its publication is
// completed, so a later run can finish it without posting again.
func (a *Article) RecordPost(postID int64, url string, now time.Time) {
	a.CMSPostID = postID
	a.CMSURL = url
	a.UpdatedAt = now
}

func (a *Article) transition(to ArticleStatus, now time.Time) error {
	if !CanTransition(a.Status, to) {
		return transitionErr("article", a.ID, a.Status, to, "")
	}
	a.Status = to
	a.UpdatedAt = now
	return nil
}
