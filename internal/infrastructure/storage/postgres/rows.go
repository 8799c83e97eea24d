package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"ArticlesPublisher/internal/domain"
)

type dbSource struct {
	ID            string     `db:"id"`
	UserID        string     `db:"user_id"`
	Name          string     `db:"name"`
	Kind          string     `db:"kind"`
	URL           string     `db:"url"`
	Config        []byte     `db:"config"`
	LastFetchedAt *time.Time `db:"last_fetched_at"`
	CreatedAt     time.Time  `db:"created_at"`
}

func (r dbSource) toDomain() (domain.Source, error) {
	kind, err := domain.ParseSourceKind(r.Kind)
	if err != nil {
		return domain.Source{}, err
	}
	var cfg domain.SourceConfig
	if len(r.Config) > 0 {
		if err := json.Unmarshal(r.Config, &cfg); err != nil {
			return domain.Source{}, fmt.Errorf("decode config of source %s: %w", r.ID, err)
		}
	}
	return domain.Source{
		ID:            r.ID,
		UserID:        r.UserID,
		Name:          r.Name,
		Kind:          kind,
		URL:           r.URL,
		Config:        cfg,
		LastFetchedAt: r.LastFetchedAt,
		CreatedAt:     r.CreatedAt,
	}, nil
}

var sourceColumns = []string{"id", "user_id", "name", "kind", "url", "config", "last_fetched_at", "created_at"}

type dbFeedItem struct {
	ID          string     `db:"id"`
	SourceID    string     `db:"source_id"`
	GUID        string     `db:"guid"`
	URL         string     `db:"url"`
	Title       string     `db:"title"`
	Content     string     `db:"content"`
	PublishedAt *time.Time `db:"published_at"`
	FetchedAt   time.Time  `db:"fetched_at"`
	CreatedAt   time.Time  `db:"created_at"`
	Processed   bool       `db:"processed"`
	ArticleID   string     `db:"article_id"`
}

func (r dbFeedItem) toDomain() domain.FeedItem {
	return domain.FeedItem(r)
}

var feedItemColumns = []string{"id", "source_id", "guid", "url", "title", "content", "published_at", "fetched_at", "created_at", "processed", "article_id"}

type dbGeneration struct {
	ID          string    `db:"id"`
	FeedItemID  string    `db:"feed_item_id"`
	SourceID    string    `db:"source_id"`
	Title       string    `db:"title"`
	Content     string    `db:"content"`
	Status      string    `db:"status"`
	ArticleID   string    `db:"article_id"`
	RetryCount  int       `db:"retry_count"`
	Error       string    `db:"error"`
	RawResponse string    `db:"raw_response"`
	Priority    int       `db:"priority"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r dbGeneration) toDomain() (domain.GenerationAttempt, error) {
	status, err := domain.ParseGenerationStatus(r.Status)
	if err != nil {
		return domain.GenerationAttempt{}, err
	}
	return domain.GenerationAttempt{
		ID:          r.ID,
		FeedItemID:  r.FeedItemID,
		SourceID:    r.SourceID,
		Title:       r.Title,
		Content:     r.Content,
		Status:      status,
		ArticleID:   r.ArticleID,
		RetryCount:  r.RetryCount,
		Error:       r.Error,
		RawResponse: r.RawResponse,
		Priority:    r.Priority,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

var generationColumns = []string{"id", "feed_item_id", "source_id", "title", "content", "status", "article_id", "retry_count", "error", "raw_response", "priority", "created_at", "updated_at"}

type dbArticle struct {
	ID               string         `db:"id"`
	SourceID         string         `db:"source_id"`
	FeedItemID       string         `db:"feed_item_id"`
	Title            string         `db:"title"`
	Slug             string         `db:"slug"`
	Content          string         `db:"content"`
	Excerpt          string         `db:"excerpt"`
	MetaDescription  string         `db:"meta_description"`
	Tags             pq.StringArray `db:"tags"`
	Categories       pq.StringArray `db:"categories"`
	Status           string         `db:"status"`
	FeaturedMediaID  int64          `db:"featured_media_id"`
	FeaturedImageURL string         `db:"featured_image_url"`
	CMSPostID        int64          `db:"cms_post_id"`
	CMSURL           string         `db:"cms_url"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
	PublishedAt      *time.Time     `db:"published_at"`
}

func (r dbArticle) toDomain() (domain.Article, error) {
	status, err := domain.ParseArticleStatus(r.Status)
	if err != nil {
		return domain.Article{}, err
	}
	return domain.Article{
		ID:               r.ID,
		SourceID:         r.SourceID,
		FeedItemID:       r.FeedItemID,
		Title:            r.Title,
		Slug:             r.Slug,
		Content:          r.Content,
		Excerpt:          r.Excerpt,
		MetaDescription:  r.MetaDescription,
		Tags:             []string(r.Tags),
		Categories:       []string(r.Categories),
		Status:           status,
		FeaturedMediaID:  r.FeaturedMediaID,
		FeaturedImageURL: r.FeaturedImageURL,
		CMSPostID:        r.CMSPostID,
		CMSURL:           r.CMSURL,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		PublishedAt:      r.PublishedAt,
	}, nil
}

var articleColumns = []string{"id", "source_id", "feed_item_id", "title", "slug", "content", "excerpt", "meta_description", "tags", "categories", "status", "featured_media_id", "featured_image_url", "cms_post_id", "cms_url", "created_at", "updated_at", "published_at"}

type dbImage struct {
	ID               string    `db:"id"`
	ArticleID        string    `db:"article_id"`
	AIPrompt         string    `db:"ai_prompt"`
	Filename         string    `db:"filename"`
	AltText          string    `db:"alt_text"`
	URL              string    `db:"url"`
	Status           string    `db:"status"`
	WordPressMediaID int64     `db:"wordpress_media_id"`
	WordPressURL     string    `db:"wordpress_url"`
	Error            string    `db:"error"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r dbImage) toDomain() (domain.FeaturedImage, error) {
	status, err := domain.ParseImageStatus(r.Status)
	if err != nil {
		return domain.FeaturedImage{}, err
	}
	return domain.FeaturedImage{
		ID:               r.ID,
		ArticleID:        r.ArticleID,
		AIPrompt:         r.AIPrompt,
		Filename:         r.Filename,
		AltText:          r.AltText,
		URL:              r.URL,
		Status:           status,
		WordPressMediaID: r.WordPressMediaID,
		WordPressURL:     r.WordPressURL,
		Error:            r.Error,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}, nil
}

var imageColumns = []string{"id", "article_id", "ai_prompt", "filename", "alt_text", "url", "status", "wordpress_media_id", "wordpress_url", "error", "created_at", "updated_at"}

type dbPublication struct {
	ID          string     `db:"id"`
	ArticleID   string     `db:"article_id"`
	Status      string     `db:"status"`
	RetryCount  int        `db:"retry_count"`
	MaxRetries  int        `db:"max_retries"`
	StartedAt   *time.Time `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
	Error       string     `db:"error"`
	CMSPostID   int64      `db:"cms_post_id"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (r dbPublication) toDomain() (domain.Publication, error) {
	status, err := domain.ParsePublicationStatus(r.Status)
	if err != nil {
		return domain.Publication{}, err
	}
	return domain.Publication{
		ID:          r.ID,
		ArticleID:   r.ArticleID,
		Status:      status,
		RetryCount:  r.RetryCount,
		MaxRetries:  r.MaxRetries,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		Error:       r.Error,
		CMSPostID:   r.CMSPostID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

var publicationColumns = []string{"id", "article_id", "status", "retry_count", "max_retries", "started_at", "completed_at", "error", "cms_post_id", "created_at", "updated_at"}

type dbRule struct {
	ID         string `db:"id"`
	SourceID   string `db:"source_id"`
	Name       string `db:"name"`
	Enabled    bool   `db:"enabled"`
	Conditions []byte `db:"conditions"`
	Actions    []byte `db:"actions"`
}

func (r dbRule) toDomain() (domain.AutomationRule, error) {
	rule := domain.AutomationRule{ID: r.ID, SourceID: r.SourceID, Name: r.Name, Enabled: r.Enabled}
	if err := json.Unmarshal(r.Conditions, &rule.Conditions); err != nil {
		return domain.AutomationRule{}, fmt.Errorf("decode conditions of rule %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(r.Actions, &rule.Actions); err != nil {
		return domain.AutomationRule{}, fmt.Errorf("decode actions of rule %s: %w", r.ID, err)
	}
	return rule, nil
}

var ruleColumns = []string{"id", "source_id", "name", "enabled", "conditions", "actions"}

// mapRows converts rows with a fallible mapper, stopping at the first error.
func mapRows[R, D any](rows []R, convert func(R) (D, error)) ([]D, error) {
	out := make([]D, 0, len(rows))
	for _, row := range rows {
		d, err := convert(row)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
