package ports

import (
	"context"
	"time"

	"ArticlesPublisher/internal/domain"
)

// SourceRepository persists content sources.
type SourceRepository interface {
	Get(ctx context.Context, id string) (domain.Source, error)
	List(ctx context.Context) ([]domain.Source, error)
	// Save inserts or updates by id.
	Save(ctx context.Context, source *domain.Source) error
	MarkFetched(ctx context.Context, id string, at time.Time) error
	// Delete removes the source together with its items, attempts and rules.
	Delete(ctx context.Context, id string) error
}

// FeedItemRepository persists ingested items.
type FeedItemRepository interface {
	// FindExisting returns stored items of the source matching any of the urls or guids.
	FindExisting(ctx context.Context, sourceID string, urls, guids []string) ([]domain.FeedItem, error)
	// Insert returns domain.ErrDuplicateIngestion on a uniqueness violation.
	Insert(ctx context.Context, item *domain.FeedItem) error
	Get(ctx context.Context, id string) (domain.FeedItem, error)
	// ListAll returns every stored item; used by reconciliation.
	ListAll(ctx context.Context) ([]domain.FeedItem, error)
	Delete(ctx context.Context, ids []string) (int, error)
	MarkProcessed(ctx context.Context, id, articleID string) error
}

// GenerationRepository persists generation attempts.
type GenerationRepository interface {
	// Create inserts attempt unless one exists for its feed item; the stored record
	// and whether it was created are returned.
	Create(ctx context.Context, attempt domain.GenerationAttempt) (domain.GenerationAttempt, bool, error)
	Get(ctx context.Context, id string) (domain.GenerationAttempt, error)
	GetByFeedItem(ctx context.Context, feedItemID string) (domain.GenerationAttempt, error)
	// ListByStatus orders by priority desc, then oldest first.
	ListByStatus(ctx context.Context, status domain.GenerationStatus, limit int) ([]domain.GenerationAttempt, error)
	// Update writes attempt only if the stored status still equals expected,
	// otherwise domain.ErrStaleState.
	Update(ctx context.Context, attempt domain.GenerationAttempt, expected domain.GenerationStatus) error
}

// ArticleRepository persists articles.
type ArticleRepository interface {
	Create(ctx context.Context, article domain.Article) error
	Get(ctx context.Context, id string) (domain.Article, error)
	// ListByStatus returns oldest-created first.
	ListByStatus(ctx context.Context, statuses []domain.ArticleStatus, limit int) ([]domain.Article, error)
	Update(ctx context.Context, article domain.Article, expected domain.ArticleStatus) error
}

// ImageRepository persists featured images, one per article.
type ImageRepository interface {
	Save(ctx context.Context, image domain.FeaturedImage) error
	GetByArticle(ctx context.Context, articleID string) (domain.FeaturedImage, error)
}

// PublicationRepository persists publish attempts.
type PublicationRepository interface {
	Create(ctx context.Context, pub domain.Publication) error
	Get(ctx context.Context, id string) (domain.Publication, error)
	// LatestForArticle returns the most recently created publication of the article.
	LatestForArticle(ctx context.Context, articleID string) (domain.Publication, error)
	Update(ctx context.Context, pub domain.Publication, expected domain.PublicationStatus) error
	Delete(ctx context.Context, id string) error
}

// RuleRepository persists automation rules keyed by source.
type RuleRepository interface {
	ListBySource(ctx context.Context, sourceID string) ([]domain.AutomationRule, error)
	Save(ctx context.Context, rule domain.AutomationRule) error
	Delete(ctx context.Context, id string) error
}

// Locker provides advisory locks shared by overlapping runs.
type Locker interface {
	// TryLock returns acquired=false without blocking when another holder exists.
	TryLock(ctx context.Context, name string) (unlock func(), acquired bool, err error)
}

// Store bundles the repositories of one storage backend.
type Store struct {
	Sources      SourceRepository
	Items        FeedItemRepository
	Generations  GenerationRepository
	Articles     ArticleRepository
	Images       ImageRepository
	Publications PublicationRepository
	Rules        RuleRepository
	Locker       Locker
	Close        func() error
}

// ItemSource pulls fresh items for one source from upstream.
type ItemSource interface {
	Fetch(ctx context.Context, source domain.Source) ([]domain.FeedItem, error)
}

// GenerationRequest is what the generation service receives.
type GenerationRequest struct {
	Topic           string
	SourceContent   string
	SourceURL       string
	TargetWordCount int
	Tone            string
	Style           string
	Keywords        []string
}

// Generator produces raw structured text for an article; the text may be truncated.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// ImageRequest asks the image service for a featured image.
type ImageRequest struct {
	ArticleID string `json:"articleId"`
	AIPrompt  string `json:"aiPrompt"`
	Filename  string `json:"filename"`
	AltText   string `json:"altText"`
}

// ImageResult is the image service answer.
type ImageResult struct {
	URL          string
	Filename     string
	AltText      string
	Status       string
	WasGenerated bool
	Provider     string
}

// ImageService finds or generates images and downloads their bytes.
type ImageService interface {
	RequestImage(ctx context.Context, req ImageRequest) (ImageResult, error)
	Download(ctx context.Context, url string) (data []byte, contentType string, err error)
}

// MediaUpload is a file sent to the CMS media library.
type MediaUpload struct {
	Filename    string
	ContentType string
	AltText     string
	Data        []byte
}

// Media is the CMS reference to an uploaded file.
type Media struct {
	ID  int64
	URL string
}

// Post is the publish payload.
type Post struct {
	Title         string
	Content       string
	Excerpt       string
	Slug          string
	Status        string
	Categories    []string
	Tags          []string
	FeaturedMedia int64
	Meta          map[string]string
}

// PostResult is the created CMS post.
type PostResult struct {
	ID  int64
	URL string
}

// CMS is the external content-management endpoint.
type CMS interface {
	UploadMedia(ctx context.Context, upload MediaUpload) (Media, error)
	CreatePost(ctx context.Context, post Post) (PostResult, error)
}

// EventPublisher announces pipeline milestones.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Scheduler controls when jobs execute.
type Scheduler interface {
	AddJob(name, spec string, job func(ctx context.Context)) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
