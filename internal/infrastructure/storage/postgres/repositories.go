package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/lo"

	"ArticlesPublisher/internal/domain"
	"ArticlesPublisher/internal/ports"
)

var (
	_ ports.SourceRepository      = (*SourceRepository)(nil)
	_ ports.FeedItemRepository    = (*FeedItemRepository)(nil)
	_ ports.GenerationRepository  = (*GenerationRepository)(nil)
	_ ports.ArticleRepository     = (*ArticleRepository)(nil)
	_ ports.ImageRepository       = (*ImageRepository)(nil)
	_ ports.PublicationRepository = (*PublicationRepository)(nil)
	_ ports.RuleRepository        = (*RuleRepository)(nil)
)

// SourceRepository persists sources.
type SourceRepository struct{ db *sqlx.DB }

func (r *SourceRepository) Get(ctx context.Context, id string) (domain.Source, error) {
	row, err := getRow[dbSource](ctx, r.db, psql.Select(sourceColumns...).From("sources").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.Source{}, wrapNotFound(err, "source", id)
	}
	return row.toDomain()
}

func (r *SourceRepository) List(ctx context.Context) ([]domain.Source, error) {
	rows, err := selectRows[dbSource](ctx, r.db, psql.Select(sourceColumns...).From("sources").OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return mapRows(rows, dbSource.toDomain)
}

func (r *SourceRepository) Save(ctx context.Context, source *domain.Source) error {
	if source.CreatedAt.IsZero() {
		source.CreatedAt = time.Now().UTC()
	}
	cfg, err := json.Marshal(source.Config)
	if err != nil {
		return fmt.Errorf("encode source config: %w", err)
	}
	query := psql.Insert("sources").Columns(sourceColumns...).
		Values(source.ID, source.UserID, source.Name, string(source.Kind), source.URL, string(cfg), source.LastFetchedAt, source.CreatedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET user_id = EXCLUDED.user_id, name = EXCLUDED.name,
			kind = EXCLUDED.kind, url = EXCLUDED.url, config = EXCLUDED.config`)
	if _, err := exec(ctx, r.db, query); err != nil {
		return fmt.Errorf("save source %s: %w", source.ID, err)
	}
	return nil
}

func (r *SourceRepository) MarkFetched(ctx context.Context, id string, at time.Time) error {
	n, err := exec(ctx, r.db, psql.Update("sources").Set("last_fetched_at", at).Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("mark source %s fetched: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("source %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete relies on ON DELETE CASCADE for items, attempts and rules.
func (r *SourceRepository) Delete(ctx context.Context, id string) error {
	n, err := exec(ctx, r.db, psql.Delete("sources").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("delete source %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("source %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// FeedItemRepository persists ingested items; the partial unique indexes are the
// storage-level backstop for deduplication.
type FeedItemRepository struct{ db *sqlx.DB }

func findExistingQuery(sourceID string, urls, guids []string) sq.SelectBuilder {
	return psql.Select(feedItemColumns...).From("feed_items").
		Where(sq.Eq{"source_id": sourceID}).
		Where(sq.Or{
			sq.And{sq.NotEq{"url": ""}, sq.Eq{"url": urls}},
			sq.And{sq.NotEq{"guid": ""}, sq.Eq{"guid": guids}},
		})
}

func (r *FeedItemRepository) FindExisting(ctx context.Context, sourceID string, urls, guids []string) ([]domain.FeedItem, error) {
	if len(urls) == 0 && len(guids) == 0 {
		return nil, nil
	}
	rows, err := selectRows[dbFeedItem](ctx, r.db, findExistingQuery(sourceID, urls, guids))
	if err != nil {
		return nil, fmt.Errorf("find existing items: %w", err)
	}
	return lo.Map(rows, func(row dbFeedItem, _ int) domain.FeedItem { return row.toDomain() }), nil
}

func (r *FeedItemRepository) Insert(ctx context.Context, item *domain.FeedItem) error {
	query := psql.Insert("feed_items").Columns(feedItemColumns...).Values(
		item.ID, item.SourceID, item.GUID, item.URL, item.Title, item.Content,
		item.PublishedAt, item.FetchedAt, item.CreatedAt, item.Processed, item.ArticleID,
	)
	if _, err := exec(ctx, r.db, query); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("feed item %s: %w", item.URL, domain.ErrDuplicateIngestion)
		}
		return fmt.Errorf("insert feed item: %w", err)
	}
	return nil
}

func (r *FeedItemRepository) Get(ctx context.Context, id string) (domain.FeedItem, error) {
	row, err := getRow[dbFeedItem](ctx, r.db, psql.Select(feedItemColumns...).From("feed_items").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.FeedItem{}, wrapNotFound(err, "feed item", id)
	}
	return row.toDomain(), nil
}

func (r *FeedItemRepository) ListAll(ctx context.Context) ([]domain.FeedItem, error) {
	rows, err := selectRows[dbFeedItem](ctx, r.db, psql.Select(feedItemColumns...).From("feed_items").OrderBy("created_at", "id"))
	if err != nil {
		return nil, fmt.Errorf("list feed items: %w", err)
	}
	return lo.Map(rows, func(row dbFeedItem, _ int) domain.FeedItem { return row.toDomain() }), nil
}

func (r *FeedItemRepository) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := exec(ctx, r.db, psql.Delete("feed_items").Where(sq.Eq{"id": ids}))
	if err != nil {
		return 0, fmt.Errorf("delete feed items: %w", err)
	}
	return int(n), nil
}

func (r *FeedItemRepository) MarkProcessed(ctx context.Context, id, articleID string) error {
	n, err := exec(ctx, r.db, psql.Update("feed_items").
		Set("processed", true).
		Set("article_id", articleID).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("mark item %s processed: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("feed item %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// GenerationRepository persists generation attempts.
type GenerationRepository struct{ db *sqlx.DB }

func (r *GenerationRepository) Create(ctx context.Context, g domain.GenerationAttempt) (domain.GenerationAttempt, bool, error) {
	query := psql.Insert("generation_attempts").Columns(generationColumns...).Values(
		g.ID, g.FeedItemID, g.SourceID, g.Title, g.Content, string(g.Status), g.ArticleID,
		g.RetryCount, g.Error, g.RawResponse, g.Priority, g.CreatedAt, g.UpdatedAt,
	).Suffix("ON CONFLICT (feed_item_id) DO NOTHING")
	n, err := exec(ctx, r.db, query)
	if err != nil {
		return domain.GenerationAttempt{}, false, fmt.Errorf("insert generation: %w", err)
	}
	if n == 1 {
		return g, true, nil
	}
	existing, err := r.GetByFeedItem(ctx, g.FeedItemID)
	return existing, false, err
}

func (r *GenerationRepository) Get(ctx context.Context, id string) (domain.GenerationAttempt, error) {
	row, err := getRow[dbGeneration](ctx, r.db, psql.Select(generationColumns...).From("generation_attempts").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.GenerationAttempt{}, wrapNotFound(err, "generation", id)
	}
	return row.toDomain()
}

func (r *GenerationRepository) GetByFeedItem(ctx context.Context, feedItemID string) (domain.GenerationAttempt, error) {
	row, err := getRow[dbGeneration](ctx, r.db, psql.Select(generationColumns...).From("generation_attempts").Where(sq.Eq{"feed_item_id": feedItemID}))
	if err != nil {
		return domain.GenerationAttempt{}, wrapNotFound(err, "generation of item", feedItemID)
	}
	return row.toDomain()
}

func listGenerationsQuery(status domain.GenerationStatus, limit int) sq.SelectBuilder {
	query := psql.Select(generationColumns...).From("generation_attempts").
		Where(sq.Eq{"status": string(status)}).
		OrderBy("priority DESC", "created_at", "id")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	return query
}

func (r *GenerationRepository) ListByStatus(ctx context.Context, status domain.GenerationStatus, limit int) ([]domain.GenerationAttempt, error) {
	rows, err := selectRows[dbGeneration](ctx, r.db, listGenerationsQuery(status, limit))
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	return mapRows(rows, dbGeneration.toDomain)
}

func (r *GenerationRepository) Update(ctx context.Context, g domain.GenerationAttempt, expected domain.GenerationStatus) error {
	update := psql.Update("generation_attempts").SetMap(map[string]any{
		"status":       string(g.Status),
		"article_id":   g.ArticleID,
		"retry_count":  g.RetryCount,
		"error":        g.Error,
		"raw_response": g.RawResponse,
		"priority":     g.Priority,
		"updated_at":   g.UpdatedAt,
	}).Where(sq.Eq{"id": g.ID, "status": string(expected)})
	return casUpdate(ctx, r.db, "generation_attempts", g.ID, update)
}

// ArticleRepository persists articles.
type ArticleRepository struct{ db *sqlx.DB }

func (r *ArticleRepository) Create(ctx context.Context, a domain.Article) error {
	query := psql.Insert("articles").Columns(articleColumns...).Values(
		a.ID, a.SourceID, a.FeedItemID, a.Title, a.Slug, a.Content, a.Excerpt, a.MetaDescription,
		pq.StringArray(lo.Ternary(a.Tags == nil, []string{}, a.Tags)),
		pq.StringArray(lo.Ternary(a.Categories == nil, []string{}, a.Categories)),
		string(a.Status), a.FeaturedMediaID, a.FeaturedImageURL, a.CMSPostID, a.CMSURL,
		a.CreatedAt, a.UpdatedAt, a.PublishedAt,
	)
	if _, err := exec(ctx, r.db, query); err != nil {
		return fmt.Errorf("insert article %s: %w", a.ID, err)
	}
	return nil
}

func (r *ArticleRepository) Get(ctx context.Context, id string) (domain.Article, error) {
	row, err := getRow[dbArticle](ctx, r.db, psql.Select(articleColumns...).From("articles").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.Article{}, wrapNotFound(err, "article", id)
	}
	return row.toDomain()
}

func listArticlesQuery(statuses []domain.ArticleStatus, limit int) sq.SelectBuilder {
	values := lo.Map(statuses, func(s domain.ArticleStatus, _ int) string { return string(s) })
	query := psql.Select(articleColumns...).From("articles").
		Where(sq.Eq{"status": values}).
		OrderBy("created_at", "id")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	return query
}

func (r *ArticleRepository) ListByStatus(ctx context.Context, statuses []domain.ArticleStatus, limit int) ([]domain.Article, error) {
	rows, err := selectRows[dbArticle](ctx, r.db, listArticlesQuery(statuses, limit))
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return mapRows(rows, dbArticle.toDomain)
}

func (r *ArticleRepository) Update(ctx context.Context, a domain.Article, expected domain.ArticleStatus) error {
	update := psql.Update("articles").SetMap(map[string]any{
		"title":              a.Title,
		"slug":               a.Slug,
		"content":            a.Content,
		"excerpt":            a.Excerpt,
		"meta_description":   a.MetaDescription,
		"tags":               pq.StringArray(lo.Ternary(a.Tags == nil, []string{}, a.Tags)),
		"categories":         pq.StringArray(lo.Ternary(a.Categories == nil, []string{}, a.Categories)),
		"status":             string(a.Status),
		"featured_media_id":  a.FeaturedMediaID,
		"featured_image_url": a.FeaturedImageURL,
		"cms_post_id":        a.CMSPostID,
		"cms_url":            a.CMSURL,
		"updated_at":         a.UpdatedAt,
		"published_at":       a.PublishedAt,
	}).Where(sq.Eq{"id": a.ID, "status": string(expected)})
	return casUpdate(ctx, r.db, "articles", a.ID, update)
}

// ImageRepository persists featured images, one per article.
type ImageRepository struct{ db *sqlx.DB }

func (r *ImageRepository) Save(ctx context.Context, img domain.FeaturedImage) error {
	query := psql.Insert("featured_images").Columns(imageColumns...).Values(
		img.ID, img.ArticleID, img.AIPrompt, img.Filename, img.AltText, img.URL, string(img.Status),
		img.WordPressMediaID, img.WordPressURL, img.Error, img.CreatedAt, img.UpdatedAt,
	).Suffix(`ON CONFLICT (article_id) DO UPDATE SET ai_prompt = EXCLUDED.ai_prompt,
		filename = EXCLUDED.filename, alt_text = EXCLUDED.alt_text, url = EXCLUDED.url,
		status = EXCLUDED.status, wordpress_media_id = EXCLUDED.wordpress_media_id,
		wordpress_url = EXCLUDED.wordpress_url, error = EXCLUDED.error, updated_at = EXCLUDED.updated_at`)
	if _, err := exec(ctx, r.db, query); err != nil {
		return fmt.Errorf("save image of article %s: %w", img.ArticleID, err)
	}
	return nil
}

func (r *ImageRepository) GetByArticle(ctx context.Context, articleID string) (domain.FeaturedImage, error) {
	row, err := getRow[dbImage](ctx, r.db, psql.Select(imageColumns...).From("featured_images").Where(sq.Eq{"article_id": articleID}))
	if err != nil {
		return domain.FeaturedImage{}, wrapNotFound(err, "image of article", articleID)
	}
	return row.toDomain()
}

// PublicationRepository persists publications.
type PublicationRepository struct{ db *sqlx.DB }

func (r *PublicationRepository) Create(ctx context.Context, p domain.Publication) error {
	query := psql.Insert("publications").Columns(publicationColumns...).Values(
		p.ID, p.ArticleID, string(p.Status), p.RetryCount, p.MaxRetries, p.StartedAt, p.CompletedAt,
		p.Error, p.CMSPostID, p.CreatedAt, p.UpdatedAt,
	)
	if _, err := exec(ctx, r.db, query); err != nil {
		return fmt.Errorf("insert publication %s: %w", p.ID, err)
	}
	return nil
}

func (r *PublicationRepository) Get(ctx context.Context, id string) (domain.Publication, error) {
	row, err := getRow[dbPublication](ctx, r.db, psql.Select(publicationColumns...).From("publications").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.Publication{}, wrapNotFound(err, "publication", id)
	}
	return row.toDomain()
}

func latestPublicationQuery(articleID string) sq.SelectBuilder {
	return psql.Select(publicationColumns...).From("publications").
		Where(sq.Eq{"article_id": articleID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1)
}

func (r *PublicationRepository) LatestForArticle(ctx context.Context, articleID string) (domain.Publication, error) {
	row, err := getRow[dbPublication](ctx, r.db, latestPublicationQuery(articleID))
	if err != nil {
		return domain.Publication{}, wrapNotFound(err, "publication of article", articleID)
	}
	return row.toDomain()
}

func (r *PublicationRepository) Update(ctx context.Context, p domain.Publication, expected domain.PublicationStatus) error {
	update := psql.Update("publications").SetMap(map[string]any{
		"status":       string(p.Status),
		"retry_count":  p.RetryCount,
		"max_retries":  p.MaxRetries,
		"started_at":   p.StartedAt,
		"completed_at": p.CompletedAt,
		"error":        p.Error,
		"cms_post_id":  p.CMSPostID,
		"updated_at":   p.UpdatedAt,
	}).Where(sq.Eq{"id": p.ID, "status": string(expected)})
	return casUpdate(ctx, r.db, "publications", p.ID, update)
}

func (r *PublicationRepository) Delete(ctx context.Context, id string) error {
	n, err := exec(ctx, r.db, psql.Delete("publications").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("delete publication %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("publication %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// RuleRepository persists automation rules.
type RuleRepository struct{ db *sqlx.DB }

func (r *RuleRepository) ListBySource(ctx context.Context, sourceID string) ([]domain.AutomationRule, error) {
	rows, err := selectRows[dbRule](ctx, r.db, psql.Select(ruleColumns...).From("automation_rules").
		Where(sq.Eq{"source_id": sourceID}).OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("list rules of source %s: %w", sourceID, err)
	}
	return mapRows(rows, dbRule.toDomain)
}

func (r *RuleRepository) Save(ctx context.Context, rule domain.AutomationRule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("encode rule conditions: %w", err)
	}
	actions, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("encode rule actions: %w", err)
	}
	query := psql.Insert("automation_rules").Columns(ruleColumns...).
		Values(rule.ID, rule.SourceID, rule.Name, rule.Enabled, string(conditions), string(actions)).
		Suffix(`ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, enabled = EXCLUDED.enabled,
			conditions = EXCLUDED.conditions, actions = EXCLUDED.actions`)
	if _, err := exec(ctx, r.db, query); err != nil {
		return fmt.Errorf("save rule %s: %w", rule.ID, err)
	}
	return nil
}

func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	if _, err := exec(ctx, r.db, psql.Delete("automation_rules").Where(sq.Eq{"id": id})); err != nil {
		return fmt.Errorf("delete rule %s: %w", id, err)
	}
	return nil
}
