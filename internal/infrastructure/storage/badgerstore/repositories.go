package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	bdg "github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"github.com/timshannon/badgerhold/v4"

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

// SourceRepository stores sources.
type SourceRepository struct{ s *Store }

func (r *SourceRepository) Get(_ context.Context, id string) (domain.Source, error) {
	var source domain.Source
	if err := r.s.hold.Get(id, &source); err != nil {
		return domain.Source{}, notFound(err, "source", id)
	}
	return source, nil
}

func (r *SourceRepository) List(_ context.Context) ([]domain.Source, error) {
	sources, err := findAll[domain.Source](r.s, nil)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].ID < sources[j].ID })
	return sources, nil
}

func (r *SourceRepository) Save(_ context.Context, source *domain.Source) error {
	if source.CreatedAt.IsZero() {
		source.CreatedAt = time.Now().UTC()
	}
	if err := r.s.hold.Upsert(source.ID, *source); err != nil {
		return fmt.Errorf("save source %s: %w", source.ID, err)
	}
	return nil
}

func (r *SourceRepository) MarkFetched(_ context.Context, id string, at time.Time) error {
	return r.s.hold.Badger().Update(func(tx *bdg.Txn) error {
		var source domain.Source
		if err := r.s.hold.TxGet(tx, id, &source); err != nil {
			return notFound(err, "source", id)
		}
		source.LastFetchedAt = &at
		return r.s.hold.TxUpdate(tx, id, source)
	})
}

func (r *SourceRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.hold.Badger().Update(func(tx *bdg.Txn) error {
		bySource := badgerhold.Where("SourceID").Eq(id)
		if err := r.s.hold.TxDeleteMatching(tx, &domain.FeedItem{}, bySource); err != nil {
			return fmt.Errorf("delete items of source %s: %w", id, err)
		}
		if err := r.s.hold.TxDeleteMatching(tx, &domain.GenerationAttempt{}, badgerhold.Where("SourceID").Eq(id)); err != nil {
			return fmt.Errorf("delete generations of source %s: %w", id, err)
		}
		if err := r.s.hold.TxDeleteMatching(tx, &domain.AutomationRule{}, badgerhold.Where("SourceID").Eq(id)); err != nil {
			return fmt.Errorf("delete rules of source %s: %w", id, err)
		}
		if err := r.s.hold.TxDelete(tx, id, &domain.Source{}); err != nil {
			return notFound(err, "source", id)
		}
		return nil
	})
}

// FeedItemRepository stores ingested items and enforces their per-source uniqueness.
type FeedItemRepository struct{ s *Store }

func (r *FeedItemRepository) bySource(sourceID string) ([]domain.FeedItem, error) {
	return findAll[domain.FeedItem](r.s, badgerhold.Where("SourceID").Eq(sourceID))
}

func (r *FeedItemRepository) FindExisting(_ context.Context, sourceID string, urls, guids []string) ([]domain.FeedItem, error) {
	items, err := r.bySource(sourceID)
	if err != nil {
		return nil, fmt.Errorf("find items of source %s: %w", sourceID, err)
	}
	return lo.Filter(items, func(it domain.FeedItem, _ int) bool {
		if k, ok := it.URLKey(); ok && lo.Contains(urls, k.Value) {
			return true
		}
		k, ok := it.GUIDKey()
		return ok && lo.Contains(guids, k.Value)
	}), nil
}

func (r *FeedItemRepository) Insert(_ context.Context, item *domain.FeedItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	items, err := r.bySource(item.SourceID)
	if err != nil {
		return fmt.Errorf("check item uniqueness: %w", err)
	}
	urlKey, hasURL := item.URLKey()
	guidKey, hasGUID := item.GUIDKey()
	for _, existing := range items {
		if k, ok := existing.URLKey(); ok && hasURL && k == urlKey {
			return fmt.Errorf("url %s: %w", urlKey.Value, domain.ErrDuplicateIngestion)
		}
		if k, ok := existing.GUIDKey(); ok && hasGUID && k == guidKey {
			return fmt.Errorf("guid %s: %w", guidKey.Value, domain.ErrDuplicateIngestion)
		}
	}

	if err := r.s.hold.Insert(item.ID, *item); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("item %s: %w", item.ID, domain.ErrDuplicateIngestion)
		}
		return fmt.Errorf("insert item %s: %w", item.ID, err)
	}
	return nil
}

// InsertUnchecked stores item without the uniqueness check. It exists to seed
// duplicates that reconciliation has to clean up.
func (r *FeedItemRepository) InsertUnchecked(_ context.Context, item domain.FeedItem) error {
	return r.s.hold.Insert(item.ID, item)
}

func (r *FeedItemRepository) Get(_ context.Context, id string) (domain.FeedItem, error) {
	var item domain.FeedItem
	if err := r.s.hold.Get(id, &item); err != nil {
		return domain.FeedItem{}, notFound(err, "feed item", id)
	}
	return item, nil
}

func (r *FeedItemRepository) ListAll(_ context.Context) ([]domain.FeedItem, error) {
	items, err := findAll[domain.FeedItem](r.s, nil)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	oldestFirst(items, func(it domain.FeedItem) time.Time { return it.CreatedAt }, func(it domain.FeedItem) string { return it.ID })
	return items, nil
}

func (r *FeedItemRepository) Delete(_ context.Context, ids []string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	removed := 0
	for _, id := range ids {
		err := r.s.hold.Delete(id, &domain.FeedItem{})
		switch {
		case errors.Is(err, badgerhold.ErrNotFound):
			continue
		case err != nil:
			return removed, fmt.Errorf("delete item %s: %w", id, err)
		}
		removed++
	}
	return removed, nil
}

func (r *FeedItemRepository) MarkProcessed(_ context.Context, id, articleID string) error {
	return r.s.hold.Badger().Update(func(tx *bdg.Txn) error {
		var item domain.FeedItem
		if err := r.s.hold.TxGet(tx, id, &item); err != nil {
			return notFound(err, "feed item", id)
		}
		item.Processed = true
		item.ArticleID = articleID
		return r.s.hold.TxUpdate(tx, id, item)
	})
}

// GenerationRepository stores generation attempts, one per feed item.
type GenerationRepository struct{ s *Store }

func (r *GenerationRepository) Create(_ context.Context, attempt domain.GenerationAttempt) (domain.GenerationAttempt, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var existing []domain.GenerationAttempt
	if err := r.s.hold.Find(&existing, badgerhold.Where("FeedItemID").Eq(attempt.FeedItemID)); err != nil {
		return domain.GenerationAttempt{}, false, fmt.Errorf("find generation of item %s: %w", attempt.FeedItemID, err)
	}
	if len(existing) > 0 {
		return existing[0], false, nil
	}
	if err := r.s.hold.Insert(attempt.ID, attempt); err != nil {
		return domain.GenerationAttempt{}, false, fmt.Errorf("insert generation %s: %w", attempt.ID, err)
	}
	return attempt, true, nil
}

func (r *GenerationRepository) Get(_ context.Context, id string) (domain.GenerationAttempt, error) {
	var attempt domain.GenerationAttempt
	if err := r.s.hold.Get(id, &attempt); err != nil {
		return domain.GenerationAttempt{}, notFound(err, "generation", id)
	}
	return attempt, nil
}

func (r *GenerationRepository) GetByFeedItem(_ context.Context, feedItemID string) (domain.GenerationAttempt, error) {
	var attempt domain.GenerationAttempt
	if err := r.s.hold.FindOne(&attempt, badgerhold.Where("FeedItemID").Eq(feedItemID)); err != nil {
		return domain.GenerationAttempt{}, notFound(err, "generation of item", feedItemID)
	}
	return attempt, nil
}

func (r *GenerationRepository) ListByStatus(_ context.Context, status domain.GenerationStatus, limit int) ([]domain.GenerationAttempt, error) {
	all, err := findAll[domain.GenerationAttempt](r.s, nil)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	attempts := lo.Filter(all, func(g domain.GenerationAttempt, _ int) bool { return g.Status == status })
	sort.SliceStable(attempts, func(i, j int) bool {
		a, b := attempts[i], attempts[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return limitSlice(attempts, limit), nil
}

func (r *GenerationRepository) Update(_ context.Context, attempt domain.GenerationAttempt, expected domain.GenerationStatus) error {
	return casUpdate(r.s, attempt.ID, attempt,
		func(g domain.GenerationAttempt) string { return string(g.Status) }, string(expected))
}

// ArticleRepository stores articles.
type ArticleRepository struct{ s *Store }

func (r *ArticleRepository) Create(_ context.Context, article domain.Article) error {
	if err := r.s.hold.Insert(article.ID, article); err != nil {
		return fmt.Errorf("insert article %s: %w", article.ID, err)
	}
	return nil
}

func (r *ArticleRepository) Get(_ context.Context, id string) (domain.Article, error) {
	var article domain.Article
	if err := r.s.hold.Get(id, &article); err != nil {
		return domain.Article{}, notFound(err, "article", id)
	}
	return article, nil
}

func (r *ArticleRepository) ListByStatus(_ context.Context, statuses []domain.ArticleStatus, limit int) ([]domain.Article, error) {
	all, err := findAll[domain.Article](r.s, nil)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	articles := lo.Filter(all, func(a domain.Article, _ int) bool { return lo.Contains(statuses, a.Status) })
	oldestFirst(articles, func(a domain.Article) time.Time { return a.CreatedAt }, func(a domain.Article) string { return a.ID })
	return limitSlice(articles, limit), nil
}

func (r *ArticleRepository) Update(_ context.Context, article domain.Article, expected domain.ArticleStatus) error {
	return casUpdate(r.s, article.ID, article,
		func(a domain.Article) string { return string(a.Status) }, string(expected))
}

// ImageRepository stores one featured image per article, keyed by article id.
type ImageRepository struct{ s *Store }

func (r *ImageRepository) Save(_ context.Context, image domain.FeaturedImage) error {
	if err := r.s.hold.Upsert(image.ArticleID, image); err != nil {
		return fmt.Errorf("save image of article %s: %w", image.ArticleID, err)
	}
	return nil
}

func (r *ImageRepository) GetByArticle(_ context.Context, articleID string) (domain.FeaturedImage, error) {
	var image domain.FeaturedImage
	if err := r.s.hold.Get(articleID, &image); err != nil {
		return domain.FeaturedImage{}, notFound(err, "image of article", articleID)
	}
	return image, nil
}

// PublicationRepository stores publications.
type PublicationRepository struct{ s *Store }

func (r *PublicationRepository) Create(_ context.Context, pub domain.Publication) error {
	if err := r.s.hold.Insert(pub.ID, pub); err != nil {
		return fmt.Errorf("insert publication %s: %w", pub.ID, err)
	}
	return nil
}

func (r *PublicationRepository) Get(_ context.Context, id string) (domain.Publication, error) {
	var pub domain.Publication
	if err := r.s.hold.Get(id, &pub); err != nil {
		return domain.Publication{}, notFound(err, "publication", id)
	}
	return pub, nil
}

func (r *PublicationRepository) LatestForArticle(_ context.Context, articleID string) (domain.Publication, error) {
	pubs, err := findAll[domain.Publication](r.s, badgerhold.Where("ArticleID").Eq(articleID))
	if err != nil {
		return domain.Publication{}, fmt.Errorf("find publications of article %s: %w", articleID, err)
	}
	if len(pubs) == 0 {
		return domain.Publication{}, fmt.Errorf("publication of article %s: %w", articleID, domain.ErrNotFound)
	}
	oldestFirst(pubs, func(p domain.Publication) time.Time { return p.CreatedAt }, func(p domain.Publication) string { return p.ID })
	return pubs[len(pubs)-1], nil
}

func (r *PublicationRepository) Update(_ context.Context, pub domain.Publication, expected domain.PublicationStatus) error {
	return casUpdate(r.s, pub.ID, pub,
		func(p domain.Publication) string { return string(p.Status) }, string(expected))
}

func (r *PublicationRepository) Delete(_ context.Context, id string) error {
	if err := r.s.hold.Delete(id, &domain.Publication{}); err != nil {
		return notFound(err, "publication", id)
	}
	return nil
}

// RuleRepository stores automation rules.
type RuleRepository struct{ s *Store }

func (r *RuleRepository) ListBySource(_ context.Context, sourceID string) ([]domain.AutomationRule, error) {
	rules, err := findAll[domain.AutomationRule](r.s, badgerhold.Where("SourceID").Eq(sourceID))
	if err != nil {
		return nil, fmt.Errorf("list rules of source %s: %w", sourceID, err)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules, nil
}

func (r *RuleRepository) Save(_ context.Context, rule domain.AutomationRule) error {
	if err := r.s.hold.Upsert(rule.ID, rule); err != nil {
		return fmt.Errorf("save rule %s: %w", rule.ID, err)
	}
	return nil
}

func (r *RuleRepository) Delete(_ context.Context, id string) error {
	if err := r.s.hold.Delete(id, &domain.AutomationRule{}); err != nil {
		return notFound(err, "rule", id)
	}
	return nil
}
