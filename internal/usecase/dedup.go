package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"ArticlesPublisher/internal/domain"
	"ArticlesPublisher/internal/metrics"
	"ArticlesPublisher/internal/ports"
)

// Deduplicator guards the (sourceId, url) and (sourceId, guid) uniqueness of feed items.
type Deduplicator struct {
	items  ports.FeedItemRepository
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewDeduplicator builds a deduplicator over the item repository.
func NewDeduplicator(items ports.FeedItemRepository, logger *slog.Logger, clock Clock) *Deduplicator {
	return &Deduplicator{
		items:  items,
		logger: componentLogger(logger, "dedup"),
		now:    clock.now(),
		newID:  clock.id(),
	}
}

// PersistResult summarises one ingested batch.
type PersistResult struct {
	Inserted   []domain.FeedItem
	Duplicates int
	// Unevaluated are stored duplicates inserted after the source was last
	// marked fetched and not yet processed: their rule evaluation never finished.
	Unevaluated []domain.FeedItem
}

// Persist stores the items of batch that are new for the source.
// Duplicates inside the batch collapse to the first occurrence.
func (d *Deduplicator) Persist(ctx context.Context, source domain.Source, batch []domain.FeedItem) (PersistResult, error) {
	var result PersistResult

	seenURL := map[domain.DedupKey]struct{}{}
	seenGUID := map[domain.DedupKey]struct{}{}
	candidates := make([]domain.FeedItem, 0, len(batch))
	for _, item := range batch {
		item.SourceID = source.ID
		item.URL = strings.TrimSpace(item.URL)
		item.GUID = strings.TrimSpace(item.GUID)
		if seenAny(item, seenURL, seenGUID) {
			result.Duplicates++
			continue
		}
		remember(item, seenURL, seenGUID)
		candidates = append(candidates, item)
	}
	if len(candidates) == 0 {
		return result, nil
	}

	urls := lo.FilterMap(candidates, func(it domain.FeedItem, _ int) (string, bool) {
		k, ok := it.URLKey()
		return k.Value, ok
	})
	guids := lo.FilterMap(candidates, func(it domain.FeedItem, _ int) (string, bool) {
		k, ok := it.GUIDKey()
		return k.Value, ok
	})
	existing, err := d.items.FindExisting(ctx, source.ID, urls, guids)
	if err != nil {
		return result, fmt.Errorf("find existing items: %w", err)
	}
	storedURL := map[domain.DedupKey]struct{}{}
	storedGUID := map[domain.DedupKey]struct{}{}
	for _, it := range existing {
		remember(it, storedURL, storedGUID)
	}
	result.Unevaluated = lo.UniqBy(lo.Filter(existing, func(it domain.FeedItem, _ int) bool {
		return !it.Processed && (source.LastFetchedAt == nil || it.CreatedAt.After(*source.LastFetchedAt))
	}), func(it domain.FeedItem) string { return it.ID })

	now := d.now()
	for _, item := range candidates {
		if seenAny(item, storedURL, storedGUID) {
			result.Duplicates++
			continue
		}
		if item.ID == "" {
			item.ID = d.newID()
		}
		item.CreatedAt = now
		if item.FetchedAt.IsZero() {
			item.FetchedAt = now
		}

		err := d.items.Insert(ctx, &item)
		switch {
		case errors.Is(err, domain.ErrDuplicateIngestion):
			d.logger.Debug("concurrent insert lost", "source_id", source.ID, "url", item.URL, "guid", item.GUID)
			result.Duplicates++
		case err != nil:
			return result, fmt.Errorf("insert feed item %q: %w", item.URL, err)
		default:
			result.Inserted = append(result.Inserted, item)
		}
	}

	metrics.FeedItemsIngested.WithLabelValues(source.ID, "inserted").Add(float64(len(result.Inserted)))
	metrics.FeedItemsIngested.WithLabelValues(source.ID, "duplicate").Add(float64(result.Duplicates))
	return result, nil
}

func seenAny(item domain.FeedItem, byURL, byGUID map[domain.DedupKey]struct{}) bool {
	if k, ok := item.URLKey(); ok {
		if _, dup := byURL[k]; dup {
			return true
		}
	}
	if k, ok := item.GUIDKey(); ok {
		if _, dup := byGUID[k]; dup {
			return true
		}
	}
	return false
}

func remember(item domain.FeedItem, byURL, byGUID map[domain.DedupKey]struct{}) {
	if k, ok := item.URLKey(); ok {
		byURL[k] = struct{}{}
	}
	if k, ok := item.GUIDKey(); ok {
		byGUID[k] = struct{}{}
	}
}

// GroupRemoval describes one duplicate group resolved by reconciliation.
type GroupRemoval struct {
	SourceID string   `json:"sourceId"`
	Key      string   `json:"key"`
	KeptID   string   `json:"keptId"`
	Removed  int      `json:"removed"`
	Deleted  []string `json:"deletedIds"`
}

// ReconcileReport is the outcome of one reconciliation run.
type ReconcileReport struct {
	TotalRemoved            int            `json:"totalRemoved"`
	URLGroupsRemoved        []GroupRemoval `json:"urlGroupsRemoved"`
	GUIDGroupsRemoved       []GroupRemoval `json:"guidGroupsRemoved"`
	RemainingURLDuplicates  int            `json:"remainingUrlDuplicates"`
	RemainingGUIDDuplicates int            `json:"remainingGuidDuplicates"`
}

type keyFunc func(domain.FeedItem) (domain.DedupKey, bool)

// Reconcile deletes all but the earliest-created row of every duplicate group,
// first by url and then by guid. Running it again removes nothing.
func (d *Deduplicator) Reconcile(ctx context.Context) (ReconcileReport, error) {
	report := ReconcileReport{
		URLGroupsRemoved:  []GroupRemoval{},
		GUIDGroupsRemoved: []GroupRemoval{},
	}

	all, err := d.items.ListAll(ctx)
	if err != nil {
		return report, fmt.Errorf("list feed items: %w", err)
	}
	deleted := map[string]struct{}{}

	report.URLGroupsRemoved, err = d.reconcileBy(ctx, all, deleted, domain.FeedItem.URLKey)
	if err != nil {
		return report, fmt.Errorf("reconcile by url: %w", err)
	}
	report.GUIDGroupsRemoved, err = d.reconcileBy(ctx, all, deleted, domain.FeedItem.GUIDKey)
	if err != nil {
		return report, fmt.Errorf("reconcile by guid: %w", err)
	}

	urlRemoved := lo.SumBy(report.URLGroupsRemoved, func(g GroupRemoval) int { return g.Removed })
	guidRemoved := lo.SumBy(report.GUIDGroupsRemoved, func(g GroupRemoval) int { return g.Removed })
	report.TotalRemoved = urlRemoved + guidRemoved
	metrics.DedupRemovedTotal.WithLabelValues("url").Add(float64(urlRemoved))
	metrics.DedupRemovedTotal.WithLabelValues("guid").Add(float64(guidRemoved))

	live := lo.Filter(all, func(it domain.FeedItem, _ int) bool {
		_, gone := deleted[it.ID]
		return !gone
	})
	report.RemainingURLDuplicates = surplus(live, domain.FeedItem.URLKey)
	report.RemainingGUIDDuplicates = surplus(live, domain.FeedItem.GUIDKey)

	d.logger.Info("reconciliation finished",
		"removed", report.TotalRemoved,
		"url_groups", len(report.URLGroupsRemoved),
		"guid_groups", len(report.GUIDGroupsRemoved))
	return report, nil
}

func (d *Deduplicator) reconcileBy(ctx context.Context, all []domain.FeedItem, deleted map[string]struct{}, key keyFunc) ([]GroupRemoval, error) {
	groups := groupByKey(all, deleted, key)

	keys := lo.Keys(groups)
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].SourceID != keys[j].SourceID {
			return keys[i].SourceID < keys[j].SourceID
		}
		return keys[i].Value < keys[j].Value
	})

	removals := []GroupRemoval{}
	for _, k := range keys {
		rows := groups[k]
		if len(rows) < 2 {
			continue
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedBefore(rows[j]) })

		ids := lo.Map(rows[1:], func(it domain.FeedItem, _ int) string { return it.ID })
		n, err := d.items.Delete(ctx, ids)
		if err != nil {
			return removals, fmt.Errorf("delete duplicates of %s/%s: %w", k.SourceID, k.Value, err)
		}
		for _, id := range ids {
			deleted[id] = struct{}{}
		}
		removals = append(removals, GroupRemoval{
			SourceID: k.SourceID,
			Key:      k.Value,
			KeptID:   rows[0].ID,
			Removed:  n,
			Deleted:  ids,
		})
	}
	return removals, nil
}

func groupByKey(all []domain.FeedItem, deleted map[string]struct{}, key keyFunc) map[domain.DedupKey][]domain.FeedItem {
	keyed := lo.Filter(all, func(it domain.FeedItem, _ int) bool {
		if _, gone := deleted[it.ID]; gone {
			return false
		}
		_, ok := key(it)
		return ok
	})
	return lo.GroupBy(keyed, func(it domain.FeedItem) domain.DedupKey {
		k, _ := key(it)
		return k
	})
}

// surplus counts rows beyond the first in every duplicate group.
func surplus(items []domain.FeedItem, key keyFunc) int {
	total := 0
	for _, rows := range groupByKey(items, nil, key) {
		if len(rows) > 1 {
			total += len(rows) - 1
		}
	}
	return total
}
