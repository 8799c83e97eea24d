package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"ArticlesPublisher/internal/domain"
	"ArticlesPublisher/internal/ports"
)

// IngestorDeps wires the ingestion stage.
type IngestorDeps struct {
	Sources   ports.SourceRepository
	Fetcher   ports.ItemSource
	Dedup     *Deduplicator
	Evaluator *RuleEvaluator
	Logger    *slog.Logger
	Clock     Clock
}

// Ingestor fetches due sources, stores new items and hands them to the rules.
type Ingestor struct {
	sources   ports.SourceRepository
	fetcher   ports.ItemSource
	dedup     *Deduplicator
	evaluator *RuleEvaluator
	logger    *slog.Logger
	now       func() time.Time
}

// NewIngestor constructs the ingestion use case.
func NewIngestor(deps IngestorDeps) *Ingestor {
	return &Ingestor{
		sources:   deps.Sources,
		fetcher:   deps.Fetcher,
		dedup:     deps.Dedup,
		evaluator: deps.Evaluator,
		logger:    componentLogger(deps.Logger, "ingest"),
		now:       deps.Clock.now(),
	}
}

// SourceIngest is the outcome for one source.
type SourceIngest struct {
	SourceID   string `json:"sourceId"`
	Fetched    int    `json:"fetched"`
	Inserted   int    `json:"inserted"`
	Duplicates int    `json:"duplicates"`
	Queued     int    `json:"queued"`
	Skipped    int    `json:"skipped"`
	Error      string `json:"error,omitempty"`
}

// RunDue ingests every source whose polling interval elapsed. A failing
// source is reported and does not stop the others.
func (i *Ingestor) RunDue(ctx context.Context) ([]SourceIngest, error) {
	sources, err := i.sources.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	now := i.now()
	results := []SourceIngest{}
	var errs []error
	for _, source := range sources {
		if !source.DueForFetch(now) {
			continue
		}
		res, err := i.IngestSource(ctx, source)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			res.Error = err.Error()
			errs = append(errs, err)
		}
		results = append(results, res)
	}

	if len(errs) > 0 && len(errs) == len(results) {
		return results, errors.Join(errs...)
	}
	return results, nil
}

// IngestSource fetches one source regardless of its polling interval.
func (i *Ingestor) IngestSource(ctx context.Context, source domain.Source) (SourceIngest, error) {
	res := SourceIngest{SourceID: source.ID}
	logger := i.logger.With("source_id", source.ID, "kind", source.Kind)

	items, err := i.fetcher.Fetch(ctx, source)
	if err != nil {
		logger.Warn("fetch failed", "error", err)
		return res, fmt.Errorf("fetch source %s: %w", source.ID, err)
	}
	res.Fetched = len(items)
	if limit := source.Config.MaxItems; limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	persisted, err := i.dedup.Persist(ctx, source, items)
	if err != nil {
		return res, err
	}
	res.Inserted = len(persisted.Inserted)
	res.Duplicates = persisted.Duplicates

	// Evaluate before the fetch mark; items of an unfinished evaluation return as Unevaluated.
	pending := slices.Concat(persisted.Inserted, persisted.Unevaluated)
	if i.evaluator != nil && len(pending) > 0 {
		eval, err := i.evaluator.Evaluate(ctx, source, pending)
		if err != nil {
			return res, err
		}
		res.Queued = eval.Queued
		res.Skipped = eval.Skipped
	}

	if err := i.sources.MarkFetched(ctx, source.ID, i.now()); err != nil {
		return res, fmt.Errorf("mark source %s fetched: %w", source.ID, err)
	}

	logger.Info("source ingested",
		"fetched", res.Fetched,
		"inserted", res.Inserted,
		"duplicates", res.Duplicates,
		"queued", res.Queued)
	return res, nil
}
