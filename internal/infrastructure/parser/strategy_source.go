package parser

import (
	"context"
	"fmt"
	"log/slog"

	"ArticlesPublisher/internal/domain"
	"ArticlesPublisher/internal/ports"
	"ArticlesPublisher/internal/scanner"
)

// StrategySource implements ItemSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	logger   *slog.Logger
}

var _ ports.ItemSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry.
func NewStrategySource(reg *scanner.Registry, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		logger:   log,
	}
}

// Fetch resolves the scanner for the source kind and runs it.
func (s *StrategySource) Fetch(ctx context.Context, source domain.Source) ([]domain.FeedItem, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	strategy, err := s.registry.Resolve(source.Kind)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", source.ID, err)
	}

	s.debug("scan source", "source", source.ID, "kind", source.Kind, "url", source.URL)
	items, err := strategy.Scan(ctx, scanner.Request{
		SourceID: source.ID,
		URL:      source.URL,
		Since:    source.LastFetchedAt,
		MaxItems: source.Config.MaxItems,
	})
	if err != nil {
		return nil, fmt.Errorf("scan source %s: %w", source.ID, err)
	}

	for i := range items {
		items[i].SourceID = source.ID
	}
	s.debug("source produced items", "source", source.ID, "count", len(items))
	return items, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
