package scanner

import (
	"context"
	"fmt"
	"time"

	"ArticlesPublisher/internal/domain"
)

// Request carries all parameters required to execute a scan.
type Request struct {
	SourceID string
	URL      string
	// Since is the previous successful fetch; nil means first fetch.
	Since    *time.Time
	MaxItems int
}

// Scanner captures a single strategy implementation (RSS, arXiv listing, etc.).
type Scanner interface {
	Kind() domain.SourceKind
	Scan(ctx context.Context, req Request) ([]domain.FeedItem, error)
}

// Registry keeps a mapping from source kinds to their implementations.
type Registry struct {
	scanners map[domain.SourceKind]Scanner
}

// NewRegistry builds a registry holding the given scanners.
func NewRegistry(scanners ...Scanner) *Registry {
	r := &Registry{scanners: map[domain.SourceKind]Scanner{}}
	for _, s := range scanners {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[domain.SourceKind]Scanner{}
	}
	r.scanners[scanner.Kind()] = scanner
}

// Resolve returns a scanner by kind or an error if it is absent.
func (r *Registry) Resolve(kind domain.SourceKind) (Scanner, error) {
	if scanner, ok := r.scanners[kind]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", kind)
}
