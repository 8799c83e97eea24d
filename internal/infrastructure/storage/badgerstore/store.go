// Package badgerstore keeps the pipeline state in an embedded Badger database.
// It backs single-node deployments and the use-case tests (in-memory mode).
package badgerstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	bdg "github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"ArticlesPublisher/internal/domain"
	"ArticlesPublisher/internal/ports"
	"ArticlesPublisher/pkg/logger"
)

// Store owns the badgerhold handle shared by the repositories.
type Store struct {
	hold *badgerhold.Store
	// mu serialises writes that check a uniqueness rule before inserting.
	mu    sync.Mutex
	locks *Locker
}

// Open opens (or creates) the database under dir.
func Open(dir string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create badger dir: %w", err)
	}
	options := defaultOptions(log)
	options.Dir = dir
	options.ValueDir = dir
	return open(options)
}

// OpenInMemory opens a throwaway database.
func OpenInMemory(log *slog.Logger) (*Store, error) {
	options := defaultOptions(log)
	options.InMemory = true
	options.Dir = ""
	options.ValueDir = ""
	return open(options)
}

func defaultOptions(log *slog.Logger) badgerhold.Options {
	options := badgerhold.DefaultOptions
	options.Encoder = json.Marshal
	options.Decoder = json.Unmarshal
	options.Logger = logger.New(log, "badger")
	return options
}

func open(options badgerhold.Options) (*Store, error) {
	hold, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{hold: hold, locks: NewLocker()}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.hold.Close()
}

// Ports bundles the repositories for the use cases.
func (s *Store) Ports() ports.Store {
	return ports.Store{
		Sources:      &SourceRepository{s: s},
		Items:        &FeedItemRepository{s: s},
		Generations:  &GenerationRepository{s: s},
		Articles:     &ArticleRepository{s: s},
		Images:       &ImageRepository{s: s},
		Publications: &PublicationRepository{s: s},
		Rules:        &RuleRepository{s: s},
		Locker:       s.locks,
		Close:        s.Close,
	}
}

func notFound(err error, what, id string) error {
	if errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, domain.ErrNotFound)
	}
	return fmt.Errorf("get %s %s: %w", what, id, err)
}

// casUpdate replaces the record stored under id when status(stored) == expected.
func casUpdate[T any](s *Store, id string, record T, status func(T) string, expected string) error {
	err := s.hold.Badger().Update(func(tx *bdg.Txn) error {
		var current T
		if err := s.hold.TxGet(tx, id, &current); err != nil {
			return err
		}
		if status(current) != expected {
			return domain.ErrStaleState
		}
		return s.hold.TxUpdate(tx, id, record)
	})
	switch {
	case errors.Is(err, badgerhold.ErrNotFound):
		return domain.ErrNotFound
	case errors.Is(err, bdg.ErrConflict):
		return domain.ErrStaleState
	}
	return err
}

func findAll[T any](s *Store, query *badgerhold.Query) ([]T, error) {
	var out []T
	if err := s.hold.Find(&out, query); err != nil {
		return nil, err
	}
	return out, nil
}

func limitSlice[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func oldestFirst[T any](items []T, created func(T) time.Time, id func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := created(items[i]), created(items[j])
		if !a.Equal(b) {
			return a.Before(b)
		}
		return id(items[i]) < id(items[j])
	})
}
