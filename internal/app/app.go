package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"ArticlesPublisher/internal/api"
	"ArticlesPublisher/internal/config"
	"ArticlesPublisher/internal/domain"
	"ArticlesPublisher/internal/infrastructure/events"
	"ArticlesPublisher/internal/infrastructure/images"
	"ArticlesPublisher/internal/infrastructure/llm"
	"ArticlesPublisher/internal/infrastructure/parser"
	"ArticlesPublisher/internal/infrastructure/scheduler"
	"ArticlesPublisher/internal/infrastructure/storage/badgerstore"
	"ArticlesPublisher/internal/infrastructure/storage/postgres"
	"ArticlesPublisher/internal/infrastructure/wordpress"
	"ArticlesPublisher/internal/logging"
	"ArticlesPublisher/internal/metrics"
	"ArticlesPublisher/internal/ports"
	"ArticlesPublisher/internal/scanner"
	"ArticlesPublisher/internal/usecase"
)

// Version is stamped at build time.
var Version = "dev"

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	store   ports.Store
	db      *sqlx.DB
	closers []func() error

	Ingestor      *usecase.Ingestor
	Generation    *usecase.GenerationRunner
	AutoPublisher *usecase.AutoPublisher
	Dedup         *usecase.Deduplicator
	Publications  *usecase.PublicationService
}

// New opens storage and external clients and builds every use case.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	metrics.Init(Version, cfg.Environment)

	a := &Application{cfg: cfg, logger: baseLogger}
	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	generator, err := llm.New(ctx, cfg.Generation)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("generation provider: %w", err)
	}

	var publisher ports.EventPublisher = events.Nop{}
	if cfg.NATS.URL != "" {
		notifier, err := events.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix, baseLogger)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, notifier.Close)
		publisher = notifier
	}

	feedClient := &http.Client{Timeout: cfg.Feeds.Timeout}
	registry := scanner.NewRegistry(
		parser.NewRSSScanner(feedClient, cfg.Feeds.FetchArticles, baseLogger.With("component", "scanner.rss")),
		parser.NewArxivScanner(feedClient),
	)
	source := parser.NewStrategySource(registry, baseLogger.With("component", "source"))

	cms := wordpress.NewClient(cfg.WordPress, baseLogger)

	var attacher *usecase.ImageAttacher
	if cfg.Images.Endpoint != "" {
		attacher = usecase.NewImageAttacher(images.NewClient(cfg.Images), cms, a.store.Images, a.store.Articles, baseLogger, usecase.Clock{})
	}

	monitor := usecase.NewGenerationMonitor(a.store.Generations, a.store.Items, cfg.Generation.MaxRetries, baseLogger, usecase.Clock{})
	a.Dedup = usecase.NewDeduplicator(a.store.Items, baseLogger, usecase.Clock{})
	a.Ingestor = usecase.NewIngestor(usecase.IngestorDeps{
		Sources:   a.store.Sources,
		Fetcher:   source,
		Dedup:     a.Dedup,
		Evaluator: usecase.NewRuleEvaluator(a.store.Rules, a.store.Items, monitor, baseLogger),
		Logger:    baseLogger,
	})
	a.Generation = usecase.NewGenerationRunner(usecase.GenerationRunnerDeps{
		Sources:   a.store.Sources,
		Articles:  a.store.Articles,
		Monitor:   monitor,
		Generator: generator,
		Images:    attacher,
		Events:    publisher,
		BatchSize: cfg.Generation.BatchSize,
		Logger:    baseLogger,
	})
	a.AutoPublisher = usecase.NewAutoPublisher(usecase.AutoPublishDeps{
		Site:         cfg.Site.Domain(),
		Sources:      a.store.Sources,
		Articles:     a.store.Articles,
		Publications: a.store.Publications,
		Images:       attacher,
		CMS:          cms,
		Locker:       a.store.Locker,
		Events:       publisher,
		BatchSize:    cfg.Publishing.BatchSize,
		Delay:        cfg.Publishing.Delay,
		MaxRetries:   cfg.Publishing.MaxRetries,
		Logger:       baseLogger,
	})
	a.Publications = usecase.NewPublicationService(a.store.Publications, baseLogger, usecase.Clock{})

	return a, nil
}

func (a *Application) openStore(ctx context.Context) error {
	switch a.cfg.Database.Driver {
	case "badger":
		var (
			store *badgerstore.Store
			err   error
		)
		if a.cfg.Database.Path == "" {
			store, err = badgerstore.OpenInMemory(a.logger)
		} else {
			store, err = badgerstore.Open(a.cfg.Database.Path, a.logger)
		}
		if err != nil {
			return err
		}
		a.store = store.Ports()
	default:
		db, err := postgres.Open(ctx, a.cfg.Database.DSN)
		if err != nil {
			return err
		}
		a.db = db
		a.store = postgres.Ports(db)
	}
	a.closers = append(a.closers, a.store.Close)
	return nil
}

// Migrate applies the Postgres schema; the badger store needs none.
func (a *Application) Migrate(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return postgres.Migrate(ctx, a.db)
}

// SeedSources upserts configured sources and their rules, keeping fetch state of known sources.
func (a *Application) SeedSources(ctx context.Context) error {
	now := time.Now().UTC()
	for _, seed := range a.cfg.Sources {
		source, err := seed.Domain(now)
		if err != nil {
			return fmt.Errorf("seed source %s: %w", seed.ID, err)
		}
		existing, err := a.store.Sources.Get(ctx, source.ID)
		switch {
		case err == nil:
			source.CreatedAt = existing.CreatedAt
			source.LastFetchedAt = existing.LastFetchedAt
		case !errors.Is(err, domain.ErrNotFound):
			return fmt.Errorf("load source %s: %w", source.ID, err)
		}
		if err := a.store.Sources.Save(ctx, &source); err != nil {
			return fmt.Errorf("save source %s: %w", source.ID, err)
		}

		for _, ruleCfg := range seed.Rules {
			rule, err := ruleCfg.Domain(source.ID)
			if err != nil {
				return err
			}
			if err := a.store.Rules.Save(ctx, rule); err != nil {
				return fmt.Errorf("save rule %s: %w", rule.ID, err)
			}
		}
		a.logger.Debug("source seeded", "source", source.ID, "rules", len(seed.Rules))
	}
	return nil
}

// Serve runs the cron jobs and the HTTP API until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	sched := usecase.NewScheduler(
		scheduler.NewCronScheduler(a.cfg.Scheduler.Location(), a.logger),
		usecase.ScheduleSpecs{
			Ingest:      a.cfg.Scheduler.Ingest,
			Generate:    a.cfg.Scheduler.Generate,
			AutoPublish: a.cfg.Scheduler.AutoPublish,
			Dedup:       a.cfg.Scheduler.Dedup,
		},
		a.Ingestor, a.Generation, a.AutoPublisher, a.Dedup, a.logger,
	)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	server := api.NewServer(api.Deps{
		AutoPublisher: a.AutoPublisher,
		Dedup:         a.Dedup,
		Publications:  a.Publications,
		Generations:   a.Generation,
		CronSecret:    a.cfg.HTTP.CronSecret,
		Logger:        a.logger,
	})
	serveErr := server.Serve(ctx, a.cfg.HTTP.Addr, a.cfg.HTTP.ShutdownTimeout)

	stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		a.logger.Warn("scheduler stop", "error", err)
	}
	return serveErr
}

// Close releases storage and connections in reverse order of opening.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
