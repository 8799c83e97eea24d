package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ArticlesPublisher/internal/ports"
)

// CronScheduler runs named jobs on standard five-field cron expressions. A job
// still running when its next tick arrives is skipped.
type CronScheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler evaluating expressions in loc.
func NewCronScheduler(loc *time.Location, logger *slog.Logger) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("component", "cron")
	adapter := cronLogger{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	return &CronScheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob registers job under spec. The job receives the context passed to Start.
func (c *CronScheduler) AddJob(name, spec string, job func(ctx context.Context)) error {
	_, err := c.cron.AddFunc(spec, func() {
		ctx := c.jobContext()
		started := time.Now()
		c.logger.Debug("job started", "job", name)
		job(ctx)
		c.logger.Debug("job finished", "job", name, "duration", time.Since(started))
	})
	if err != nil {
		return fmt.Errorf("add job %s with spec %q: %w", name, spec, err)
	}
	return nil
}

// Start begins firing jobs in the background.
func (c *CronScheduler) Start(ctx context.Context) error {
	c.mu.Lock()
	c.cancel()
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	c.cron.Start()
	return nil
}

// Stop prevents new runs and waits for running jobs until ctx expires, then cancels them.
func (c *CronScheduler) Stop(ctx context.Context) error {
	done := c.cron.Stop()
	defer func() {
		c.mu.Lock()
		c.cancel()
		c.mu.Unlock()
	}()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running jobs: %w", ctx.Err())
	}
}

func (c *CronScheduler) jobContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

// cronLogger routes robfig/cron logs into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
