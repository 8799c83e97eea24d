package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"ArticlesPublisher/internal/ports"
)

// ScheduleSpecs holds the cron expressions of the recurring jobs. Empty specs
// leave a job unscheduled.
type ScheduleSpecs struct {
	Ingest      string
	Generate    string
	AutoPublish string
	Dedup       string
}

// Scheduler wires the cron-like driver with the pipeline use cases.
type Scheduler struct {
	driver      ports.Scheduler
	specs       ScheduleSpecs
	ingestor    *Ingestor
	runner      *GenerationRunner
	publisher   *AutoPublisher
	deduplicate *Deduplicator
	logger      *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, specs ScheduleSpecs, ingestor *Ingestor, runner *GenerationRunner, publisher *AutoPublisher, dedup *Deduplicator, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		driver:      driver,
		specs:       specs,
		ingestor:    ingestor,
		runner:      runner,
		publisher:   publisher,
		deduplicate: dedup,
		logger:      componentLogger(logger, "scheduler"),
	}
}

// Start registers the jobs with the driver and starts it.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
		ok   bool
	}{
		{"ingest", s.specs.Ingest, s.runIngest, s.ingestor != nil},
		{"generate", s.specs.Generate, s.runGenerate, s.runner != nil},
		{"autopublish", s.specs.AutoPublish, s.runAutoPublish, s.publisher != nil},
		{"dedup", s.specs.Dedup, s.runDedup, s.deduplicate != nil},
	}
	for _, job := range jobs {
		if job.spec == "" || !job.ok {
			continue
		}
		run, name := job.run, job.name
		err := s.driver.AddJob(name, job.spec, func(ctx context.Context) {
			if err := run(ctx); err != nil {
				s.logger.Error("job failed", "job", name, "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule %s: %w", name, err)
		}
		s.logger.Info("job scheduled", "job", name, "spec", job.spec)
	}

	return s.driver.Start(ctx)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

func (s *Scheduler) runIngest(ctx context.Context) error {
	_, err := s.ingestor.RunDue(ctx)
	return err
}

func (s *Scheduler) runGenerate(ctx context.Context) error {
	_, err := s.runner.RunPending(ctx)
	return err
}

func (s *Scheduler) runAutoPublish(ctx context.Context) error {
	_, err := s.publisher.Run(ctx)
	return err
}

func (s *Scheduler) runDedup(ctx context.Context) error {
	_, err := s.deduplicate.Reconcile(ctx)
	return err
}
