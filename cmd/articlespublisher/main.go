package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ArticlesPublisher/internal/app"
	"ArticlesPublisher/internal/config"
	"ArticlesPublisher/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "articlespublisher",
		Short:         "Turn feed items into generated articles and publish them to WordPress",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the cron jobs and the HTTP API",
			RunE: withApp(func(ctx context.Context, a *app.Application) error {
				if err := a.Migrate(ctx); err != nil {
					return err
				}
				if err := a.SeedSources(ctx); err != nil {
					return err
				}
				return a.Serve(ctx)
			}),
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply the database schema and seed configured sources",
			RunE: withApp(func(ctx context.Context, a *app.Application) error {
				if err := a.Migrate(ctx); err != nil {
					return err
				}
				return a.SeedSources(ctx)
			}),
		},
		&cobra.Command{
			Use:   "ingest",
			Short: "Fetch every due source once",
			RunE: withApp(func(ctx context.Context, a *app.Application) error {
				res, err := a.Ingestor.RunDue(ctx)
				printJSON(res)
				return err
			}),
		},
		&cobra.Command{
			Use:   "generate",
			Short: "Process one batch of pending generation attempts",
			RunE: withApp(func(ctx context.Context, a *app.Application) error {
				res, err := a.Generation.RunPending(ctx)
				printJSON(res)
				return err
			}),
		},
		&cobra.Command{
			Use:   "autopublish",
			Short: "Publish one batch of ready articles",
			RunE: withApp(func(ctx context.Context, a *app.Application) error {
				res, err := a.AutoPublisher.Run(ctx)
				printJSON(res)
				return err
			}),
		},
		&cobra.Command{
			Use:   "dedup",
			Short: "Remove duplicate feed items, keeping the earliest of each group",
			RunE: withApp(func(ctx context.Context, a *app.Application) error {
				res, err := a.Dedup.Reconcile(ctx)
				printJSON(res)
				return err
			}),
		},
	)
	return root
}

// withApp loads configuration, builds the application and closes it after run.
func withApp(run func(ctx context.Context, a *app.Application) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return err
		}
		logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
		slog.SetDefault(logger)

		ctx := cmd.Context()
		application, err := app.New(ctx, cfg, logger)
		if err != nil {
			logger.Error("application setup failed", "error", err)
			return err
		}
		defer func() {
			if err := application.Close(); err != nil {
				logger.Warn("close application", "error", err)
			}
		}()

		if err := run(ctx, application); err != nil {
			logger.Error("command failed", "command", cmd.Name(), "error", err)
			return err
		}
		return nil
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
