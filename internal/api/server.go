// Package api exposes the cron trigger and operator endpoints over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ArticlesPublisher/internal/domain"
	"ArticlesPublisher/internal/usecase"
)

// AutoPublishRunner runs one auto-publish batch.
type AutoPublishRunner interface {
	Run(ctx context.Context) (usecase.AutoPublishReport, error)
}

// Reconciler removes duplicate feed items.
type Reconciler interface {
	Reconcile(ctx context.Context) (usecase.ReconcileReport, error)
}

// PublicationManager is the operator surface over publications.
type PublicationManager interface {
	Get(ctx context.Context, id string) (domain.Publication, error)
	Retry(ctx context.Context, id string) (domain.Publication, error)
	Cancel(ctx context.Context, id string) (domain.Publication, error)
	Delete(ctx context.Context, id string) error
}

// GenerationRetrier re-runs a failed generation attempt.
type GenerationRetrier interface {
	Retry(ctx context.Context, id string) (domain.GenerationAttempt, error)
}

// Deps wires the handlers.
type Deps struct {
	AutoPublisher AutoPublishRunner
	Dedup         Reconciler
	Publications  PublicationManager
	Generations   GenerationRetrier
	CronSecret    string
	Logger        *slog.Logger
}

// Server owns the gin engine and its handlers.
type Server struct {
	deps   Deps
	engine *gin.Engine
	logger *slog.Logger
}

// NewServer builds the router in release mode.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{deps: deps, logger: logger.With("component", "api")}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), prometheusMiddleware(), requestLogger(s.logger))

	engine.GET("/health", s.health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := engine.Group("/api")
	{
		cron := apiGroup.Group("/cron", bearerAuth(deps.CronSecret))
		cron.GET("/auto-publish", s.autoPublish)
		cron.POST("/auto-publish", s.autoPublish)

		admin := apiGroup.Group("", bearerAuth(deps.CronSecret))
		admin.POST("/admin/feed-items/dedup", s.dedup)
		admin.GET("/publications/:id", s.getPublication)
		admin.POST("/publications/:id/retry", s.retryPublication)
		admin.POST("/publications/:id/cancel", s.cancelPublication)
		admin.DELETE("/publications/:id", s.deletePublication)
		admin.POST("/generations/:id/retry", s.retryGeneration)
	}

	s.engine = engine
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve listens on addr until ctx is cancelled, then shuts down within shutdownTimeout.
func (s *Server) Serve(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
