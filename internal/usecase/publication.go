package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ArticlesPublisher/internal/domain"
	"ArticlesPublisher/internal/ports"
)

// PublicationService exposes operator actions on publications.
type PublicationService struct {
	publications ports.PublicationRepository
	logger       *slog.Logger
	now          func() time.Time
}

// NewPublicationService wires the service.
func NewPublicationService(publications ports.PublicationRepository, logger *slog.Logger, clock Clock) *PublicationService {
	return &PublicationService{
		publications: publications,
		logger:       componentLogger(logger, "publications"),
		now:          clock.now(),
	}
}

// Get loads one publication.
func (s *PublicationService) Get(ctx context.Context, id string) (domain.Publication, error) {
	pub, err := s.publications.Get(ctx, id)
	if err != nil {
		return domain.Publication{}, fmt.Errorf("load publication %s: %w", id, err)
	}
	return pub, nil
}

// Retry resets a failed publication to pending for the next scheduler pass.
func (s *PublicationService) Retry(ctx context.Context, id string) (domain.Publication, error) {
	pub, err := s.Get(ctx, id)
	if err != nil {
		return pub, err
	}
	if err := pub.Retry(s.now()); err != nil {
		return pub, err
	}
	if err := s.publications.Update(ctx, pub, domain.PublicationFailed); err != nil {
		return pub, fmt.Errorf("retry publication %s: %w", id, err)
	}
	s.logger.Info("publication retried", "publication_id", id, "retry_count", pub.RetryCount)
	return pub, nil
}

// Cancel stops a publication that has not completed.
func (s *PublicationService) Cancel(ctx context.Context, id string) (domain.Publication, error) {
	pub, err := s.Get(ctx, id)
	if err != nil {
		return pub, err
	}
	from := pub.Status
	if err := pub.Cancel(s.now()); err != nil {
		return pub, err
	}
	if err := s.publications.Update(ctx, pub, from); err != nil {
		return pub, fmt.Errorf("cancel publication %s: %w", id, err)
	}
	s.logger.Info("publication cancelled", "publication_id", id, "from", from)
	return pub, nil
}

// Delete removes a cancelled or failed publication.
func (s *PublicationService) Delete(ctx context.Context, id string) error {
	pub, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := pub.CheckDeletable(); err != nil {
		return err
	}
	if err := s.publications.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete publication %s: %w", id, err)
	}
	s.logger.Info("publication deleted", "publication_id", id)
	return nil
}
