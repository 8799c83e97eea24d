package usecase

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Clock supplies time and identifiers to the use cases. Zero fields fall back
// to time.Now and random UUIDs.
type Clock struct {
	Now   func() time.Time
	NewID func() string
	// Sleep waits between batch items; it returns early with ctx.Err() on cancellation.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (c Clock) now() func() time.Time {
	if c.Now != nil {
		return c.Now
	}
	return func() time.Time { return time.Now().UTC() }
}

func (c Clock) id() func() string {
	if c.NewID != nil {
		return c.NewID
	}
	return uuid.NewString
}

func (c Clock) sleep() func(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep
	}
	return sleepContext
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func componentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger.With("component", component)
}
