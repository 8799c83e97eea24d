package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Printf routes printf-style library logging into slog with a component attribute.
// It satisfies badger.Logger and the Printf-only loggers of other libraries.
type Printf struct {
	logger *slog.Logger
}

// New returns a printf adapter for component.
func New(base *slog.Logger, component string) *Printf {
	if base == nil {
		base = slog.Default()
	}
	return &Printf{logger: base.With("component", component)}
}

func (p *Printf) Errorf(format string, args ...any)   { p.log(slog.LevelError, format, args...) }
func (p *Printf) Warningf(format string, args ...any) { p.log(slog.LevelWarn, format, args...) }
func (p *Printf) Debugf(format string, args ...any)   { p.log(slog.LevelDebug, format, args...) }
func (p *Printf) Printf(format string, args ...any)   { p.log(slog.LevelInfo, format, args...) }

// Infof logs at debug: badger reports compactions and level dumps through it.
func (p *Printf) Infof(format string, args ...any) { p.log(slog.LevelDebug, format, args...) }

func (p *Printf) log(level slog.Level, format string, args ...any) {
	ctx := context.Background()
	if !p.logger.Enabled(ctx, level) {
		return
	}
	p.logger.Log(ctx, level, strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}
