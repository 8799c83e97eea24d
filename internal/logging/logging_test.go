package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, slog.LevelError, levelFromString("ERROR"))
	assert.Equal(t, slog.LevelWarn, levelFromString(" warning "))
	assert.Equal(t, slog.LevelDebug, levelFromString("debug"))
	assert.Equal(t, slog.LevelInfo, levelFromString(""))
}

func TestNewLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "info", "json")

	log.Debug("hidden")
	log.Info("published", "article", "a1")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"article":"a1"`)
}
