package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintfRoutesLevelsAndTrimsNewline(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log := New(base, "badger")

	log.Debugf("hidden %d", 1)
	log.Infof("L0 table compacted %d", 3)
	log.Warningf("compaction %s\n", "slow")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.NotContains(t, out, "compacted", "library info chatter stays at debug")
	assert.Contains(t, out, `level=WARN msg="compaction slow" component=badger`)
}
