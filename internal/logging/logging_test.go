package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripEmoji(t *testing.T) {
	assert.Equal(t, "ВНИМАНИЕ! тревога", StripEmoji("⚠️ ВНИМАНИЕ! 🚀 тревога"))
	assert.Equal(t, "plain text", StripEmoji("plain text"))
}

func TestMultiHandler_WritesToAll(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	logger := slog.New(h)

	logger.Info("info line")
	logger.Warn("warn line")

	assert.True(t, strings.Contains(a.String(), "info line"))
	assert.True(t, strings.Contains(a.String(), "warn line"))
	assert.False(t, strings.Contains(b.String(), "info line"))
	assert.True(t, strings.Contains(b.String(), "warn line"))
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
}
