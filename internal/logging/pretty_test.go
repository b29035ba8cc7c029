package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: slog.LevelDebug},
	}))

	logger.Info("index loaded", "chunks", 42)
	out := buf.String()
	assert.Contains(t, out, "INFO:")
	assert.Contains(t, out, "index loaded")
	assert.Contains(t, out, `"chunks":42`)
}

func TestPrettyHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: slog.LevelDebug},
	}))

	logger.Debug("d")
	logger.Warn("w")
	logger.Error("e")

	out := buf.String()
	assert.Contains(t, out, "DEBUG:")
	assert.Contains(t, out, "WARN:")
	assert.Contains(t, out, "ERROR:")
}

func TestPrettyHandlerNoAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, PrettyHandlerOptions{}))

	logger.Info("plain message")
	out := buf.String()
	assert.Contains(t, out, "plain message")
	assert.NotContains(t, out, "{")
}

func TestNewRespectsLevel(t *testing.T) {
	logger := New(slog.LevelWarn)
	require.NotNil(t, logger)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}
