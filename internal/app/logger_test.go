package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Queyrouzec/vocappulary-server/internal/config"
	"github.com/Queyrouzec/vocappulary-server/pkg/ctxutil"
)

func TestNewLogger_SetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := NewLogger(config.LogConfig{Level: "info", Format: "json"})

	require.NotNil(t, logger)
	assert.Equal(t, logger.Handler(), slog.Default().Handler())
}

func TestNewLogger_JSONHasNoSource(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	newLogger(&buf, config.LogConfig{Level: "info", Format: "JSON"}).Info("translation cache miss", slog.String("to", "es"))

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "translation cache miss", m["msg"])
	assert.Equal(t, "es", m["to"])
	assert.NotContains(t, m, "source")
}

func TestNewLogger_TextHasSource(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	newLogger(&buf, config.LogConfig{Level: "info", Format: "text"}).Info("hello")

	assert.Contains(t, buf.String(), "source=")
}

func TestNewLogger_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" Error ", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run("level_"+strings.TrimSpace(tt.level), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := newLogger(&buf, config.LogConfig{Level: tt.level, Format: "text"})

			logger.Log(context.Background(), tt.want, "shown")
			assert.NotZero(t, buf.Len(), "level %v should be enabled", tt.want)

			buf.Reset()
			logger.Log(context.Background(), tt.want-1, "hidden")
			assert.Zero(t, buf.Len(), "level %v should be suppressed", tt.want-1)
		})
	}
}

func TestNewLogger_AddsRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newLogger(&buf, config.LogConfig{Level: "info", Format: "json"}).With("service", "resolver")

	ctx := ctxutil.WithRequestID(context.Background(), "run-7")
	logger.InfoContext(ctx, "with id")
	logger.Info("without id")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "run-7", first["request_id"])
	assert.Equal(t, "resolver", first["service"])
	assert.NotContains(t, second, "request_id")
}
