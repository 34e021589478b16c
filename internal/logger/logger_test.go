package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/adentity/internal/config"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{name: "debug", input: "debug", want: slog.LevelDebug},
		{name: "upper case warn", input: "WARN", want: slog.LevelWarn},
		{name: "padded error", input: "  error ", want: slog.LevelError},
		{name: "empty falls back to info", input: "", want: slog.LevelInfo},
		{name: "unknown falls back to info", input: "super-critical", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestNewWithWriter(t *testing.T) {
	t.Parallel()

	t.Run("Should emit JSON with identity attributes", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		cfg := &config.AppConfig{
			Name:        "adentity",
			Version:     "1.2.3",
			Environment: config.EnvironmentProduction,
			LogLevel:    "info",
			LogFormat:   "json",
		}

		log := NewWithWriter(cfg, &buf)
		log.Info("hello", slog.String("placement_id", "sidebar"))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "adentity", entry["service"])
		assert.Equal(t, "1.2.3", entry["version"])
		assert.Equal(t, "production", entry["env"])
		assert.Equal(t, "sidebar", entry["placement_id"])
		assert.NotContains(t, entry, "source", "source locations are disabled in production")
	})

	t.Run("Should emit text and respect the level", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		cfg := &config.AppConfig{
			Name:        "adentity",
			Version:     "dev",
			Environment: "development",
			LogLevel:    "warn",
			LogFormat:   "text",
		}

		log := NewWithWriter(cfg, &buf)
		log.Info("ignored")
		log.Warn("kept")

		out := buf.String()
		assert.NotContains(t, out, "ignored")
		assert.Contains(t, out, "msg=kept")
		assert.Contains(t, out, "service=adentity")
		assert.True(t, strings.Contains(out, "source="), "development logs carry source")
	})

	t.Run("Should panic on nil config", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { NewWithWriter(nil, &bytes.Buffer{}) })
	})
}

func TestComponent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	Component(base, "syncer").Info("tick")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "syncer", entry["component"])
	assert.NotNil(t, Component(nil, "x"))
}
