package observability_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/adentity/internal/config"
	"github.com/rafaeljc/adentity/internal/observability"
)

func testConfig() *config.ObservabilityConfig {
	return &config.ObservabilityConfig{
		Port:          "0",
		Timeout:       200 * time.Millisecond,
		LivenessPath:  "/alive",
		ReadinessPath: "/ready",
		MetricsPath:   "/telemetry",
	}
}

func checker(name string, err error) observability.Checker {
	return observability.CheckerFunc{Component: name, Fn: func(context.Context) error { return err }}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_Liveness(t *testing.T) {
	t.Parallel()
	srv := observability.NewServer(slog.New(slog.NewTextHandler(io.Discard, nil)), testConfig())

	rec := get(t, srv.Handler(), "/alive")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServer_Readiness(t *testing.T) {
	t.Parallel()

	hanging := observability.CheckerFunc{Component: "slow", Fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}

	tests := []struct {
		name     string
		checkers []observability.Checker
		code     int
		checks   map[string]string
	}{
		{
			name:   "no dependencies",
			code:   http.StatusOK,
			checks: map[string]string{},
		},
		{
			name:     "all healthy",
			checkers: []observability.Checker{checker("postgres", nil), checker("redis", nil)},
			code:     http.StatusOK,
			checks:   map[string]string{"postgres": "up", "redis": "up"},
		},
		{
			name:     "one failing",
			checkers: []observability.Checker{checker("postgres", nil), checker("redis", errors.New("connection refused"))},
			code:     http.StatusServiceUnavailable,
			checks:   map[string]string{"postgres": "up", "redis": "down: connection refused"},
		},
		{
			name:     "timeout",
			checkers: []observability.Checker{hanging},
			code:     http.StatusServiceUnavailable,
			checks:   map[string]string{"slow": "down: " + context.DeadlineExceeded.Error()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := observability.NewServer(nil, testConfig(), tt.checkers...)

			rec := get(t, srv.Handler(), "/ready")
			assert.Equal(t, tt.code, rec.Code)

			var body struct {
				Ready  bool              `json:"ready"`
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code == http.StatusOK, body.Ready)
			assert.Equal(t, tt.checks, body.Checks)
		})
	}
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()
	observability.PlacementCacheHits.Add(0)

	srv := observability.NewServer(nil, testConfig())
	rec := get(t, srv.Handler(), "/telemetry")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
	assert.Contains(t, rec.Body.String(), "adentity_placement_cache_hits_total")
}

func TestServer_ShutdownWithoutStart(t *testing.T) {
	t.Parallel()
	srv := observability.NewServer(nil, testConfig())
	assert.NoError(t, srv.Shutdown(context.Background()))
}

func TestNewServer_PanicsWithoutConfig(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { observability.NewServer(nil, nil) })
}
