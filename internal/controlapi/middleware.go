package controlapi

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/rafaeljc/adentity/internal/logger"
	"github.com/rafaeljc/adentity/internal/observability"
)

// APIKeyHeader carries the plain API key.
const APIKeyHeader = "X-API-Key"

// RequestLogger injects a request-scoped logger into the context, logs the
// completed request and records the control plane HTTP metrics.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLog := base.With(slog.String("request_id", middleware.GetReqID(r.Context())))
			r = r.WithContext(logger.WithContext(r.Context(), reqLog))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			route := routeLabel(r, status)
			observability.ControlPlaneReqDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())
			observability.ControlPlaneReqTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()

			level := slog.LevelInfo
			if status >= 500 {
				level = slog.LevelError
			} else if status >= 400 {
				level = slog.LevelWarn
			}

			reqLog.Log(r.Context(), level, "HTTP request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", route),
				slog.Int("status", status),
				slog.Duration("duration", duration),
				slog.String("remote_ip", r.RemoteAddr),
			)
		})
	}
}

// routeLabel keeps metric cardinality bounded: matched requests report the
// route pattern, anything chi could not route collapses to "not_found".
func routeLabel(r *http.Request, status int) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "not_found"
	}
	pattern := rctx.RoutePattern()
	if pattern == "" || (status == http.StatusNotFound && strings.HasSuffix(pattern, "*")) {
		return "not_found"
	}
	return pattern
}

// authenticateAPIKey compares the SHA-256 of the X-API-Key header with the
// configured hash in constant time.
func (a *API) authenticateAPIKey(next http.Handler) http.Handler {
	if a.opts.SkipAuth {
		return next
	}
	want, err := hex.DecodeString(strings.ToLower(a.opts.APIKeyHash))
	if err != nil {
		panic("controlapi: apiKeyHash must be hex encoded")
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			writeError(w, r, http.StatusUnauthorized, "ERR_UNAUTHORIZED", "Missing API key")
			return
		}
		sum := sha256.Sum256([]byte(key))
		if subtle.ConstantTimeCompare(sum[:], want) != 1 {
			logger.FromContext(r.Context()).Warn("rejected API key", slog.String("remote_ip", r.RemoteAddr))
			writeError(w, r, http.StatusUnauthorized, "ERR_UNAUTHORIZED", "Invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Code: code, Message: message})
}
