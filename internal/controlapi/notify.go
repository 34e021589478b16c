package controlapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/rafaeljc/adentity/internal/observability"
)

const publishMaxRetries = 3

// notifyCacheAsync enqueues key for the syncer without blocking the request.
// Failures are retried with exponential backoff and then logged. A lost event
// is recovered by the next write to the same record or by a full hydration.
func (a *API) notifyCacheAsync(log *slog.Logger, key string, version int64) {
	go func() {
		// Detached from the request, which may already be finished.
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		delay := a.publishRetryDelay
		for attempt := 0; ; attempt++ {
			err := a.publisher.PublishUpdate(ctx, key, version)
			if err == nil {
				observability.UpdatePublishTotal.WithLabelValues("success").Inc()
				return
			}

			if attempt == publishMaxRetries {
				observability.UpdatePublishTotal.WithLabelValues("fail").Inc()
				log.Error("failed to publish update event after retries",
					slog.String("key", key),
					slog.Int64("version", version),
					slog.String("error", err.Error()))
				return
			}

			log.Warn("failed to publish update, retrying",
				slog.String("key", key),
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()))

			select {
			case <-ctx.Done():
				observability.UpdatePublishTotal.WithLabelValues("fail").Inc()
				return
			case <-time.After(delay):
			}
			delay *= 2
		}
	}()
}
