// Package syncer implements the worker that propagates writes from the
// source of truth (PostgreSQL) into the Redis read model.
//
// The control plane enqueues "<kind>:<id>:<version>" events. For each event
// the syncer reloads the record and writes it with a compare-and-set on the
// version, so replays and out-of-order events never regress the read model.
// A full hydration runs at startup and whenever the hydration marker
// disappears (for instance after a Redis flush).
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rafaeljc/adentity/internal/cache"
	"github.com/rafaeljc/adentity/internal/config"
	"github.com/rafaeljc/adentity/internal/observability"
	"github.com/rafaeljc/adentity/internal/store"
	"github.com/rafaeljc/adentity/internal/validation"
)

// errUnknownKind marks events that can never succeed and are not retried.
var errUnknownKind = errors.New("unknown event kind")

// Service orchestrates the synchronization process.
type Service struct {
	logger *slog.Logger
	config config.SyncerConfig
	repo   store.Store
	cache  cache.Service
}

// New creates a syncer. Zero config values fall back to safe defaults.
func New(logger *slog.Logger, cfg config.SyncerConfig, repo store.Store, cacheSvc cache.Service) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	validation.AssertNotNil(repo, "store")
	validation.AssertNotNil(cacheSvc, "cache service")

	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = 5 * time.Second
	}
	if cfg.BaseRetryDelay <= 0 {
		cfg.BaseRetryDelay = time.Second
	}
	cfg.HydrationConcurrency = max(cfg.HydrationConcurrency, 1)
	if cfg.HydrationBatchSize < 1 {
		cfg.HydrationBatchSize = 100
	}

	return &Service{
		logger: logger,
		config: cfg,
		repo:   repo,
		cache:  cacheSvc,
	}
}

// Run hydrates the read model if needed and then consumes the update queue
// until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("starting syncer service",
		slog.Duration("pop_timeout", s.config.PopTimeout),
		slog.Duration("hydration_check_interval", s.config.HydrationCheckInterval),
	)

	if err := s.ensureHydrated(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		// The watchdog retries; events can still be processed meanwhile.
		s.logger.Error("initial hydration failed", slog.String("error", err.Error()))
	}

	if s.config.HydrationCheckInterval > 0 {
		go s.runHydrationWatchdog(ctx)
	}

	for {
		if ctx.Err() != nil {
			s.logger.Info("syncer service stopping")
			return nil
		}

		key, version, err := s.cache.PopUpdate(ctx, s.config.PopTimeout)
		switch {
		case errors.Is(err, cache.ErrQueueEmpty):
			s.recordQueueDepth(ctx)
			continue
		case err != nil:
			if ctx.Err() != nil {
				continue
			}
			s.logger.Error("failed to pop update", slog.String("error", err.Error()))
			s.wait(ctx, s.config.BaseRetryDelay)
			continue
		}

		s.handle(ctx, key, version)
		s.recordQueueDepth(ctx)
	}
}

// handle processes one event with retries and records its metrics.
func (s *Service) handle(ctx context.Context, key string, version int64) {
	start := time.Now()
	kind, _, _ := cache.SplitKey(key)
	log := s.logger.With(slog.String("key", key), slog.Int64("version", version))

	err := s.withRetry(ctx, func() error { return s.Sync(ctx, key) })
	observability.SyncerJobDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		observability.SyncerJobsTotal.WithLabelValues(kind, "fail").Inc()
		log.Error("failed to sync update", slog.String("error", err.Error()))
		return
	}
	observability.SyncerJobsTotal.WithLabelValues(kind, "success").Inc()
	log.Debug("update synced")
}

// withRetry runs fn up to MaxRetries+1 times with exponential backoff.
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	delay := s.config.BaseRetryDelay
	var err error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if err = fn(); err == nil || errors.Is(err, errUnknownKind) {
			return err
		}
		if attempt == s.config.MaxRetries {
			break
		}
		s.logger.Warn("sync attempt failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()))
		if !s.wait(ctx, delay) {
			return ctx.Err()
		}
		delay *= 2
	}
	return err
}

// Sync reloads the record behind key from the store and writes it to the
// read model, or removes it when the record no longer exists.
func (s *Service) Sync(ctx context.Context, key string) error {
	kind, id, ok := cache.SplitKey(key)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownKind, key)
	}

	switch kind {
	case cache.KindPlacement:
		return s.syncPlacement(ctx, id)
	case cache.KindContext:
		owner, err := store.ParseFieldOwner(id)
		if err != nil {
			return fmt.Errorf("%w: %v", errUnknownKind, err)
		}
		return s.syncField(ctx, owner)
	default:
		return fmt.Errorf("%w: %q", errUnknownKind, kind)
	}
}

func (s *Service) syncPlacement(ctx context.Context, id string) error {
	key := cache.PlacementKey(id)

	p, err := s.repo.GetPlacement(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return s.cache.Delete(ctx, key)
	}
	if err != nil {
		return err
	}
	return s.write(ctx, cache.KindPlacement, key, newPlacementDoc(p), p.Version)
}

func (s *Service) syncField(ctx context.Context, owner store.FieldOwner) error {
	key := cache.ContextKey(owner.Key())

	values, err := s.repo.LoadAssignments(ctx, owner)
	if err != nil {
		return err
	}
	if values.Version == 0 {
		return s.cache.Delete(ctx, key)
	}
	return s.write(ctx, cache.KindContext, key, values.Assignments, values.Version)
}

func (s *Service) write(ctx context.Context, kind, key string, payload any, version int64) error {
	res, err := s.cache.SetSafely(ctx, key, payload, version)
	if err != nil {
		return err
	}
	observability.ReadModelWritesTotal.WithLabelValues(kind, res.String()).Inc()
	if res == cache.SetResultRepaired {
		s.logger.Warn("repaired read model value without version", slog.String("key", key))
	}
	return nil
}

func (s *Service) recordQueueDepth(ctx context.Context) {
	depth, err := s.cache.QueueDepth(ctx)
	if err != nil {
		return
	}
	observability.RedisQueueDepth.Set(float64(depth))
}

// wait sleeps for d and reports false if ctx ended first.
func (s *Service) wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
