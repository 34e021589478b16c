// Package database provides the PostgreSQL connection factory and pool telemetry.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafaeljc/adentity/internal/config"
	"github.com/rafaeljc/adentity/internal/logger"
	"github.com/rafaeljc/adentity/internal/observability"
)

// NewPostgresPool creates a pool from cfg and waits until the database answers,
// retrying the ping with exponential backoff.
func NewPostgresPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config cannot be nil")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	maxRetries := max(cfg.PingMaxRetries, 1)
	backoff := cfg.PingBackoff
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	log := logger.FromContext(ctx)
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		lastErr = pool.Ping(pingCtx)
		cancel()

		if lastErr == nil {
			log.Info("postgres ping successful", slog.Int("attempt", attempt))
			return pool, nil
		}

		log.Warn("postgres ping failed",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", maxRetries),
			slog.Any("error", lastErr))

		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				pool.Close()
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	pool.Close()
	return nil, fmt.Errorf("failed to connect to postgres after %d retries: %w", maxRetries, lastErr)
}

// RunPoolMonitor samples pool statistics into Prometheus until ctx is done.
func RunPoolMonitor(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last poolCounters
	for {
		last = recordPoolStats(pool.Stat(), last)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poolCounters remembers cumulative pgx counters so they can be exported as deltas.
type poolCounters struct {
	acquires     int64
	acquireTime  time.Duration
	emptyAcquire int64
}

func recordPoolStats(stat *pgxpool.Stat, last poolCounters) poolCounters {
	observability.DatabasePoolConnections.WithLabelValues("total").Set(float64(stat.TotalConns()))
	observability.DatabasePoolConnections.WithLabelValues("idle").Set(float64(stat.IdleConns()))
	observability.DatabasePoolConnections.WithLabelValues("in_use").Set(float64(stat.AcquiredConns()))
	observability.DatabasePoolConnections.WithLabelValues("max").Set(float64(stat.MaxConns()))

	current := poolCounters{
		acquires:     stat.AcquireCount(),
		acquireTime:  stat.AcquireDuration(),
		emptyAcquire: stat.EmptyAcquireCount(),
	}
	if d := current.acquires - last.acquires; d > 0 {
		observability.DatabasePoolAcquireCount.Add(float64(d))
	}
	if d := current.acquireTime - last.acquireTime; d > 0 {
		observability.DatabasePoolAcquireDuration.Add(d.Seconds())
	}
	if d := current.emptyAcquire - last.emptyAcquire; d > 0 {
		observability.DatabasePoolWaitCount.Add(float64(d))
	}
	return current
}
