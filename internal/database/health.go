package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthChecker pings PostgreSQL for the readiness probe.
type HealthChecker struct {
	pool *pgxpool.Pool
}

// NewHealthChecker wraps pool. A nil pool always reports unhealthy.
func NewHealthChecker(pool *pgxpool.Pool) *HealthChecker {
	return &HealthChecker{pool: pool}
}

func (*HealthChecker) Name() string { return "postgres" }

// Check acquires a connection and pings it.
func (h *HealthChecker) Check(ctx context.Context) error {
	if h.pool == nil {
		return errors.New("no database pool configured")
	}
	if err := h.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}
