// Command adentity-syncer keeps the Redis read model in step with PostgreSQL.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rafaeljc/adentity/internal/cache"
	"github.com/rafaeljc/adentity/internal/config"
	"github.com/rafaeljc/adentity/internal/database"
	"github.com/rafaeljc/adentity/internal/logger"
	"github.com/rafaeljc/adentity/internal/observability"
	"github.com/rafaeljc/adentity/internal/store"
	"github.com/rafaeljc/adentity/internal/syncer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(&cfg.App).With(slog.String("service", "syncer"))
	cfg.LogConfig(log)

	if err := run(cfg, log); err != nil {
		log.Error("syncer exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	if !cfg.Syncer.Enabled {
		log.Warn("syncer disabled by configuration")
		return nil
	}
	if cfg.Server.Control.StoreType != config.StoreTypePostgres {
		return errors.New("syncer requires the postgres store")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	go database.RunPoolMonitor(ctx, pool, cfg.Observability.PoolStatsInterval)

	redisClient, err := cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return err
	}
	redisCache := cache.NewRedisCache(redisClient, cfg.Redis.KeyPrefix)
	defer func() { _ = redisCache.Close() }()
	go cache.RunPoolMonitor(ctx, redisClient, cfg.Observability.PoolStatsInterval)

	obs := observability.NewServer(log, &cfg.Observability,
		database.NewHealthChecker(pool),
		cache.NewHealthChecker(redisClient),
	)
	obs.Start()

	svc := syncer.New(log, cfg.Syncer, store.NewPostgresStore(pool), redisCache)
	runErr := svc.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	return errors.Join(runErr, obs.Shutdown(shutdownCtx))
}
