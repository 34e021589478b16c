// Command adentity-control serves the admin REST API for placements and
// context field values, and enqueues read model updates for the syncer.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rafaeljc/adentity/internal/adcontext"
	"github.com/rafaeljc/adentity/internal/cache"
	"github.com/rafaeljc/adentity/internal/config"
	"github.com/rafaeljc/adentity/internal/controlapi"
	"github.com/rafaeljc/adentity/internal/database"
	"github.com/rafaeljc/adentity/internal/logger"
	"github.com/rafaeljc/adentity/internal/observability"
	"github.com/rafaeljc/adentity/internal/store"
	"github.com/rafaeljc/adentity/internal/widget"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(&cfg.App).With(slog.String("service", "control"))
	cfg.LogConfig(log)

	if err := run(cfg, log); err != nil {
		log.Error("control plane exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	var checkers []observability.Checker

	var repo store.Store
	switch cfg.Server.Control.StoreType {
	case config.StoreTypeMemory:
		log.Warn("using in-memory store, data is lost on restart")
		repo = store.NewMemoryStore()
	default:
		pool, err := database.NewPostgresPool(ctx, &cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
		go database.RunPoolMonitor(ctx, pool, cfg.Observability.PoolStatsInterval)
		checkers = append(checkers, database.NewHealthChecker(pool))
		repo = store.NewPostgresStore(pool)
	}

	redisClient, err := cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return err
	}
	redisCache := cache.NewRedisCache(redisClient, cfg.Redis.KeyPrefix)
	defer func() { _ = redisCache.Close() }()
	go cache.RunPoolMonitor(ctx, redisClient, cfg.Observability.PoolStatsInterval)
	checkers = append(checkers, cache.NewHealthChecker(redisClient))

	registry, err := adcontext.NewDefaultRegistry(cfg.Context.RuleTypes)
	if err != nil {
		return err
	}

	placements, err := cache.NewPlacementCache(repo, cfg.Context.PlacementCacheSize, cfg.Context.PlacementCacheTTL)
	if err != nil {
		return err
	}
	defer placements.Close()

	w := widget.New(registry, placements, cfg.Context.UnknownRulePolicy, log)

	controlCfg := cfg.Server.Control
	if controlCfg.APIKeyHash == "" {
		log.Warn("API key hash not set, authentication is disabled")
	}
	api := controlapi.NewAPIWithConfig(controlapi.Dependencies{
		Store:      repo,
		Publisher:  redisCache,
		RuleTypes:  registry,
		Widget:     w,
		Placements: placements,
		Logger:     log,
	}, controlapi.Options{
		APIKeyHash:         controlCfg.APIKeyHash,
		SkipAuth:           controlCfg.APIKeyHash == "",
		RateLimitPerMinute: controlCfg.RateLimitPerMinute,
	})

	obs := observability.NewServer(log, &cfg.Observability, checkers...)
	obs.Start()

	srv := &http.Server{
		Addr:              controlCfg.Address(),
		Handler:           api.Router,
		ReadTimeout:       controlCfg.ReadTimeout,
		ReadHeaderTimeout: controlCfg.ReadHeaderTimeout,
		WriteTimeout:      controlCfg.WriteTimeout,
		IdleTimeout:       controlCfg.IdleTimeout,
		MaxHeaderBytes:    controlCfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("control plane listening",
			slog.String("addr", srv.Addr),
			slog.Bool("tls", controlCfg.TLSEnabled),
		)
		var err error
		if controlCfg.TLSEnabled {
			err = srv.ListenAndServeTLS(controlCfg.TLSCert, controlCfg.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	return errors.Join(
		srv.Shutdown(shutdownCtx),
		obs.Shutdown(shutdownCtx),
	)
}
