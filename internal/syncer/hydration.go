package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rafaeljc/adentity/internal/observability"
	"github.com/rafaeljc/adentity/internal/store"
)

// placementDoc is the read model shape of a placement.
type placementDoc struct {
	ID        string    `json:"id"`
	UUID      string    `json:"uuid"`
	Label     string    `json:"label"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newPlacementDoc(p *store.Placement) placementDoc {
	return placementDoc{
		ID:        p.ID,
		UUID:      p.UUID,
		Label:     p.Label,
		Version:   p.Version,
		UpdatedAt: p.UpdatedAt,
	}
}

func (s *Service) ensureHydrated(ctx context.Context) error {
	hydrated, err := s.cache.IsHydrated(ctx)
	if err != nil {
		return err
	}
	if hydrated {
		s.logger.Info("read model already hydrated")
		return nil
	}
	return s.Hydrate(ctx)
}

// runHydrationWatchdog re-hydrates whenever the marker goes missing.
func (s *Service) runHydrationWatchdog(ctx context.Context) {
	ticker := time.NewTicker(s.config.HydrationCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ensureHydrated(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("hydration check failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Hydrate writes every placement and every saved field to the read model and
// then sets the hydration marker. Versioned writes make it safe to run while
// events are being processed.
func (s *Service) Hydrate(ctx context.Context) error {
	start := time.Now()
	s.logger.Info("hydrating read model")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.HydrationConcurrency)

	placements := 0
	for offset := 0; ; offset += s.config.HydrationBatchSize {
		batch, _, err := s.repo.ListPlacements(gctx, s.config.HydrationBatchSize, offset)
		if err != nil {
			_ = g.Wait()
			return s.hydrationFailed(fmt.Errorf("failed to list placements: %w", err))
		}
		for _, p := range batch {
			g.Go(func() error { return s.syncPlacement(gctx, p.ID) })
		}
		placements += len(batch)
		if len(batch) < s.config.HydrationBatchSize {
			break
		}
	}

	owners, err := s.repo.ListFieldOwners(gctx)
	if err != nil {
		_ = g.Wait()
		return s.hydrationFailed(fmt.Errorf("failed to list fields: %w", err))
	}
	for _, owner := range owners {
		g.Go(func() error { return s.syncField(gctx, owner) })
	}

	if err := g.Wait(); err != nil {
		return s.hydrationFailed(err)
	}
	if err := s.cache.MarkHydrated(ctx); err != nil {
		return s.hydrationFailed(err)
	}

	observability.SyncerHydrationsTotal.WithLabelValues("success").Inc()
	s.logger.Info("read model hydrated",
		slog.Int("placements", placements),
		slog.Int("fields", len(owners)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (s *Service) hydrationFailed(err error) error {
	observability.SyncerHydrationsTotal.WithLabelValues("fail").Inc()
	return fmt.Errorf("hydration failed: %w", err)
}
