package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/maypok86/otter"
	"golang.org/x/sync/singleflight"

	"github.com/rafaeljc/adentity/internal/form"
	"github.com/rafaeljc/adentity/internal/observability"
	"github.com/rafaeljc/adentity/internal/store"
	"github.com/rafaeljc/adentity/internal/validation"
)

const placementsKey = "placements"

// PlacementLister is the read side of store.PlacementRepository the cache needs.
type PlacementLister interface {
	ListAllPlacements(ctx context.Context) ([]*store.Placement, error)
}

// PlacementCache is the in-process L1 for the placement list, backed by otter
// (S3-FIFO eviction plus TTL). Concurrent misses share a single store round trip.
type PlacementCache struct {
	source PlacementLister
	store  otter.Cache[string, []*store.Placement]
	group  singleflight.Group

	// mu orders Invalidate against the write-back of a fetch. A fetch that
	// started before the last Invalidate must not be cached.
	mu         sync.Mutex
	generation uint64
}

// NewPlacementCache holds the list for at most ttl.
func NewPlacementCache(source PlacementLister, capacity int, ttl time.Duration) (*PlacementCache, error) {
	validation.AssertNotNil(source, "placement source")

	c, err := otter.MustBuilder[string, []*store.Placement](capacity).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build placement cache: %w", err)
	}
	return &PlacementCache{source: source, store: c}, nil
}

// Placements returns every placement ordered by label. The returned values
// are shared with the cache and must not be modified.
func (c *PlacementCache) Placements(ctx context.Context) ([]*store.Placement, error) {
	if v, ok := c.store.Get(placementsKey); ok {
		observability.PlacementCacheHits.Inc()
		return v, nil
	}
	observability.PlacementCacheMisses.Inc()

	v, err, _ := c.group.Do(placementsKey, func() (any, error) {
		c.mu.Lock()
		gen := c.generation
		c.mu.Unlock()

		list, err := c.source.ListAllPlacements(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.generation == gen {
			c.store.Set(placementsKey, list)
		}
		c.mu.Unlock()
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*store.Placement), nil
}

// PlacementOptions lists placements as id -> label choices for the apply_to selector.
func (c *PlacementCache) PlacementOptions(ctx context.Context) ([]form.Option, error) {
	placements, err := c.Placements(ctx)
	if err != nil {
		return nil, err
	}
	options := make([]form.Option, len(placements))
	for i, p := range placements {
		options[i] = form.Option{Value: p.ID, Label: p.Label}
	}
	return options, nil
}

// Invalidate drops the cached list after a placement write. Reads that start
// afterwards reload from the store instead of joining a fetch already in flight.
func (c *PlacementCache) Invalidate() {
	c.mu.Lock()
	c.generation++
	c.store.Delete(placementsKey)
	c.group.Forget(placementsKey)
	c.mu.Unlock()
	observability.PlacementCacheInvalidations.Inc()
}

// Close stops otter's background goroutines.
func (c *PlacementCache) Close() {
	c.store.Close()
}
