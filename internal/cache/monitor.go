package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rafaeljc/adentity/internal/observability"
)

// RunPoolMonitor samples the client's pool stats every interval until ctx
// is done. go-redis exposes cumulative counters, so only deltas are added.
func RunPoolMonitor(ctx context.Context, client *redis.Client, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last redis.PoolStats
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last = recordPoolStats(client.PoolStats(), last)
		}
	}
}

func recordPoolStats(stats *redis.PoolStats, last redis.PoolStats) redis.PoolStats {
	observability.RedisPoolConnections.WithLabelValues("total").Set(float64(stats.TotalConns))
	observability.RedisPoolConnections.WithLabelValues("idle").Set(float64(stats.IdleConns))
	observability.RedisPoolConnections.WithLabelValues("stale").Set(float64(stats.StaleConns))

	if d := stats.Hits - last.Hits; stats.Hits >= last.Hits && d > 0 {
		observability.RedisPoolHits.Add(float64(d))
	}
	if d := stats.Misses - last.Misses; stats.Misses >= last.Misses && d > 0 {
		observability.RedisPoolMisses.Add(float64(d))
	}
	if d := stats.Timeouts - last.Timeouts; stats.Timeouts >= last.Timeouts && d > 0 {
		observability.RedisPoolTimeouts.Add(float64(d))
	}
	return *stats
}
