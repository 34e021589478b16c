//go:build integration

package cache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/adentity/internal/cache"
	"github.com/rafaeljc/adentity/internal/testsupport"
)

func TestRedisPoolMonitor_Integration(t *testing.T) {
	ctx := context.Background()
	redisCtr, err := testsupport.StartRedisContainer(ctx)
	require.NoError(t, err)
	defer redisCtr.Terminate(ctx)

	endpoint, err := redisCtr.Container.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)

	// A small pool makes reuse and exhaustion deterministic.
	client := redis.NewClient(&redis.Options{Addr: endpoint, PoolSize: 3})
	defer client.Close()

	monitorCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go cache.RunPoolMonitor(monitorCtx, client, 10*time.Millisecond)

	t.Run("reports connections and hits", func(t *testing.T) {
		for i := range 10 {
			require.NoError(t, client.Set(ctx, fmt.Sprintf("pool-%d", i), "v", time.Minute).Err())
		}

		require.Eventually(t, func() bool {
			total := testsupport.GetMetricValue(t, "adentity_redis_pool_connections", map[string]string{"state": "total"})
			hits := testsupport.GetMetricValue(t, "adentity_redis_pool_hits_total", nil)
			return total >= 1 && hits > 0
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("counts misses under concurrent load", func(t *testing.T) {
		before := testsupport.GetMetricValue(t, "adentity_redis_pool_misses_total", nil)

		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				// BLPOP holds a connection for the whole wait.
				_ = client.BLPop(ctx, 200*time.Millisecond, fmt.Sprintf("empty-%d", i)).Err()
			}()
		}
		wg.Wait()

		require.Eventually(t, func() bool {
			return testsupport.GetMetricValue(t, "adentity_redis_pool_misses_total", nil) > before
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("timeout counter never decreases", func(t *testing.T) {
		before := testsupport.GetMetricValue(t, "adentity_redis_pool_timeouts_total", nil)

		tight, cancel := context.WithTimeout(ctx, time.Millisecond)
		defer cancel()
		for range 5 {
			_ = client.Get(tight, "missing").Err()
		}
		time.Sleep(50 * time.Millisecond)

		after := testsupport.GetMetricValue(t, "adentity_redis_pool_timeouts_total", nil)
		assert.GreaterOrEqual(t, after, before)
	})
}
