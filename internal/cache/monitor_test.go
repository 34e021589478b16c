package cache

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/rafaeljc/adentity/internal/observability"
)

func TestRecordPoolStats(t *testing.T) {
	hits := func() float64 { return testutil.ToFloat64(observability.RedisPoolHits) }
	misses := func() float64 { return testutil.ToFloat64(observability.RedisPoolMisses) }

	start := hits()
	last := recordPoolStats(&redis.PoolStats{Hits: 5, Misses: 2, TotalConns: 3, IdleConns: 1}, redis.PoolStats{})
	assert.Equal(t, start+5, hits())
	assert.Equal(t, float64(3), testutil.ToFloat64(observability.RedisPoolConnections.WithLabelValues("total")))
	assert.Equal(t, float64(1), testutil.ToFloat64(observability.RedisPoolConnections.WithLabelValues("idle")))

	last = recordPoolStats(&redis.PoolStats{Hits: 8, Misses: 2, Timeouts: 1, TotalConns: 3}, last)
	assert.Equal(t, start+8, hits())

	// A reset client restarts its counters; nothing is subtracted.
	m := misses()
	recordPoolStats(&redis.PoolStats{}, last)
	assert.Equal(t, m, misses())
}
