// Package cache owns everything adentity keeps in Redis: the update queue
// between the control plane and the syncer, the versioned read model the
// syncer maintains, and the hydration marker. It also hosts the in-process
// placement option cache used by the field widget.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rafaeljc/adentity/internal/validation"
)

// DefaultKeyPrefix namespaces every key written by adentity.
const DefaultKeyPrefix = "adentity"

var (
	// ErrQueueEmpty is returned by PopUpdate when nothing arrived before the timeout.
	ErrQueueEmpty = errors.New("update queue is empty")

	// ErrNotCached is returned by Get for keys absent from the read model.
	ErrNotCached = errors.New("not cached")
)

// SetResult is the outcome of a versioned write.
type SetResult int

const (
	// SetResultSkipped means the stored version was equal or newer.
	SetResultSkipped SetResult = 0
	// SetResultUpdated means the value was written.
	SetResultUpdated SetResult = 1
	// SetResultRepaired means a value without a version prefix was overwritten.
	SetResultRepaired SetResult = 2
)

func (r SetResult) String() string {
	switch r {
	case SetResultSkipped:
		return "skipped"
	case SetResultUpdated:
		return "updated"
	case SetResultRepaired:
		return "repaired"
	}
	return "unknown"
}

// setIfNewerScript writes ARGV[2] unless the stored value carries a version
// greater than or equal to ARGV[1].
var setIfNewerScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
	redis.call('SET', KEYS[1], ARGV[2])
	return 1
end
local sep = string.find(current, '|', 1, true)
local stored = sep and tonumber(string.sub(current, 1, sep - 1))
if not stored then
	redis.call('SET', KEYS[1], ARGV[2])
	return 2
end
if tonumber(ARGV[1]) > stored then
	redis.call('SET', KEYS[1], ARGV[2])
	return 1
end
return 0
`)

// Service is the Redis surface used by the control plane and the syncer.
type Service interface {
	// PublishUpdate enqueues key at version for the syncer.
	PublishUpdate(ctx context.Context, key string, version int64) error

	// PopUpdate blocks up to timeout for the next event. It returns
	// ErrQueueEmpty when the wait times out.
	PopUpdate(ctx context.Context, timeout time.Duration) (string, int64, error)

	QueueDepth(ctx context.Context) (int64, error)

	// SetSafely JSON-encodes payload and stores it under key only if version
	// is newer than what is stored.
	SetSafely(ctx context.Context, key string, payload any, version int64) (SetResult, error)

	// Get returns the raw JSON stored under key and its version.
	Get(ctx context.Context, key string) ([]byte, int64, error)

	Delete(ctx context.Context, key string) error

	IsHydrated(ctx context.Context) (bool, error)
	MarkHydrated(ctx context.Context) error

	Close() error
}

var _ Service = (*RedisCache)(nil)

// RedisCache implements Service on go-redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps client. An empty prefix falls back to DefaultKeyPrefix.
func NewRedisCache(client *redis.Client, prefix ...string) *RedisCache {
	validation.AssertNotNil(client, "redis client")

	p := DefaultKeyPrefix
	if len(prefix) > 0 && prefix[0] != "" {
		p = prefix[0]
	}
	return &RedisCache{client: client, prefix: p}
}

// Client exposes the underlying client for pool monitoring and health checks.
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

func (c *RedisCache) key(parts ...string) string {
	k := c.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (c *RedisCache) queueKey() string    { return c.key("queue", "updates") }
func (c *RedisCache) hydratedKey() string { return c.key("sys", "hydrated") }

func (c *RedisCache) PublishUpdate(ctx context.Context, key string, version int64) error {
	if err := c.client.LPush(ctx, c.queueKey(), EncodeQueueMessage(key, version)).Err(); err != nil {
		return fmt.Errorf("failed to publish update for %q: %w", key, err)
	}
	return nil
}

func (c *RedisCache) PopUpdate(ctx context.Context, timeout time.Duration) (string, int64, error) {
	res, err := c.client.BRPop(ctx, timeout, c.queueKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", 0, ErrQueueEmpty
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to pop update: %w", err)
	}
	// res is [queue, message]
	key, version := DecodeQueueMessage(res[1])
	return key, version, nil
}

func (c *RedisCache) QueueDepth(ctx context.Context) (int64, error) {
	n, err := c.client.LLen(ctx, c.queueKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue depth: %w", err)
	}
	return n, nil
}

func (c *RedisCache) SetSafely(ctx context.Context, key string, payload any, version int64) (SetResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return SetResultSkipped, fmt.Errorf("failed to encode %q: %w", key, err)
	}

	res, err := setIfNewerScript.Run(ctx, c.client, []string{c.key(key)}, version, encodeValue(data, version)).Int()
	if err != nil {
		return SetResultSkipped, fmt.Errorf("failed to write %q: %w", key, err)
	}
	return SetResult(res), nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, int64, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("key %q: %w", key, ErrNotCached)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %q: %w", key, err)
	}
	payload, version := decodeValue(raw)
	return []byte(payload), version, nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

func (c *RedisCache) IsHydrated(ctx context.Context) (bool, error) {
	n, err := c.client.Exists(ctx, c.hydratedKey()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read hydration marker: %w", err)
	}
	return n == 1, nil
}

func (c *RedisCache) MarkHydrated(ctx context.Context) error {
	if err := c.client.Set(ctx, c.hydratedKey(), "1", 0).Err(); err != nil {
		return fmt.Errorf("failed to set hydration marker: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
