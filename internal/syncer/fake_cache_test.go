package syncer_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rafaeljc/adentity/internal/cache"
)

type entry struct {
	payload []byte
	version int64
}

// fakeCache is an in-memory cache.Service with the same versioning rules as
// the Lua script.
type fakeCache struct {
	mu         sync.Mutex
	values     map[string]entry
	hydrated   bool
	setErrors  int
	queue      chan string
	hydrations int
}

var _ cache.Service = (*fakeCache)(nil)

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]entry), queue: make(chan string, 100)}
}

func (f *fakeCache) PublishUpdate(_ context.Context, key string, version int64) error {
	f.queue <- cache.EncodeQueueMessage(key, version)
	return nil
}

func (f *fakeCache) PopUpdate(ctx context.Context, timeout time.Duration) (string, int64, error) {
	select {
	case msg := <-f.queue:
		key, version := cache.DecodeQueueMessage(msg)
		return key, version, nil
	case <-time.After(timeout):
		return "", 0, cache.ErrQueueEmpty
	case <-ctx.Done():
		return "", 0, ctx.Err()
	}
}

func (f *fakeCache) QueueDepth(context.Context) (int64, error) {
	return int64(len(f.queue)), nil
}

func (f *fakeCache) SetSafely(_ context.Context, key string, payload any, version int64) (cache.SetResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.setErrors > 0 {
		f.setErrors--
		return cache.SetResultSkipped, errors.New("redis unavailable")
	}
	if current, ok := f.values[key]; ok && current.version >= version {
		return cache.SetResultSkipped, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return cache.SetResultSkipped, err
	}
	f.values[key] = entry{payload: data, version: version}
	return cache.SetResultUpdated, nil
}

func (f *fakeCache) Get(_ context.Context, key string) ([]byte, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.values[key]
	if !ok {
		return nil, 0, cache.ErrNotCached
	}
	return e.payload, e.version, nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

func (f *fakeCache) IsHydrated(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hydrated, nil
}

func (f *fakeCache) MarkHydrated(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hydrated = true
	f.hydrations++
	return nil
}

// flush simulates losing Redis state.
func (f *fakeCache) flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = make(map[string]entry)
	f.hydrated = false
}

func (f *fakeCache) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.values[key]
	return ok
}

func (f *fakeCache) Close() error                      { return nil }
