package memcache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemCache is an in-process BytesCache for deployments without redis.
// Expiry is lazy: Get treats a stale entry as absent and removes it; there
// is no background sweep.
type MemCache struct {
	mu  sync.Mutex
	m   map[string]entry
	now func() time.Time
}

func New() *MemCache {
	return &MemCache{m: map[string]entry{}, now: time.Now}
}

func (c *MemCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.m[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.m, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *MemCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.m[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
	return nil
}
