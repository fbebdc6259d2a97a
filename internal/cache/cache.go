package cache

import (
	"context"
	"time"
)

// BytesCache is the storage contract for cached tracking results. Expired
// entries must be indistinguishable from absent ones to readers.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
