package memcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemCache_GetSet(t *testing.T) {
	c := New()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "fedex:123", []byte("v"), time.Minute))

	b, ok, err := c.Get(ctx, "fedex:123")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), b)

	_, ok, err = c.Get(ctx, "fedex:456")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemCache_LazyExpiry(t *testing.T) {
	c := New()
	now := time.Now()
	c.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Minute))

	// Just before expiry the entry is visible.
	now = now.Add(10*time.Minute - time.Second)
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	// At/after expiry the entry is indistinguishable from absent.
	now = now.Add(2 * time.Second)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	// A second Get stays absent (entry was dropped).
	_, ok, _ = c.Get(ctx, "k")
	require.False(t, ok)
}

func TestMemCache_OneLiveEntryPerKey(t *testing.T) {
	c := New()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("old"), time.Minute))
	require.NoError(t, c.Set(ctx, "k", []byte("new"), time.Minute))

	b, ok, _ := c.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, []byte("new"), b)
}
