// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestMemoryCache returns a memory cache without a sweeper whose clock
// is advanced by the returned function.
func newTestMemoryCache(t *testing.T, opts MemoryCacheOptions) (*MemoryCache, func(time.Duration)) {
	t.Helper()

	c := NewMemoryCache(opts)
	t.Cleanup(func() { _ = c.Close() })

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	c.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	return c, func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}
}

func TestMemoryCache_SetGetDelete(t *testing.T) {
	c, _ := newTestMemoryCache(t, MemoryCacheOptions{DefaultTTL: time.Hour})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "article:hello-world", []byte(`{"title":"Hello"}`), 0))

	got, err := c.Get(ctx, "article:hello-world")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Hello"}`, string(got))

	require.NoError(t, c.Delete(ctx, "article:hello-world"))
	_, err = c.Get(ctx, "article:hello-world")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Zero(t, c.Stats().Items)
}

func TestMemoryCache_DefaultTTL(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{})
	defer func() { _ = c.Close() }()
	assert.Equal(t, 5*time.Minute, c.defaultTTL)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c, advance := newTestMemoryCache(t, MemoryCacheOptions{DefaultTTL: time.Hour})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "articles:published", []byte("list"), 0))
	require.NoError(t, c.Set(ctx, "article:short", []byte("one"), time.Minute))

	advance(time.Minute + time.Second)
	_, err := c.Get(ctx, "article:short")
	assert.ErrorIs(t, err, ErrCacheMiss, "custom ttl expired")

	_, err = c.Get(ctx, "articles:published")
	assert.NoError(t, err, "default ttl still live")

	advance(time.Hour)
	_, err = c.Get(ctx, "articles:published")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_DeleteByPrefix(t *testing.T) {
	c, _ := newTestMemoryCache(t, MemoryCacheOptions{DefaultTTL: time.Hour})
	ctx := context.Background()

	for _, k := range []string{"article:a", "article:b", "articles:published", "session:x"} {
		require.NoError(t, c.Set(ctx, k, []byte(k), 0))
	}

	require.NoError(t, c.DeleteByPrefix(ctx, "article:"))
	for k, live := range map[string]bool{"article:a": false, "article:b": false, "articles:published": true, "session:x": true} {
		_, err := c.Get(ctx, k)
		if live {
			assert.NoError(t, err, k)
		} else {
			assert.ErrorIs(t, err, ErrCacheMiss, k)
		}
	}

	require.NoError(t, c.DeleteByPrefix(ctx, ""))
	assert.Zero(t, c.Stats().Items)
	assert.Zero(t, c.Stats().Size)
}

func TestMemoryCache_Stats(t *testing.T) {
	c, _ := newTestMemoryCache(t, MemoryCacheOptions{DefaultTTL: time.Hour})
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1234"), 0)
	_ = c.Set(ctx, "b", []byte("56"), 0)
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "missing")

	s := c.Stats()
	assert.Equal(t, "memory", s.Backend)
	assert.EqualValues(t, 2, s.Hits)
	assert.EqualValues(t, 1, s.Misses)
	assert.EqualValues(t, 2, s.Sets)
	assert.Equal(t, 2, s.Items)
	assert.EqualValues(t, 6, s.Size)
	assert.InDelta(t, 200.0/3, s.HitRate, 0.01)

	_ = c.Set(ctx, "a", []byte("1"), 0)
	assert.EqualValues(t, 3, c.Stats().Size, "overwrite replaces the old size")

	c.ResetStats()
	s = c.Stats()
	assert.Zero(t, s.Hits)
	assert.Zero(t, s.Misses)
	assert.Zero(t, s.Sets)
	assert.Equal(t, 2, s.Items, "reset keeps entries")
}

func TestMemoryCache_CopiesValues(t *testing.T) {
	c, _ := newTestMemoryCache(t, MemoryCacheOptions{DefaultTTL: time.Hour})
	ctx := context.Background()

	in := []byte("original")
	require.NoError(t, c.Set(ctx, "k", in, 0))
	in[0] = 'X'

	out, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "original", string(out))

	out[0] = 'Y'
	again, _ := c.Get(ctx, "k")
	assert.Equal(t, "original", string(again))
}

func TestMemoryCache_EvictsWhenFull(t *testing.T) {
	c, advance := newTestMemoryCache(t, MemoryCacheOptions{DefaultTTL: time.Hour, MaxSize: 2})
	ctx := context.Background()

	_ = c.Set(ctx, "first", []byte("1"), time.Minute)
	_ = c.Set(ctx, "second", []byte("2"), time.Hour)
	_ = c.Set(ctx, "third", []byte("3"), time.Hour)

	assert.Equal(t, 2, c.Stats().Items)
	_, err := c.Get(ctx, "first")
	assert.ErrorIs(t, err, ErrCacheMiss, "entry closest to expiry is evicted")

	_ = c.Set(ctx, "second", []byte("2b"), time.Hour)
	_, err = c.Get(ctx, "third")
	assert.NoError(t, err, "overwrite at capacity evicts nothing")

	// Expired entries are swept before anything live is evicted.
	_ = c.Set(ctx, "third", []byte("3"), time.Second)
	advance(2 * time.Second)
	_ = c.Set(ctx, "fourth", []byte("4"), time.Hour)
	_, err = c.Get(ctx, "second")
	assert.NoError(t, err)
	_, err = c.Get(ctx, "fourth")
	assert.NoError(t, err)
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c, _ := newTestMemoryCache(t, MemoryCacheOptions{DefaultTTL: time.Hour, MaxSize: 50})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				key := fmt.Sprintf("article:%d", (i*j)%80)
				_ = c.Set(ctx, key, []byte("v"), 0)
				_, _ = c.Get(ctx, key)
				if j%25 == 0 {
					_ = c.DeleteByPrefix(ctx, "article:1")
				}
			}
		}()
	}
	wg.Wait()

	assert.Positive(t, c.Stats().Items)
}

func TestMemoryCache_Close(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour, CleanupInterval: time.Millisecond})
	ctx := context.Background()
	_ = c.Set(ctx, "k", []byte("v"), 0)
	require.NoError(t, c.Ping(ctx))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "Close is idempotent")

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheClosed)
	assert.ErrorIs(t, c.Set(ctx, "k", nil, 0), ErrCacheClosed)
	assert.ErrorIs(t, c.Delete(ctx, "k"), ErrCacheClosed)
	assert.ErrorIs(t, c.DeleteByPrefix(ctx, "k"), ErrCacheClosed)
	assert.ErrorIs(t, c.Ping(ctx), ErrCacheClosed)
}
