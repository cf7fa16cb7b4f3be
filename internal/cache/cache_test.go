// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMemoryCache_GetSet(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()

	c.Set(ctx, "key1", []byte("value1"), 5*time.Minute)

	val, ok := c.Get(ctx, "key1")
	require.True(t, ok)
	assert.Equal(t, []byte("value1"), val)

	_, ok = c.Get(ctx, "nonexistent")
	assert.False(t, ok)
}

func TestMemoryCache_ValuesAreCopied(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()

	in := []byte("abc")
	c.Set(ctx, "k", in, time.Minute)
	in[0] = 'x'

	out, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "abc", string(out))
	out[0] = 'y'

	again, _ := c.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestMemoryCache_Expiration(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set(ctx, "short", []byte("v"), time.Minute)
	_, ok := c.Get(ctx, "short")
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "short")
	assert.False(t, ok)

	assert.Equal(t, 1, c.deleteExpired())
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestMemoryCache_NonPositiveTTLIgnored(t *testing.T) {
	c := NewMemoryCache(0)
	c.Set(context.Background(), "k", []byte("v"), 0)
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.Stats().Sets)
}

func TestMemoryCache_DeleteAndStats(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)
	c.Get(ctx, "a")
	c.Get(ctx, "a")
	c.Get(ctx, "zzz")
	c.Delete(ctx, "b")

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(2), stats.Sets)
	assert.Equal(t, 1, stats.CurrentSize)
}

func TestMemoryCache_JanitorStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := NewMemoryCache(10 * time.Millisecond)
	c.Set(context.Background(), "k", []byte("v"), time.Millisecond)

	require.Eventually(t, func() bool {
		return c.Stats().CurrentSize == 0
	}, time.Second, 5*time.Millisecond)

	c.Stop()
	c.Stop()
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	defer c.Stop()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set(ctx, "key", []byte{byte(j)}, time.Minute)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Get(ctx, "key")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(400), c.Stats().Sets)
}

func TestNoOpCache(t *testing.T) {
	c := NewNoOpCache()
	ctx := context.Background()

	c.Set(ctx, "key", []byte("value"), time.Minute)
	_, ok := c.Get(ctx, "key")
	assert.False(t, ok)
	c.Delete(ctx, "key")
	assert.Equal(t, Stats{}, c.Stats())
}

func TestNewSelectsBackend(t *testing.T) {
	c, closeFn, err := New(Config{}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)
	require.NoError(t, closeFn())

	c, closeFn, err = New(Config{Backend: BackendNone}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, NewNoOpCache(), c)
	require.NoError(t, closeFn())

	_, _, err = New(Config{Backend: "memcached"}, zerolog.Nop())
	assert.Error(t, err)
}

func BenchmarkMemoryCache_Get(b *testing.B) {
	c := NewMemoryCache(0)
	ctx := context.Background()
	c.Set(ctx, "key", []byte("value"), 5*time.Minute)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get(ctx, "key")
	}
}
