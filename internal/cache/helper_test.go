package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedStats struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
}

func TestCacheAside(t *testing.T) {
	mr := miniredis.RunT(t)
	restore := SetClientForTest(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer restore()

	ctx := context.Background()
	key := DashboardKey("user", 7)

	fetchCalls := 0
	fetch := func(dest *cachedStats) func() error {
		return func() error {
			fetchCalls++
			dest.Pending = 3
			dest.Approved = 1
			return nil
		}
	}

	var first cachedStats
	require.NoError(t, CacheAside(ctx, key, &first, time.Minute, fetch(&first)))
	assert.Equal(t, 1, fetchCalls)
	assert.Equal(t, 3, first.Pending)

	// Second read is served from cache.
	var second cachedStats
	require.NoError(t, CacheAside(ctx, key, &second, time.Minute, fetch(&second)))
	assert.Equal(t, 1, fetchCalls)
	assert.Equal(t, first, second)

	// After invalidation the fetch runs again.
	Invalidate(ctx, key)
	var third cachedStats
	require.NoError(t, CacheAside(ctx, key, &third, time.Minute, fetch(&third)))
	assert.Equal(t, 2, fetchCalls)
}

func TestCacheAsideWithoutRedis(t *testing.T) {
	restore := SetClientForTest(nil)
	defer restore()

	var dest cachedStats
	err := CacheAside(context.Background(), "whatever", &dest, time.Minute, func() error {
		dest.Pending = 9
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 9, dest.Pending)
}

func TestInvalidateDashboards(t *testing.T) {
	mr := miniredis.RunT(t)
	restore := SetClientForTest(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer restore()

	ctx := context.Background()
	require.NoError(t, SetJSON(ctx, DashboardKey("user", 1), cachedStats{Pending: 1}, time.Minute))
	require.NoError(t, SetJSON(ctx, DashboardKey("admin", 0), cachedStats{Pending: 2}, time.Minute))
	require.NoError(t, SetJSON(ctx, UserKey(1), cachedStats{}, time.Minute))

	InvalidateDashboards(ctx)

	var dest cachedStats
	found, err := GetJSON(ctx, DashboardKey("user", 1), &dest)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = GetJSON(ctx, UserKey(1), &dest)
	require.NoError(t, err)
	assert.True(t, found, "non-dashboard keys survive")
}
