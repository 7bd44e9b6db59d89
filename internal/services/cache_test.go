package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKeyGenerators(t *testing.T) {
	assert.Equal(t, "players:7", PlayersCacheKey(7))
	assert.Equal(t, "players:summary:7", SummaryCacheKey(7))
	assert.Equal(t, "optimization:abc-123", OptimizationCacheKey("abc-123"))
	assert.Equal(t, "optimization:req:7:d41d8cd9", RequestCacheKey(7, "d41d8cd9"))
}

func TestCacheService_NilClientDegrades(t *testing.T) {
	cache := NewCacheService(nil)
	ctx := context.Background()

	err := cache.Set(ctx, "key", "value", time.Minute)
	assert.ErrorIs(t, err, ErrCacheUnavailable)

	var dest string
	err = cache.Get(ctx, "key", &dest)
	assert.ErrorIs(t, err, ErrCacheUnavailable)

	err = cache.Delete(ctx, "key")
	assert.ErrorIs(t, err, ErrCacheUnavailable)

	exists, err := cache.Exists(ctx, "key")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, cache.Flush())
	assert.ErrorIs(t, cache.HealthCheck(ctx), ErrCacheUnavailable)
}

func TestCacheService_SetWithRetryStopsWhenUnavailable(t *testing.T) {
	cache := NewCacheService(nil)

	// An unreachable cache should fail fast instead of burning retries.
	start := time.Now()
	err := cache.SetWithRetry(context.Background(), "key", "value", time.Minute, 3)

	assert.ErrorIs(t, err, ErrCacheUnavailable)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestCacheService_SimpleHelpersDegrade(t *testing.T) {
	cache := NewCacheService(nil)

	assert.ErrorIs(t, cache.SetSimple("key", "value", time.Minute), ErrCacheUnavailable)

	var dest string
	assert.ErrorIs(t, cache.GetSimple("key", &dest), ErrCacheUnavailable)
}
