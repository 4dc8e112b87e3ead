package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheHitMiss(t *testing.T) {
	c, err := NewMemoryCache(2)
	require.NoError(t, err)
	ctx := context.Background()
	key := Key{QueryHash: HashQuery("SELECT * WHERE { ?s ?p ?o }"), Generation: 1}

	_, ok := c.Get(ctx, key)
	require.False(t, ok)

	c.Set(ctx, key, "result", 0)
	v, ok := c.Get(ctx, key)
	require.True(t, ok)
	require.Equal(t, "result", v)

	stats := c.Stats()
	require.Equal(t, uint64(1), stats.Hits)
	require.Equal(t, uint64(1), stats.Misses)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c, err := NewMemoryCache(2)
	require.NoError(t, err)
	ctx := context.Background()
	key := Key{QueryHash: "abc", Generation: 1}
	c.Set(ctx, key, "result", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get(ctx, key)
	require.False(t, ok)
}

func TestCanonicalizeQueryCollapsesWhitespace(t *testing.T) {
	a := HashQuery("SELECT  *\nWHERE { ?s ?p ?o }")
	b := HashQuery("SELECT * WHERE { ?s ?p ?o }")
	require.Equal(t, a, b)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	c, err := NewRedisCache(ctx, RedisConfig{RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer c.Close()

	key := Key{QueryHash: "xyz", Generation: 2}
	_, ok := c.Get(ctx, key)
	require.False(t, ok)

	c.Set(ctx, key, map[string]interface{}{"bound": true}, time.Minute)
	v, ok := c.Get(ctx, key)
	require.True(t, ok)
	m, ok := v.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, true, m["bound"])
}
