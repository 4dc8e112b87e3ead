package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a shared-process cache backend for multi-instance
// deployments, grounded on queue/redis/queue.go's client setup (URL parsing,
// env fallback, key prefixing).
type RedisCache struct {
	client *redis.Client
	prefix string
	hits   uint64
	misses uint64
}

// RedisConfig configures a RedisCache.
type RedisConfig struct {
	RedisURL  string // defaults to KGC_REDIS_URL or redis://localhost:6379/0
	KeyPrefix string // defaults to "kgc:cache:"
}

// NewRedisCache connects to Redis and returns a cache backend over it.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	url := cfg.RedisURL
	if url == "" {
		url = os.Getenv("KGC_REDIS_URL")
	}
	if url == "" {
		url = "redis://localhost:6379/0"
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "kgc:cache:"
	}
	return &RedisCache{client: client, prefix: prefix}, nil
}

func (r *RedisCache) redisKey(key Key) string {
	return fmt.Sprintf("%s%d:%s", r.prefix, key.Generation, key.QueryHash)
}

// Get returns a cached value if present and unexpired.
func (r *RedisCache) Get(ctx context.Context, key Key) (interface{}, bool) {
	raw, err := r.client.Get(ctx, r.redisKey(key)).Result()
	if err != nil {
		atomic.AddUint64(&r.misses, 1)
		return nil, false
	}
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		atomic.AddUint64(&r.misses, 1)
		return nil, false
	}
	atomic.AddUint64(&r.hits, 1)
	return v, true
}

// Set stores value under key with an optional TTL (zero means no expiry).
func (r *RedisCache) Set(ctx context.Context, key Key, value interface{}, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	r.client.Set(ctx, r.redisKey(key), raw, ttl)
}

// Stats returns hit/miss counters; Size is not tracked for Redis since
// eviction is delegated to the server's own policy.
func (r *RedisCache) Stats() Stats {
	return Stats{Hits: atomic.LoadUint64(&r.hits), Misses: atomic.LoadUint64(&r.misses)}
}

// Close releases the underlying Redis client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
