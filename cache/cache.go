// Package cache implements the engine's query cache: an LRU over
// (query-hash, ontology-generation) pairs with hit/miss counters, backed by
// either an in-process hashicorp/golang-lru or a shared Redis instance.
// Grounded on queue/redis.go's go-redis client setup, generalized here from
// job-queue connection handling to cache-backend connection handling.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Key identifies one cached query result, scoped to the ontology generation
// it was evaluated against so a hot reload never serves stale results.
type Key struct {
	QueryHash  string
	Generation uint64
}

// entry pairs a cached value with its expiry.
type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Backend is the minimal interface both cache implementations satisfy.
type Backend interface {
	Get(ctx context.Context, key Key) (interface{}, bool)
	Set(ctx context.Context, key Key, value interface{}, ttl time.Duration)
	Stats() Stats
}

// Stats exposes hit/miss counters for observability.
type Stats struct {
	Hits   uint64
	Misses uint64
	Size   int
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// CanonicalizeQuery collapses whitespace so semantically identical queries
// written with different formatting share one cache key.
func CanonicalizeQuery(query string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(query, " "))
}

// HashQuery returns the SHA-256 hex digest of a canonicalized query string.
func HashQuery(query string) string {
	sum := sha256.Sum256([]byte(CanonicalizeQuery(query)))
	return hex.EncodeToString(sum[:])
}

// MemoryCache is an in-process, strict-LRU cache backend.
type MemoryCache struct {
	mu     sync.Mutex
	lru    *lru.Cache[Key, entry]
	hits   uint64
	misses uint64
}

// NewMemoryCache constructs an in-memory cache holding at most size entries.
func NewMemoryCache(size int) (*MemoryCache, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New[Key, entry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{lru: c}, nil
}

// Get returns a cached value if present and unexpired.
func (m *MemoryCache) Get(ctx context.Context, key Key) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lru.Get(key)
	if !ok {
		m.misses++
		return nil, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		m.lru.Remove(key)
		m.misses++
		return nil, false
	}
	m.hits++
	return e.value, true
}

// Set stores value under key with an optional TTL (zero means no expiry).
func (m *MemoryCache) Set(ctx context.Context, key Key, value interface{}, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	m.lru.Add(key, entry{value: value, expiresAt: exp})
}

// Stats returns current hit/miss/size counters.
func (m *MemoryCache) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Hits: m.hits, Misses: m.misses, Size: m.lru.Len()}
}
