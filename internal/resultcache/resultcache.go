// Package resultcache caches finished waterfall analyses keyed by the
// requesting cap table's content hash, so repeat requests for an
// unchanged cap table skip re-running the analyzer. Grounded on the
// teacher's cache layer (data/cache/cache.go's in-memory/Redis-backed
// Cache interface; internal/infrastructure/datafacade/cache/redis_cache.go's
// JSON-over-go-redis/v8 Get/Set pattern).
package resultcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	redis "github.com/go-redis/redis/v8"

	"github.com/Eran5102/Valuation-sub003/internal/waterfall"
)

// Cache stores and retrieves AnalysisResults by content key.
type Cache interface {
	Get(ctx context.Context, key string) (*waterfall.AnalysisResult, bool, error)
	Set(ctx context.Context, key string, result *waterfall.AnalysisResult, ttl time.Duration) error
}

// memory is the default in-process cache backend.
type memory struct {
	mu sync.Mutex
	m  map[string]entry
}

type entry struct {
	result *waterfall.AnalysisResult
	exp    time.Time
}

// New returns an in-memory Cache.
func New() Cache { return &memory{m: make(map[string]entry)} }

func (c *memory) Get(_ context.Context, key string) (*waterfall.AnalysisResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok || (!e.exp.IsZero() && time.Now().After(e.exp)) {
		return nil, false, nil
	}
	return e.result, true, nil
}

func (c *memory) Set(_ context.Context, key string, result *waterfall.AnalysisResult, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{result: result}
	if ttl > 0 {
		e.exp = time.Now().Add(ttl)
	}
	c.m[key] = e
	return nil
}

// redisCache is the optional Redis-backed cache, used when config.go
// selects backend "redis". AnalysisResults are JSON-encoded; money.Decimal
// fields marshal as exact-value strings (see money.Decimal.MarshalJSON),
// so cached results never lose precision relative to a freshly computed
// analysis.
type redisCache struct {
	client *redis.Client
}

// NewRedis returns a Cache backed by the given go-redis/v8 client.
func NewRedis(client *redis.Client) Cache {
	return &redisCache{client: client}
}

func (r *redisCache) Get(ctx context.Context, key string) (*waterfall.AnalysisResult, bool, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("resultcache: redis get %s: %w", key, err)
	}
	var result waterfall.AnalysisResult
	if err := json.Unmarshal(b, &result); err != nil {
		return nil, false, fmt.Errorf("resultcache: decoding cached result for %s: %w", key, err)
	}
	return &result, true, nil
}

func (r *redisCache) Set(ctx context.Context, key string, result *waterfall.AnalysisResult, ttl time.Duration) error {
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("resultcache: encoding result for %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, b, ttl).Err(); err != nil {
		return fmt.Errorf("resultcache: redis set %s: %w", key, err)
	}
	return nil
}
