package recipes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fdg312/mealweek/internal/provider"
)

// DetailCache stores recipe details by provider id.
// Get returns (nil, nil) on a miss.
type DetailCache interface {
	Get(ctx context.Context, id string) (*provider.RecipeDetail, error)
	Set(ctx context.Context, detail *provider.RecipeDetail) error
}

type memoryEntry struct {
	detail    provider.RecipeDetail
	expiresAt time.Time
}

// MemoryCache is a process-local TTL map.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (c *MemoryCache) Get(ctx context.Context, id string) (*provider.RecipeDetail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return nil, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, id)
		return nil, nil
	}
	d := e.detail
	return &d, nil
}

func (c *MemoryCache) Set(ctx context.Context, detail *provider.RecipeDetail) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[detail.ID] = memoryEntry{detail: *detail, expiresAt: c.now().Add(c.ttl)}
	return nil
}

const redisKeyPrefix = "mealweek:recipe:detail:"

// RedisCache keeps details as JSON with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache parses a redis:// URL. The connection is lazy.
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return &RedisCache{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, id string) (*provider.RecipeDetail, error) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var d provider.RecipeDetail
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode cached detail: %w", err)
	}
	return &d, nil
}

func (c *RedisCache) Set(ctx context.Context, detail *provider.RecipeDetail) error {
	raw, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("encode detail: %w", err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+detail.ID, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks connectivity; used at startup for diagnostics only.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
