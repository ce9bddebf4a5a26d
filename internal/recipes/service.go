package recipes

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/fdg312/mealweek/internal/config"
	"github.com/fdg312/mealweek/internal/provider"
)

// Service serves recipe details, cache first.
type Service struct {
	provider provider.Provider
	cache    DetailCache
}

func NewService(p provider.Provider, cache DetailCache) *Service {
	if cache == nil {
		cache = NewMemoryCache(time.Hour)
	}
	return &Service{provider: p, cache: cache}
}

// Detail returns the recipe detail for id. Cache failures are logged and
// bypassed; provider failures are returned as *provider.RecipeFetchError.
func (s *Service) Detail(ctx context.Context, id string) (*provider.RecipeDetail, error) {
	id = strings.TrimSpace(id)

	cached, err := s.cache.Get(ctx, id)
	if err != nil {
		log.Printf("WARN recipes.cache: get id=%s err=%v", id, err)
	} else if cached != nil {
		return cached, nil
	}

	detail, err := s.provider.Information(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, detail); err != nil {
		log.Printf("WARN recipes.cache: set id=%s err=%v", id, err)
	}
	return detail, nil
}

// NewDetailCache picks Redis when REDIS_URL is set and reachable, memory otherwise.
func NewDetailCache(cfg *config.Config) DetailCache {
	ttl := time.Duration(cfg.RecipeDetailTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 168 * time.Hour
	}

	if cfg.RedisURL == "" {
		log.Printf("INFO recipes.cache: mode=memory ttl=%s", ttl)
		return NewMemoryCache(ttl)
	}

	rc, err := NewRedisCache(cfg.RedisURL, ttl)
	if err != nil {
		log.Printf("WARN recipes.cache: %v, fallback=memory", err)
		return NewMemoryCache(ttl)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		log.Printf("WARN recipes.cache: redis ping failed: %v, fallback=memory", err)
		rc.Close()
		return NewMemoryCache(ttl)
	}

	log.Printf("INFO recipes.cache: mode=redis ttl=%s", ttl)
	return rc
}
