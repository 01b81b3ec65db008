// Package cache keeps upstream responses in Redis for a bounded time so
// repeated chat turns about the same farm do not refetch them.
//
// Values are stored as raw bytes. Remember is the cache-aside helper used by
// the forecast client.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Cache wraps a Redis client.
type Cache struct {
	client *redis.Client
}

// NewCache creates a cache over client.
//
// Example:
//
//	c := cache.NewCache(redisDB.Client())
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Remember returns the bytes cached under key, or calls load and caches its
// result for ttl.
//
// Redis failures on either side are logged and otherwise ignored: a broken
// cache costs an upstream call, never the request. A load error is returned
// as-is and nothing is cached.
//
// Example:
//
//	body, err := c.Remember(ctx, cache.ForecastKey(lat, lon), 30*time.Minute, func(ctx context.Context) ([]byte, error) {
//	    return fetchForecast(ctx, lat, lon)
//	})
func (c *Cache) Remember(ctx context.Context, key string, ttl time.Duration, load func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	raw, err := c.raw(ctx, key)
	switch {
	case err == nil:
		log.Debug().Str("key", key).Msg("Cache hit")
		return raw, nil
	case errors.Is(err, ErrCacheMiss):
		log.Debug().Str("key", key).Msg("Cache miss")
	default:
		log.Warn().Err(err).Str("key", key).Msg("Cache read failed, loading")
	}

	raw, err = load(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.store(ctx, key, raw, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache loaded value")
	}
	return raw, nil
}

func (c *Cache) raw(ctx context.Context, key string) ([]byte, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	return raw, nil
}

func (c *Cache) store(ctx context.Context, key string, raw []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	log.Debug().Str("key", key).Dur("ttl", ttl).Msg("Cached value")
	return nil
}
