package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mkulima/asha/internal/metrics"
	"github.com/mkulima/asha/pkg/config"
	"github.com/mkulima/asha/pkg/utils"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisDB wraps a Redis client shared by the forecast cache and the
// per-client rate limiter.
//
// All keys use structured naming patterns for organization and monitoring.
type RedisDB struct {
	client *redis.Client // Underlying Redis client with connection pooling
}

// NewRedisDB creates a new Redis connection with automatic retry.
// Implements exponential backoff retry logic similar to PostgreSQL connection.
//
// Retry configuration:
//   - Max attempts: 5
//   - Initial delay: 100ms
//   - Max delay: 3 seconds
//   - Total timeout: 30 seconds
//
// Example:
//
//	redisDB, err := database.NewRedisDB(&cfg.Redis)
//	if err != nil {
//	    log.Fatal().Err(err).Msg("Redis connection failed")
//	}
//	defer redisDB.Close()
func NewRedisDB(cfg *config.RedisConfig) (*RedisDB, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := utils.Retry(ctx, utils.ConnectBackoff(), "redis connect", func(ctx context.Context, attempt int) error {
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		defer pingCancel()
		return client.Ping(pingCtx).Err()
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().Str("addr", cfg.Address()).Msg("Successfully connected to Redis")

	return &RedisDB{client: client}, nil
}

// NewRedisDBFromClient wraps an existing client. Used by tests with
// miniredis.
func NewRedisDBFromClient(client *redis.Client) *RedisDB {
	return &RedisDB{client: client}
}

// Close closes the Redis connection and releases all resources.
func (r *RedisDB) Close() error {
	return r.client.Close()
}

// Client returns the underlying Redis client, used to build pkg/cache.
func (r *RedisDB) Client() *redis.Client {
	return r.client
}

// Ping checks if Redis is alive and responsive.
// Used by the readiness endpoint.
func (r *RedisDB) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// IncrementRateLimit increments the fixed-window counter for a client and
// endpoint.
//
// Key pattern: "ratelimit:{client}:{endpoint}"
//
// Behavior:
//   - First request: Sets counter to 1 and starts expiry timer
//   - Subsequent requests: Increments counter
//   - After window expires: Counter resets automatically
//
// Returns the current count (including this request).
//
// Example:
//
//	count, err := redisDB.IncrementRateLimit(ctx, "uid:abc123", "chat", time.Minute)
//	if count > 30 {
//	    return errors.New("rate limit exceeded")
//	}
func (r *RedisDB) IncrementRateLimit(ctx context.Context, client, endpoint string, window time.Duration) (int64, error) {
	key := rateLimitKey(client, endpoint)
	start := time.Now()

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		metrics.RecordDBQuery("redis", "INCR", "error", time.Since(start))
		return 0, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			metrics.RecordDBQuery("redis", "INCR", "error", time.Since(start))
			return 0, fmt.Errorf("failed to set rate limit expiry: %w", err)
		}
	}

	metrics.RecordDBQuery("redis", "INCR", "success", time.Since(start))
	return count, nil
}

func rateLimitKey(client, endpoint string) string {
	return fmt.Sprintf("ratelimit:%s:%s", client, endpoint)
}
