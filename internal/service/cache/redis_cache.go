package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a byte cache backed by Redis, for deployments with more
// than one instance.
type RedisCache struct {
	cli    *redis.Client
	prefix string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(cfg RedisConfig) *RedisCache {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	return &RedisCache{cli: rdb, prefix: cfg.Prefix}
}

func (r *RedisCache) key(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

// GetOrFill returns the cached payload for key, calling fill on a miss
// and storing its result for ttl. Redis transport errors fall through to
// fill so a flaky cache never blocks reads.
func (r *RedisCache) GetOrFill(ctx context.Context, key string, ttl time.Duration, fill func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	k := r.key(key)
	b, err := r.cli.Get(ctx, k).Bytes()
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, redis.Nil) {
		// fall through to fill; the value just won't be cached this round
		b, ferr := fill(ctx)
		if ferr != nil {
			return nil, ferr
		}
		return b, nil
	}

	b, err = fill(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.cli.Set(ctx, k, b, ttl).Err(); err != nil {
		return b, nil
	}
	return b, nil
}

// Ping checks connectivity.
func (r *RedisCache) Ping(ctx context.Context) error {
	if err := r.cli.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the client.
func (r *RedisCache) Close() error {
	return r.cli.Close()
}
