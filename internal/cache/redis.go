package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient parses a redis:// or rediss:// URL and returns a client with
// OpenTelemetry tracing enabled.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := redisotel.InstrumentTracing(client); err != nil {
		slog.Warn("Failed to instrument Redis tracing", "error", err)
	}
	return client, nil
}

// RedisCache is a Cache backed by Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache namespaces every key with prefix.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: prefix,
	}
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.WarnContext(ctx, "Redis cache get failed", "error", err)
		return nil, false
	}
	return data, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		slog.WarnContext(ctx, "Redis cache set failed", "error", err)
	}
}

// Delete removes a key. Failures are logged.
func (c *RedisCache) Delete(ctx context.Context, key string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		slog.WarnContext(ctx, "Redis cache delete failed", "error", err)
	}
}
