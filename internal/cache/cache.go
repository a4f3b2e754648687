package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Cache is a best-effort byte cache. Backend failures are logged by the
// implementation and reported as misses; callers never fail because of it.
type Cache interface {
	// Get returns the value and true on a hit.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// HashKey builds a fixed-length key from an arbitrary string such as a URL.
func HashKey(prefix, s string) string {
	hash := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%s%x", prefix, hash)
}

// GetJSON decodes a cached JSON value. A value that no longer decodes is
// treated as a miss.
func GetJSON[T any](ctx context.Context, c Cache, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	data, ok := c.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		slog.WarnContext(ctx, "Failed to unmarshal cached value", "key", key, "error", err)
		return nil, false
	}
	return &v, true
}

// SetJSON encodes v as JSON and stores it.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.WarnContext(ctx, "Failed to marshal value for cache", "key", key, "error", err)
		return
	}
	c.Set(ctx, key, data, ttl)
}
