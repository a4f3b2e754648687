package cache

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memoryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

type sample struct {
	Name  string    `json:"name"`
	Score []float64 `json:"score"`
}

func TestHashKey(t *testing.T) {
	a := HashKey("features:", "https://example.com/a.mp4")
	b := HashKey("features:", "https://example.com/b.mp4")

	if !strings.HasPrefix(a, "features:") {
		t.Errorf("expected prefix, got %s", a)
	}
	if len(a) != len("features:")+64 {
		t.Errorf("expected sha256 hex digest, got %d chars", len(a))
	}
	if a == b {
		t.Error("different inputs must not share a key")
	}
	if a != HashKey("features:", "https://example.com/a.mp4") {
		t.Error("HashKey must be deterministic")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := &memoryCache{data: map[string][]byte{}}

	SetJSON(ctx, c, "k", sample{Name: "clip", Score: []float64{0.1, 0.2, 0.3}}, time.Minute)

	got, ok := GetJSON[sample](ctx, c, "k")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Name != "clip" || len(got.Score) != 3 {
		t.Errorf("unexpected value %+v", got)
	}

	if _, ok := GetJSON[sample](ctx, c, "missing"); ok {
		t.Error("expected miss")
	}

	c.data["corrupt"] = []byte("{not json")
	if _, ok := GetJSON[sample](ctx, c, "corrupt"); ok {
		t.Error("undecodable value should be a miss")
	}
}

func TestNilCache(t *testing.T) {
	ctx := context.Background()
	SetJSON(ctx, nil, "k", sample{}, time.Minute)
	if _, ok := GetJSON[sample](ctx, nil, "k"); ok {
		t.Error("nil cache should always miss")
	}

	var rc *RedisCache
	rc.Set(ctx, "k", []byte("v"), time.Minute)
	if _, ok := rc.Get(ctx, "k"); ok {
		t.Error("nil RedisCache should always miss")
	}
}

func TestRedisCacheUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := NewRedisCache(client, "features:")
	ctx := context.Background()

	// Errors are swallowed and reported as misses
	c.Set(ctx, "k", []byte("v"), time.Minute)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("expected miss when Redis is unreachable")
	}
	c.Delete(ctx, "k")
}

func TestNewRedisClient(t *testing.T) {
	client, err := NewRedisClient("redis://localhost:6379/2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()
	if client.Options().DB != 2 {
		t.Errorf("expected DB 2, got %d", client.Options().DB)
	}

	if _, err := NewRedisClient("not-a-url"); err == nil {
		t.Error("expected error for invalid URL")
	}
}
