package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed JSON caching
// ⭐ SSOT: 캐시 헬퍼는 여기서만
//
// Every method is a no-op on a nil cache or a disabled client.
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) key(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value; found=false on a miss
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c == nil || !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c == nil || !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.key(key), data, ttl).Err()
}

// Delete removes cached values
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || !c.client.Enabled() || len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Redis().Del(ctx, full...).Err()
}

// Predefined TTLs
const (
	TTLShort = 1 * time.Minute // 목록 조회
	TTLLong  = 1 * time.Hour   // 최신 스크리닝 결과
)

// LatestRunKey caches the newest screen run of one underlying
func LatestRunKey(ticker string) string {
	return fmt.Sprintf("screen:latest:%s", strings.ToUpper(ticker))
}

// RunListKey caches the latest-run listing for a limit
func RunListKey(limit int) string {
	return fmt.Sprintf("screen:list:%d", limit)
}
