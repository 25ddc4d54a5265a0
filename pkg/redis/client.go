package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/condor/pkg/config"
)

// pingTimeout bounds the startup connectivity check
const pingTimeout = 3 * time.Second

// Client wraps the Redis client shared by the result cache and the trigger limiter
// ⭐ SSOT: Redis 연결은 여기서만 관리
//
// A nil or disabled Client is valid: every helper in this package then
// degrades to a no-op (cache) or allows everything (rate limiter).
type Client struct {
	rdb     *redis.Client
	enabled bool
}

// New connects when REDIS_ENABLED is set, otherwise returns a disabled client
func New(cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  pingTimeout,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Client{rdb: rdb, enabled: true}, nil
}

// Close closes the Redis connection; safe on nil
func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Enabled reports whether commands reach a server
func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

// Redis returns the underlying client, nil when disabled
func (c *Client) Redis() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}
