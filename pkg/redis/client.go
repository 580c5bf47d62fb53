package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/quantsnap/pkg/config"
)

// pingTimeout bounds the connection check done by New and Health
const pingTimeout = 3 * time.Second

// Client wraps the Redis client used by the cache, rate limiter and quota counter.
// ⭐ SSOT: Redis 연결은 여기서만 관리
type Client struct {
	rdb     *redis.Client
	enabled bool
}

// New creates a new Redis client. A disabled config yields a no-op client.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{enabled: false}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Client{rdb: rdb, enabled: true}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Health is a point-in-time view of the connection pool
type Health struct {
	Latency    time.Duration
	TotalConns uint32
	IdleConns  uint32
}

// Health pings the server. A disabled client reports a zero Health and no error.
func (c *Client) Health(ctx context.Context) (Health, error) {
	if !c.enabled {
		return Health{}, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := time.Now()
	if err := c.rdb.Ping(pingCtx).Err(); err != nil {
		return Health{}, fmt.Errorf("redis ping: %w", err)
	}

	stats := c.rdb.PoolStats()
	return Health{
		Latency:    time.Since(start),
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
	}, nil
}

// Enabled returns whether Redis is enabled
func (c *Client) Enabled() bool {
	return c.enabled
}

// Redis returns the underlying redis client for advanced usage
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
