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

// Cache provides JSON caching helpers
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
	local  *localStore // nil = no-op when Redis is disabled
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

// WithLocalFallback keeps up to maxEntries values in process memory while
// Redis is disabled, so a long-running server still reuses fetched data.
// maxEntries <= 0 means unbounded.
func (c *Cache) WithLocalFallback(maxEntries int) *Cache {
	c.local = newLocalStore(maxEntries)
	return c
}

func (c *Cache) key(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value. A miss is (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	var data []byte
	if !c.client.Enabled() {
		if c.local == nil {
			return false, nil
		}
		var ok bool
		if data, ok = c.local.get(c.key(key)); !ok {
			return false, nil
		}
	} else {
		var err error
		data, err = c.client.Redis().Get(ctx, c.key(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("cache get %s: %w", key, err)
		}
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() && c.local == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	if !c.client.Enabled() {
		c.local.set(c.key(key), data, ttl)
		return nil
	}
	return c.client.Redis().Set(ctx, c.key(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		if c.local != nil {
			c.local.delete(c.key(key))
		}
		return nil
	}
	return c.client.Redis().Del(ctx, c.key(key)).Err()
}

// Predefined TTLs
const (
	TTLMedium = 10 * time.Minute // 최신 랭킹
	TTLDaily  = 24 * time.Hour   // 일봉, 재무
)

// PriceHistoryKey is the cache key of a ticker's daily bars for a lookback period
func PriceHistoryKey(ticker, period string) string {
	return fmt.Sprintf("prices:%s:%s", strings.ToUpper(ticker), period)
}

// FundamentalsKey is the cache key of a ticker's fundamentals snapshot
func FundamentalsKey(ticker string) string {
	return fmt.Sprintf("fundamentals:%s", strings.ToUpper(ticker))
}

// LatestRankingKey is the cache key of the latest ranking for a universe
func LatestRankingKey(universe string) string {
	return fmt.Sprintf("ranking:latest:%s", universe)
}
