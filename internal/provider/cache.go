package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stockscope/pkg/model"
)

// BarCache is a shared second-level cache for bar series
type BarCache interface {
	Get(ctx context.Context, key string) ([]model.Bar, bool, error)
	Set(ctx context.Context, key string, bars []model.Bar, ttl time.Duration) error
}

// RedisBarCache stores bar series as JSON strings in Redis
type RedisBarCache struct {
	client redis.Cmdable
	prefix string
}

// NewRedisBarCache creates a cache on client with keys under prefix
func NewRedisBarCache(client redis.Cmdable, prefix string) *RedisBarCache {
	return &RedisBarCache{client: client, prefix: prefix}
}

// Get returns the cached bars for key. A miss is not an error.
func (c *RedisBarCache) Get(ctx context.Context, key string) ([]model.Bar, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var bars []model.Bar
	if err := json.Unmarshal(data, &bars); err != nil {
		return nil, false, fmt.Errorf("decoding cached bars %s: %w", key, err)
	}
	return bars, true, nil
}

// Set stores bars under key for ttl
func (c *RedisBarCache) Set(ctx context.Context, key string, bars []model.Bar, ttl time.Duration) error {
	data, err := json.Marshal(bars)
	if err != nil {
		return fmt.Errorf("encoding bars %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
