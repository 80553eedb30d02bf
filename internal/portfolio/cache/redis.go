package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache keeps the JSON-encoded portfolio data under a single key.
// Entries expire after ttl; writers call Invalidate after every mutation.
type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisCache creates a cache. Key defaults to "portfolio:data".
func NewRedisCache(client *redis.Client, key string, ttl time.Duration) *RedisCache {
	if key == "" {
		key = "portfolio:data"
	}
	return &RedisCache{client: client, key: key, ttl: ttl}
}

// Get returns the cached data. A missing key is reported as ok=false with a nil error.
func (c *RedisCache) Get(ctx context.Context) (map[string]interface{}, bool, error) {
	b, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var data map[string]interface{}
	if err := json.Unmarshal(b, &data); err != nil {
		// unreadable entry, drop it
		_ = c.client.Del(ctx, c.key).Err()
		return nil, false, err
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, data map[string]interface{}) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key, b, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}
