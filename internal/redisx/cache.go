package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is best-effort: a miss and a Redis error look the same to callers,
// and writes never fail the request (same stance the API takes elsewhere).
type Cache struct{ R *redis.Client }

func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	v, err := c.R.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (c *Cache) Set(ctx context.Context, key, val string, ttl time.Duration) {
	_ = c.R.Set(ctx, key, val, ttl).Err()
}

func (c *Cache) Del(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	_ = c.R.Del(ctx, keys...).Err()
}
