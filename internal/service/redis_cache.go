package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTableCache adapts a Redis client to the table cache used by
// TimetableService. A missed key is reported as a miss, not an error.
type RedisTableCache struct {
	client *redis.Client
}

func NewRedisTableCache(client *redis.Client) *RedisTableCache {
	return &RedisTableCache{client: client}
}

func (c *RedisTableCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (c *RedisTableCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisTableCache) Del(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}
