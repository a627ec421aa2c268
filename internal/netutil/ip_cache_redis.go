package netutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisIPCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisIPCache(client redis.UniversalClient, prefix string) *RedisIPCache {
	if prefix == "" {
		prefix = "anivault"
	}
	return &RedisIPCache{client: client, prefix: prefix}
}

func (c *RedisIPCache) Get(ctx context.Context, key string) (string, bool, error) {
	if c.client == nil {
		return "", false, nil
	}
	ip, err := c.client.Get(ctx, c.dataKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return ip, true, nil
}

func (c *RedisIPCache) Set(ctx context.Context, key, ip string, ttl time.Duration) error {
	if c.client == nil || ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, c.dataKey(key), ip, ttl).Err()
}

func (c *RedisIPCache) Delete(ctx context.Context, key string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.dataKey(key)).Err()
}

func (c *RedisIPCache) dataKey(key string) string {
	return fmt.Sprintf("%s:public_ip:%s", c.prefix, key)
}
