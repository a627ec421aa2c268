package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisEntryMissCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisEntryMissCache(client redis.UniversalClient, prefix string) *RedisEntryMissCache {
	if prefix == "" {
		prefix = "anivault"
	}
	return &RedisEntryMissCache{client: client, prefix: prefix}
}

func (c *RedisEntryMissCache) IsMissing(ctx context.Context, id string) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	_, err := c.client.Get(ctx, c.dataKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisEntryMissCache) MarkMissing(ctx context.Context, id string, ttl time.Duration) error {
	if c.client == nil || ttl <= 0 {
		return nil
	}
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.dataKey(id), "1", ttl)
	pipe.SAdd(ctx, c.indexKey(), c.dataKey(id))
	pipe.Expire(ctx, c.indexKey(), ttl+time.Minute)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisEntryMissCache) Reset(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	keys, err := c.client.SMembers(ctx, c.indexKey()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	pipe := c.client.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, c.indexKey())
	_, err = pipe.Exec(ctx)
	return err
}

func (c *RedisEntryMissCache) dataKey(id string) string {
	return fmt.Sprintf("%s:catalog_miss:data:%s", c.prefix, id)
}

func (c *RedisEntryMissCache) indexKey() string {
	return fmt.Sprintf("%s:catalog_miss:index", c.prefix)
}
