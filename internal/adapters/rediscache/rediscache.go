// Package rediscache implements ports.Cache over go-redis, grounded on the
// key-per-operation wrapper style of a Redis orderbook cache seen elsewhere
// in the example corpus (struct wrapping *redis.Client, fmt.Errorf-wrapped
// per-call errors).
package rediscache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/chainfeed/ingestd/internal/ports"
)

// Cache adapts a *redis.Client to ports.Cache.
type Cache struct {
	rdb *redis.Client
}

var _ ports.Cache = (*Cache)(nil)

// New wraps an already-configured redis client.
func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

func (c *Cache) SAdd(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := c.rdb.SAdd(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("rediscache: sadd %s: %w", key, err)
	}
	return nil
}

func (c *Cache) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := c.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("rediscache: smembers %s: %w", key, err)
	}
	return members, nil
}

func (c *Cache) HSet(ctx context.Context, key string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(values)*2)
	for field, value := range values {
		args = append(args, field, value)
	}
	if err := c.rdb.HSet(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("rediscache: hset %s: %w", key, err)
	}
	return nil
}

func (c *Cache) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	vals, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("rediscache: hgetall %s: %w", key, err)
	}
	return vals, nil
}

func (c *Cache) HDel(ctx context.Context, key string, fields ...string) error {
	if err := c.rdb.HDel(ctx, key, fields...).Err(); err != nil {
		return fmt.Errorf("rediscache: hdel %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key, value string) error {
	if err := c.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("rediscache: set %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("rediscache: get %s: %w", key, err)
	}
	return val, nil
}

func (c *Cache) LPush(ctx context.Context, key string, values ...string) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	if err := c.rdb.LPush(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("rediscache: lpush %s: %w", key, err)
	}
	return nil
}

func (c *Cache) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := c.rdb.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("rediscache: lrange %s: %w", key, err)
	}
	return vals, nil
}

func (c *Cache) LTrim(ctx context.Context, key string, start, stop int64) error {
	if err := c.rdb.LTrim(ctx, key, start, stop).Err(); err != nil {
		return fmt.Errorf("rediscache: ltrim %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("rediscache: del %v: %w", keys, err)
	}
	return nil
}
