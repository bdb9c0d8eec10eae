package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"devicelink/internal/resolution"
	"devicelink/pkg/platform/sentinel"
)

const redisKeyPrefix = "devicelink:resolution:"

// RedisCache stores outcomes as JSON strings; expiry is left to Redis.
type RedisCache struct {
	client   *redis.Client
	cacheTTL time.Duration
}

func NewRedisCache(client *redis.Client, cacheTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, cacheTTL: cacheTTL}
}

func (c *RedisCache) Get(ctx context.Context, key resolution.Key) (resolution.Outcome, error) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return resolution.Outcome{}, sentinel.ErrNotFound
		}
		return resolution.Outcome{}, fmt.Errorf("find cached outcome: %w", err)
	}
	var out resolution.Outcome
	if err := json.Unmarshal(raw, &out); err != nil {
		return resolution.Outcome{}, fmt.Errorf("decode cached outcome: %w", err)
	}
	return out, nil
}

func (c *RedisCache) Put(ctx context.Context, key resolution.Key, outcome resolution.Outcome) error {
	raw, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key.String(), raw, c.cacheTTL).Err(); err != nil {
		return fmt.Errorf("save cached outcome: %w", err)
	}
	return nil
}
