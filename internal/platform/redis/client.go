package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"devicelink/internal/platform/config"
	"devicelink/pkg/platform/sentinel"
)

// Client wraps the go-redis client used by the resolution cache.
type Client struct {
	*redis.Client
}

// New connects and pings. It returns nil when no URL is configured and wraps
// sentinel.ErrUnavailable when the server cannot be reached.
func New(ctx context.Context, cfg config.Redis) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w: %w", sentinel.ErrUnavailable, err)
	}

	return &Client{Client: client}, nil
}
