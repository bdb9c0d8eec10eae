package store

import (
	"context"
	"fmt"
	"io"

	"devicelink/internal/platform/config"
	platformredis "devicelink/internal/platform/redis"
	"devicelink/internal/resolution"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var nopCloser = closerFunc(func() error { return nil })

// Open builds the cache selected by cfg.Driver. The returned cache is nil for
// the "none" driver. The closer releases any connection Open created.
func Open(ctx context.Context, cfg config.Cache) (resolution.Cache, io.Closer, error) {
	switch cfg.Driver {
	case config.CacheNone, "":
		return nil, nopCloser, nil
	case config.CacheMemory:
		return NewInMemoryCache(cfg.TTL), nopCloser, nil
	case config.CacheSQLite:
		c, err := OpenSQLite(ctx, cfg.SQLitePath, cfg.TTL)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case config.CachePostgres:
		c, err := OpenPostgres(ctx, cfg.PostgresDSN, cfg.TTL)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case config.CacheRedis:
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		if client == nil {
			return nil, nil, fmt.Errorf("redis cache selected without a url")
		}
		return NewRedisCache(client.Client, cfg.TTL), client, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}
