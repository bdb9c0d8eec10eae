package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"devicelink/internal/mdall"
	"devicelink/internal/platform/config"
	"devicelink/internal/platform/metrics"
	"devicelink/internal/resolution"
	"devicelink/internal/resolution/store"
)

// deps are the long-lived pieces shared by resolve, run and serve.
type deps struct {
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	cascade  *resolution.Cascade
	closers  []io.Closer
}

func (a *app) buildDeps(ctx context.Context, cfg config.Config) (*deps, error) {
	registry := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(registry)

	client, err := mdall.New(cfg.Lookup.BaseURL, cfg.Lookup.Timeout,
		mdall.WithUserAgent(cfg.Lookup.UserAgent),
		mdall.WithMetrics(m),
		mdall.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}

	cache, closer, err := store.Open(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", cfg.Cache.Driver, err)
	}

	cascade := resolution.New(client,
		resolution.WithRetries(cfg.Lookup.Retries),
		resolution.WithRetryDelay(cfg.Lookup.RetryDelay),
		resolution.WithCache(cache),
		resolution.WithLogger(a.logger),
		resolution.WithMetrics(m),
	)

	a.logger.DebugContext(ctx, "resolution ready",
		"base_url", cfg.Lookup.BaseURL,
		"cache", cfg.Cache.Driver,
		"retries", cfg.Lookup.Retries,
	)
	return &deps{
		registry: registry,
		metrics:  m,
		cascade:  cascade,
		closers:  []io.Closer{closer},
	}, nil
}

func (d *deps) Close() error {
	var errs []error
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
