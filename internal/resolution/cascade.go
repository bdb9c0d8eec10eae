// Package resolution links a registry catalogue number to an MDALL device
// record by walking a fixed cascade of identifier queries.
package resolution

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"devicelink/internal/mdall"
	"devicelink/internal/platform/logger"
	"devicelink/internal/platform/metrics"
	"devicelink/pkg/platform/circuit"
	"devicelink/pkg/platform/sentinel"
)

// Lookup is the identifier lookup service the cascade queries.
type Lookup interface {
	FindByIdentifier(ctx context.Context, identifier string, state mdall.ListingState) ([]mdall.Match, error)
	Device(ctx context.Context, id mdall.DeviceID, state mdall.ListingState) (*mdall.Device, error)
}

// Cache stores outcomes by the pair of query values that produced them.
// Get returns sentinel.ErrNotFound on a miss or an expired entry.
type Cache interface {
	Get(ctx context.Context, key Key) (Outcome, error)
	Put(ctx context.Context, key Key, outcome Outcome) error
}

// Key identifies a resolution by its two query values.
type Key struct {
	Formatted string
	Raw       string
}

func (k Key) String() string {
	return k.Formatted + "|" + k.Raw
}

const (
	DefaultRetries    = 2
	DefaultRetryDelay = time.Second
)

// Cascade resolves registry rows against a Lookup. It holds no per-row state
// and is safe for concurrent use when its Lookup and Cache are.
type Cascade struct {
	lookup     Lookup
	cache      Cache
	breaker    *circuit.Breaker
	retries    int
	retryDelay time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

type Option func(*Cascade)

// WithRetries sets how many times a failed call is repeated. Negative values
// are treated as zero.
func WithRetries(n int) Option {
	return func(c *Cascade) {
		c.retries = max(n, 0)
	}
}

// WithRetryDelay sets the fixed wait between attempts of one call.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Cascade) {
		c.retryDelay = max(d, 0)
	}
}

func WithCache(cache Cache) Option {
	return func(c *Cascade) {
		c.cache = cache
	}
}

// WithCacheBreaker replaces the breaker that stops cache calls after
// repeated cache failures.
func WithCacheBreaker(b *circuit.Breaker) Option {
	return func(c *Cascade) {
		c.breaker = b
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Cascade) {
		c.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cascade) {
		c.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Cascade) {
		c.tracer = t
	}
}

func New(lookup Lookup, opts ...Option) *Cascade {
	c := &Cascade{
		lookup:     lookup,
		breaker:    circuit.New("resolution-cache"),
		retries:    DefaultRetries,
		retryDelay: DefaultRetryDelay,
		logger:     logger.Discard(),
		tracer:     otel.Tracer("devicelink/resolution"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve walks Stages for the formatted identifier and the raw cleaned
// number. It never returns an error: failures become an Error outcome.
func (c *Cascade) Resolve(ctx context.Context, formatted, raw string) Outcome {
	key := Key{Formatted: strings.TrimSpace(formatted), Raw: strings.TrimSpace(raw)}

	ctx, span := c.tracer.Start(ctx, "resolution.Resolve", trace.WithAttributes(
		attribute.String("device_identifier", key.Formatted),
		attribute.String("cat_num_cleaned", key.Raw),
	))
	defer span.End()

	if cached, ok := c.fromCache(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		c.metrics.IncrementOutcome(string(cached.Kind))
		return cached
	}

	out := c.walk(ctx, key)

	span.SetAttributes(
		attribute.String("outcome", string(out.Kind)),
		attribute.String("stage", out.Stage),
	)
	if out.Kind == KindError {
		span.SetStatus(codes.Error, out.Message)
	}
	c.metrics.IncrementOutcome(string(out.Kind))
	c.toCache(ctx, key, out)
	return out
}

func (c *Cascade) walk(ctx context.Context, key Key) Outcome {
	var last *Stage
	for i := range Stages {
		stage := Stages[i]
		value := stage.Value(key.Formatted, key.Raw)
		if stage.Source == SourceRaw && value == "" {
			continue
		}
		last = &stage

		matches, err := c.findMatches(ctx, stage, value)
		if err != nil {
			c.logger.WarnContext(ctx, "identifier query failed",
				"stage", stage.Label,
				"query", value,
				"error", err,
			)
			return failed(err.Error())
		}
		if len(matches) == 0 {
			continue
		}

		id := matches[0].DeviceID
		if id.IsZero() {
			c.logger.InfoContext(ctx, "match has no device id",
				"stage", stage.Label,
				"query", value,
			)
			return notFound(&stage, true)
		}

		device, err := c.fetchDevice(ctx, stage, id)
		if err != nil {
			c.logger.WarnContext(ctx, "device query failed",
				"stage", stage.Label,
				"device_id", id.String(),
				"error", err,
			)
			return failed(err.Error())
		}
		c.metrics.IncrementStageHit(stage.Label)
		return found(stage, *device)
	}
	return notFound(last, false)
}

func (c *Cascade) findMatches(ctx context.Context, stage Stage, value string) ([]mdall.Match, error) {
	ctx, span := c.tracer.Start(ctx, "resolution.stage", trace.WithAttributes(
		attribute.String("stage", stage.Label),
		attribute.String("query", value),
	))
	defer span.End()

	var matches []mdall.Match
	err := c.withRetry(ctx, mdall.EndpointIdentifier, func(ctx context.Context) error {
		var err error
		matches, err = c.lookup.FindByIdentifier(ctx, value, stage.State)
		return err
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("matches", len(matches)))
	return matches, nil
}

func (c *Cascade) fetchDevice(ctx context.Context, stage Stage, id mdall.DeviceID) (*mdall.Device, error) {
	ctx, span := c.tracer.Start(ctx, "resolution.device", trace.WithAttributes(
		attribute.String("stage", stage.Label),
		attribute.String("device_id", id.String()),
	))
	defer span.End()

	var device *mdall.Device
	err := c.withRetry(ctx, mdall.EndpointDevice, func(ctx context.Context) error {
		var err error
		device, err = c.lookup.Device(ctx, id, stage.State)
		return err
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if device == nil {
		err := mdall.NewLookupError(mdall.ErrorBadData, mdall.EndpointDevice, "empty device record", nil)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return device, nil
}

func (c *Cascade) fromCache(ctx context.Context, key Key) (Outcome, bool) {
	if c.cache == nil || !c.breaker.Allow() {
		return Outcome{}, false
	}
	cached, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		c.cacheSucceeded(ctx)
		c.metrics.RecordCacheHit()
		return cached, true
	case errors.Is(err, sentinel.ErrNotFound):
		c.cacheSucceeded(ctx)
	default:
		c.logger.WarnContext(ctx, "resolution cache read failed", "key", key.String(), "error", err)
		c.cacheFailed(ctx)
	}
	c.metrics.RecordCacheMiss()
	return Outcome{}, false
}

func (c *Cascade) toCache(ctx context.Context, key Key, out Outcome) {
	if c.cache == nil || !out.Cacheable() || !c.breaker.Allow() {
		return
	}
	if err := c.cache.Put(ctx, key, out); err != nil {
		c.logger.WarnContext(ctx, "resolution cache write failed", "key", key.String(), "error", err)
		c.cacheFailed(ctx)
		return
	}
	c.cacheSucceeded(ctx)
}

func (c *Cascade) cacheFailed(ctx context.Context) {
	if c.breaker.RecordFailure() {
		c.logger.WarnContext(ctx, "resolution cache bypassed after repeated failures", "breaker", c.breaker.Name())
	}
}

func (c *Cascade) cacheSucceeded(ctx context.Context) {
	if c.breaker.RecordSuccess() {
		c.logger.InfoContext(ctx, "resolution cache recovered", "breaker", c.breaker.Name())
	}
}
