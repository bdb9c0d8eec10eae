// Package batch drives the formatter and the resolution cascade over whole
// registry extracts.
package batch

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"devicelink/internal/catalogue"
	"devicelink/internal/pacing"
	"devicelink/internal/platform/logger"
	"devicelink/internal/platform/metrics"
	"devicelink/internal/resolution"
	"devicelink/internal/tabular"
	"devicelink/pkg/requestcontext"
)

// Resolver is satisfied by *resolution.Cascade.
type Resolver interface {
	Resolve(ctx context.Context, formatted, raw string) resolution.Outcome
}

// Publisher receives every row result as it completes. Failures are logged
// and do not stop the run.
type Publisher interface {
	Publish(ctx context.Context, result Result) error
}

type Runner struct {
	resolver  Resolver
	pacer     pacing.Pacer
	workers   int
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	newRunID  func() string
}

type Option func(*Runner)

func WithPacer(p pacing.Pacer) Option {
	return func(r *Runner) {
		r.pacer = p
	}
}

// WithWorkers sets how many rows resolve concurrently. Output order is the
// input order regardless.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		r.workers = max(n, 1)
	}
}

func WithPublisher(p Publisher) Option {
	return func(r *Runner) {
		r.publisher = p
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

func NewRunner(resolver Resolver, opts ...Option) *Runner {
	r := &Runner{
		resolver: resolver,
		pacer:    pacing.Unlimited,
		workers:  1,
		logger:   logger.Discard(),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type job struct {
	row          int
	identifier   string
	catNum       string
	manufacturer string
}

// Resolve runs the cascade for every row of a formatted extract
// (device_identifier, cat_num_cleaned, optional Manufacturer).
func (r *Runner) Resolve(ctx context.Context, in *tabular.Table) (*Report, error) {
	if err := in.Require(ColIdentifier, ColCatNum); err != nil {
		return nil, err
	}
	jobs := make([]job, in.Len())
	for i := range jobs {
		jobs[i] = job{
			row:          i + 1,
			identifier:   in.Get(i, ColIdentifier),
			catNum:       in.Get(i, ColCatNum),
			manufacturer: in.Get(i, ColManufacturer),
		}
	}
	return r.process(ctx, jobs)
}

// Run formats and resolves a raw extract (cat_num_cleaned, Manufacturer) in
// one pass.
func (r *Runner) Run(ctx context.Context, in *tabular.Table) (*Report, error) {
	if err := in.Require(ColCatNum, ColManufacturer); err != nil {
		return nil, err
	}
	jobs := make([]job, in.Len())
	for i := range jobs {
		catNum := in.Get(i, ColCatNum)
		manufacturer := in.Get(i, ColManufacturer)
		jobs[i] = job{
			row:          i + 1,
			identifier:   catalogue.Format(catNum, manufacturer),
			catNum:       catNum,
			manufacturer: manufacturer,
		}
	}
	return r.process(ctx, jobs)
}

func (r *Runner) process(ctx context.Context, jobs []job) (*Report, error) {
	runID := r.newRunID()
	ctx = requestcontext.WithRunID(ctx, runID)
	log := r.logger.With("run_id", runID)

	report := newReport(runID, len(jobs))
	log.InfoContext(ctx, "resolution run started", "rows", len(jobs), "workers", r.workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	// A failed wait leaves later rows unprocessed even when ctx is still live.
	var waitErr error
	for i := range jobs {
		if waitErr = r.pacer.Wait(gctx); waitErr != nil {
			break
		}
		g.Go(func() error {
			report.Results[i] = r.resolveRow(gctx, log, jobs[i])
			return nil
		})
	}
	_ = g.Wait()
	if err := cmp.Or(ctx.Err(), waitErr); err != nil {
		log.WarnContext(ctx, "resolution run interrupted", "error", err)
		return nil, fmt.Errorf("resolution run interrupted: %w", err)
	}

	report.finish()
	log.InfoContext(ctx, "resolution run finished",
		"rows", len(jobs),
		"found", report.Found(),
		"elapsed", report.Elapsed().Round(time.Millisecond),
	)
	return report, nil
}

func (r *Runner) resolveRow(ctx context.Context, log *slog.Logger, j job) Result {
	log.InfoContext(ctx, "searching MDALL",
		"row", j.row,
		"device_identifier", j.identifier,
		"cat_num_cleaned", j.catNum,
	)

	out := r.resolver.Resolve(ctx, j.identifier, j.catNum)
	result := NewResult(j.row, j.identifier, j.catNum, j.manufacturer, out)
	r.metrics.IncrementRowsProcessed()

	log.DebugContext(ctx, "row resolved",
		"row", j.row,
		"outcome", string(out.Kind),
		"state", out.State(),
	)

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, result); err != nil {
			log.WarnContext(ctx, "publish outcome failed", "row", j.row, "error", err)
		}
	}
	return result
}
