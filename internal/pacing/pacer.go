// Package pacing enforces a minimum interval between lookup rows.
package pacing

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer gates the first request of each row.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Unlimited never blocks. Tests and pace=0 runs use it.
var Unlimited Pacer = unlimited{}

type unlimited struct{}

func (unlimited) Wait(ctx context.Context) error {
	return ctx.Err()
}

// Interval admits one caller per interval with no burst beyond the first.
type Interval struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// New returns a Pacer for the given minimum interval. A non-positive
// interval disables pacing.
func New(interval time.Duration) Pacer {
	if interval <= 0 {
		return Unlimited
	}
	return &Interval{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
	}
}

// Wait blocks until the next slot or until ctx is done.
func (p *Interval) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

func (p *Interval) Interval() time.Duration {
	return p.interval
}
