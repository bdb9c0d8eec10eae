package resolution

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"devicelink/internal/mdall"
)

// withRetry runs call once plus up to c.retries more times with a constant
// delay. Only retryable lookup errors are repeated; anything else, including
// caller cancellation, is returned at once.
func (c *Cascade) withRetry(ctx context.Context, endpoint string, call func(context.Context) error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), uint64(c.retries)),
		ctx,
	)

	attempt := 0
	op := func() error {
		attempt++
		err := call(ctx)
		if err == nil {
			return nil
		}
		if !mdall.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.metrics.IncrementRetries(endpoint)
		c.logger.DebugContext(ctx, "retrying lookup call",
			"endpoint", endpoint,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	}

	return backoff.RetryNotify(op, policy, notify)
}
