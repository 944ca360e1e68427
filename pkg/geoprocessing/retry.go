package geoprocessing

import (
	"context"
	"errors"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// RunWithRetry runs inv and re-runs the whole submit, track and resolve sequence
// while the error is retryable. A failed or cancelled job cannot be resumed, so
// every attempt is a new job with a fresh invocation id. The last attempt's
// result and error are returned. With names, only those outputs are resolved.
// When ctx ends during a backoff wait the context error is joined with the
// error of the attempt it interrupted.
func (s *Service) RunWithRetry(ctx context.Context, inv Invocation, policy RetryPolicy, names ...string) (*Result, error) {
	var (
		res     *Result
		lastErr error
		attempt int
	)

	err := retry.Do(ctx, policy.backoff(), func(ctx context.Context) error {
		current := inv
		if attempt > 0 {
			current = inv.Retry()
		}
		attempt++

		var err error
		res, err = s.run(ctx, current, names)
		lastErr = err
		if err != nil && IsRetryable(err) {
			s.log.Warn("job attempt failed, retrying",
				zap.String("task", inv.Task()),
				zap.String("invocation_id", current.ID()),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil && lastErr != nil && err == ctx.Err() {
		err = errors.Join(err, lastErr)
	}
	return res, err
}
