// File: internal/requestqueue/retry.go
package requestqueue

import (
	"context"

	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

// WithRateLimitRetry wraps a task with the per-task retry policy: bounded
// attempts on rate-limit failures, waiting the server-hinted retry time when
// one is present and doubling from the configured base otherwise. Every
// rate-limited attempt also notifies the queue so the shared dispatch
// spacing widens in lockstep with the observed pressure.
//
// Non-rate-limit errors are not retried here; they propagate immediately.
// The wrapper runs entirely inside the queue's drain loop, so its waits are
// part of the single task in flight, never concurrent dispatches.
func WithRateLimitRetry(q *Queue, op Task) Task {
	return func(ctx context.Context) (string, error) {
		var lastErr error
		for attempt := 0; attempt < q.cfg.MaxAttempts; attempt++ {
			text, err := op(ctx)
			if err == nil {
				return text, nil
			}

			hint, isRateLimit := schemas.AsRateLimit(err)
			if !isRateLimit {
				return "", err
			}

			lastErr = err
			q.NotifyRateLimit()

			if attempt == q.cfg.MaxAttempts-1 {
				break
			}

			wait := hint
			if wait <= 0 {
				wait = q.cfg.RetryBaseWait * (1 << attempt)
			}
			q.logger.Warn("Rate limited; retrying task",
				zap.Int("attempt", attempt+1),
				zap.Duration("wait", wait),
				zap.Bool("server_hinted", hint > 0))
			if err := q.clock.Sleep(ctx, wait); err != nil {
				return "", err
			}
		}
		return "", lastErr
	}
}
