package schemas

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotConfigured is returned when a gateway call is attempted without a
// usable provider credential. It fails fast before any queue interaction,
// since no amount of retrying fixes a missing API key.
var ErrNotConfigured = errors.New("ai gateway is not configured")

// RateLimitError marks a generation failure caused by exceeding the
// provider's request quota. The request queue and the per-task retry policy
// branch on this type: rate-limit failures widen the shared dispatch spacing
// and are retried, everything else propagates immediately.
type RateLimitError struct {
	// RetryAfter is the server-hinted wait before the next attempt.
	// Zero means the provider gave no hint.
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// AsRateLimit reports whether err is (or wraps) a RateLimitError, returning
// the server-hinted retry delay when present.
func AsRateLimit(err error) (time.Duration, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle.RetryAfter, true
	}
	return 0, false
}
