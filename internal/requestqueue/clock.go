package requestqueue

import (
	"context"
	"time"
)

// Clock abstracts time so the queue's spacing and reset behavior can be
// driven deterministically in tests.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
	// AfterFunc schedules f to run after d and returns a re-armable timer.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the re-armable one-shot handle returned by Clock.AfterFunc.
type Timer interface {
	Reset(d time.Duration) bool
	Stop() bool
}

// SystemClock is the production Clock backed by the time package.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
