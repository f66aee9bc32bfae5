// internal/requestqueue/queue_test.go
package requestqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// -- Fake clock --

// fakeClock advances instantly on Sleep and records every sleep duration, so
// spacing decisions are observable without real waiting. AfterFunc timers
// fire when Advance moves the clock past their deadline.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock    *fakeClock
	deadline time.Time
	f        func()
	active   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d > 0 {
		c.mu.Lock()
		c.sleeps = append(c.sleeps, d)
		c.mu.Unlock()
		c.Advance(d)
	}
	return nil
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, deadline: c.now.Add(d), f: f, active: true}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and fires any timers that came due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []func()
	for _, t := range c.timers {
		if t.active && !t.deadline.After(c.now) {
			t.active = false
			due = append(due, t.f)
		}
	}
	c.mu.Unlock()
	for _, f := range due {
		f()
	}
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

func (t *fakeTimer) Reset(d time.Duration) bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := t.active
	t.deadline = t.clock.now.Add(d)
	t.active = true
	return was
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := t.active
	t.active = false
	return was
}

func testQueueConfig() config.QueueConfig {
	return config.QueueConfig{
		BaseDelay:     1 * time.Second,
		MaxDelay:      4 * time.Second,
		ResetAfter:    2 * time.Minute,
		MaxAttempts:   3,
		RetryBaseWait: 2 * time.Second,
	}
}

func newTestQueue(t *testing.T) (*Queue, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	return NewWithClock(testQueueConfig(), zap.NewNop(), clock), clock
}

// -- Queue tests --

func TestEnqueue_ReturnsTaskOutcome(t *testing.T) {
	q, _ := newTestQueue(t)

	text, err := q.Enqueue(context.Background(), func(ctx context.Context) (string, error) {
		return "hello", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	wantErr := errors.New("provider exploded")
	_, err = q.Enqueue(context.Background(), func(ctx context.Context) (string, error) {
		return "", wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestEnqueue_SerializesTasks(t *testing.T) {
	q, _ := newTestQueue(t)

	var inFlight, maxInFlight, executed int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.Enqueue(context.Background(), func(ctx context.Context) (string, error) {
				cur := atomic.AddInt32(&inFlight, 1)
				for {
					prev := atomic.LoadInt32(&maxInFlight)
					if cur <= prev || atomic.CompareAndSwapInt32(&maxInFlight, prev, cur) {
						break
					}
				}
				atomic.AddInt32(&executed, 1)
				atomic.AddInt32(&inFlight, -1)
				return "", nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 5, atomic.LoadInt32(&executed))
	assert.EqualValues(t, 1, atomic.LoadInt32(&maxInFlight), "at most one task may be in flight")
	assert.Zero(t, q.Len())
}

func TestEnqueue_StrictFIFOOrder(t *testing.T) {
	q, _ := newTestQueue(t)

	// Hold the drain loop on a blocker so the five tasks below pile up in a
	// known submission order before any of them dispatches.
	release := make(chan struct{})
	blockerRunning := make(chan struct{})
	go func() {
		_, _ = q.Enqueue(context.Background(), func(ctx context.Context) (string, error) {
			close(blockerRunning)
			<-release
			return "", nil
		})
	}()
	<-blockerRunning

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.Enqueue(context.Background(), func(ctx context.Context) (string, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return "", nil
			})
			assert.NoError(t, err)
		}()
		// Confirm the append landed before submitting the next task.
		require.Eventually(t, func() bool { return q.Len() == i+1 },
			time.Second, time.Millisecond)
	}

	close(release)
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order, "tasks must dispatch in submission order")
}

func TestDrain_EnforcesMinimumSpacing(t *testing.T) {
	q, clock := newTestQueue(t)

	noop := func(ctx context.Context) (string, error) { return "", nil }

	// First dispatch has no predecessor, so no spacing sleep is owed.
	_, err := q.Enqueue(context.Background(), noop)
	require.NoError(t, err)
	assert.Empty(t, clock.Sleeps())

	// The second dispatch lands immediately after the first settles and must
	// wait out the full base delay.
	_, err = q.Enqueue(context.Background(), noop)
	require.NoError(t, err)
	require.Len(t, clock.Sleeps(), 1)
	assert.Equal(t, 1*time.Second, clock.Sleeps()[0])
}

func TestDrain_SpacingAccountsForElapsedTime(t *testing.T) {
	q, clock := newTestQueue(t)

	noop := func(ctx context.Context) (string, error) { return "", nil }
	_, err := q.Enqueue(context.Background(), noop)
	require.NoError(t, err)

	// 400ms of real time has passed; only the remaining 600ms is owed.
	clock.Advance(400 * time.Millisecond)
	_, err = q.Enqueue(context.Background(), noop)
	require.NoError(t, err)
	require.Len(t, clock.Sleeps(), 1)
	assert.Equal(t, 600*time.Millisecond, clock.Sleeps()[0])
}

func TestEnqueue_CancelledCallerStillRunsTask(t *testing.T) {
	q, _ := newTestQueue(t)

	release := make(chan struct{})
	ran := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := q.Enqueue(ctx, func(ctx context.Context) (string, error) {
			<-release
			close(ran)
			return "late", nil
		})
		done <- err
	}()

	// The caller observes cancellation even though the task is blocked.
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	// The task itself still runs to completion inside the drain loop.
	close(release)
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task was abandoned instead of running to completion")
	}
}

func TestNotifyRateLimit_DoublesAndClamps(t *testing.T) {
	q, _ := newTestQueue(t)

	require.Equal(t, 1*time.Second, q.MinDelay())
	q.NotifyRateLimit()
	assert.Equal(t, 2*time.Second, q.MinDelay())
	q.NotifyRateLimit()
	assert.Equal(t, 4*time.Second, q.MinDelay())
	q.NotifyRateLimit()
	assert.Equal(t, 4*time.Second, q.MinDelay(), "spacing must clamp at the ceiling")
}

func TestNotifyRateLimit_ResetsAfterQuietWindow(t *testing.T) {
	q, clock := newTestQueue(t)

	q.NotifyRateLimit()
	require.Equal(t, 2*time.Second, q.MinDelay())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1*time.Second, q.MinDelay(), "quiet window must restore the base delay")
}

func TestNotifyRateLimit_BurstRearmsSingleTimer(t *testing.T) {
	q, clock := newTestQueue(t)

	q.NotifyRateLimit()
	clock.Advance(1 * time.Minute)

	// A second signal inside the window re-arms the same timer, pushing the
	// reset out to a full window from now.
	q.NotifyRateLimit()
	clock.Advance(1 * time.Minute)
	assert.Equal(t, 4*time.Second, q.MinDelay(), "reset must not fire mid-window after re-arm")

	clock.Advance(1 * time.Minute)
	assert.Equal(t, 1*time.Second, q.MinDelay())
}

// -- Retry policy tests --

func TestWithRateLimitRetry_HonorsServerHint(t *testing.T) {
	q, clock := newTestQueue(t)

	calls := 0
	task := WithRateLimitRetry(q, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &schemas.RateLimitError{RetryAfter: 5 * time.Second, Err: errors.New("quota")}
		}
		return "recovered", nil
	})

	text, err := task(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, clock.Sleeps())
	// Each rate-limited attempt also widened the shared spacing.
	assert.Equal(t, 4*time.Second, q.MinDelay())
}

func TestWithRateLimitRetry_ExponentialFallbackWithoutHint(t *testing.T) {
	q, clock := newTestQueue(t)

	calls := 0
	task := WithRateLimitRetry(q, func(ctx context.Context) (string, error) {
		calls++
		return "", &schemas.RateLimitError{Err: errors.New("quota")}
	})

	_, err := task(context.Background())
	var rle *schemas.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, 3, calls, "attempts must be bounded")
	// 2s, then 4s; no wait after the final attempt.
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, clock.Sleeps())
}

func TestWithRateLimitRetry_OtherErrorsPropagateImmediately(t *testing.T) {
	q, clock := newTestQueue(t)

	calls := 0
	wantErr := errors.New("schema violation")
	task := WithRateLimitRetry(q, func(ctx context.Context) (string, error) {
		calls++
		return "", wantErr
	})

	_, err := task(context.Background())
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls, "non-rate-limit errors are never retried")
	assert.Empty(t, clock.Sleeps())
	assert.Equal(t, 1*time.Second, q.MinDelay(), "spacing must not widen on a non-rate-limit error")
}

func TestWithRateLimitRetry_CancelledDuringWait(t *testing.T) {
	clock := newFakeClock()
	q := NewWithClock(testQueueConfig(), zap.NewNop(), clock)

	ctx, cancel := context.WithCancel(context.Background())
	task := WithRateLimitRetry(q, func(ctx context.Context) (string, error) {
		cancel()
		return "", &schemas.RateLimitError{Err: errors.New("quota")}
	})

	_, err := task(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
