// File: internal/requestqueue/queue.go
// Description: The single global serialization point for all generation
// calls. Tasks dispatch strictly in FIFO submission order with at most one
// in flight; the queue enforces a minimum inter-dispatch delay that doubles
// under rate-limit pressure and snaps back to baseline after a quiet window.

package requestqueue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/internal/config"
)

// Task is an opaque asynchronous operation (prompt -> text) submitted to the
// queue. The queue never inspects task contents; it only sequences and times
// execution. Retries are internal to the task, not re-enqueues.
type Task func(ctx context.Context) (string, error)

type result struct {
	text string
	err  error
}

type pendingTask struct {
	ctx  context.Context
	task Task
	done chan result
}

// Queue serializes every gateway call behind one drain loop. Serializing is
// deliberate: the backing generative API enforces per-minute quotas, and one
// task in flight is the simplest correct way to respect a global budget
// without per-caller coordination.
type Queue struct {
	cfg    config.QueueConfig
	logger *zap.Logger
	clock  Clock

	mu           sync.Mutex
	minDelay     time.Duration
	lastDispatch time.Time
	pending      []*pendingTask
	draining     bool
	resetTimer   Timer
}

// New creates a queue with the production clock.
func New(cfg config.QueueConfig, logger *zap.Logger) *Queue {
	return NewWithClock(cfg, logger, SystemClock{})
}

// NewWithClock creates a queue with an injected clock. Tests use this to
// drive spacing deterministically.
func NewWithClock(cfg config.QueueConfig, logger *zap.Logger, clock Clock) *Queue {
	return &Queue{
		cfg:      cfg,
		logger:   logger.Named("request_queue"),
		clock:    clock,
		minDelay: cfg.BaseDelay,
	}
}

// Enqueue appends the task to the tail of the queue, starts draining if no
// drain loop is running, and blocks until the task settles. The returned
// outcome is the task's own; the queue alters timing, never semantics.
//
// If ctx is cancelled while the task is still pending or in flight, Enqueue
// returns ctx.Err() but the task itself still runs to completion inside the
// drain loop and still updates the dispatch clock: the queue has no
// visibility into caller abandonment.
func (q *Queue) Enqueue(ctx context.Context, task Task) (string, error) {
	p := &pendingTask{ctx: ctx, task: task, done: make(chan result, 1)}

	q.mu.Lock()
	q.pending = append(q.pending, p)
	if !q.draining {
		q.draining = true
		go q.drain()
	}
	depth := len(q.pending)
	q.mu.Unlock()

	q.logger.Debug("Task enqueued", zap.Int("queue_depth", depth))

	select {
	case res := <-p.done:
		return res.text, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// drain pops and executes queued tasks one at a time until the queue is
// empty, then returns to idle. A subsequent Enqueue restarts draining.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		p := q.pending[0]
		q.pending = q.pending[1:]
		wait := q.minDelay - q.clock.Now().Sub(q.lastDispatch)
		q.mu.Unlock()

		// The only suspension point in the queue. The spacing delay is not
		// tied to the task's context: a cancelled caller must not let the
		// next task jump the shared budget.
		if wait > 0 {
			_ = q.clock.Sleep(context.Background(), wait)
		}

		text, err := p.task(p.ctx)

		// The dispatch clock advances after the task settles, success or
		// failure: even a failing call consumed real quota and time.
		q.mu.Lock()
		q.lastDispatch = q.clock.Now()
		q.mu.Unlock()

		p.done <- result{text: text, err: err}
	}
}

// NotifyRateLimit doubles the inter-dispatch spacing up to the configured
// ceiling and (re-)arms a single one-shot reset back to the baseline. A
// burst of rate-limit signals inside the window keeps re-arming the same
// timer rather than stacking independent resets.
func (q *Queue) NotifyRateLimit() {
	q.mu.Lock()
	defer q.mu.Unlock()

	prev := q.minDelay
	q.minDelay *= 2
	if q.minDelay > q.cfg.MaxDelay {
		q.minDelay = q.cfg.MaxDelay
	}
	q.logger.Warn("Rate limit signalled; widening dispatch spacing",
		zap.Duration("previous_delay", prev),
		zap.Duration("min_delay", q.minDelay))

	if q.resetTimer != nil {
		q.resetTimer.Reset(q.cfg.ResetAfter)
		return
	}
	q.resetTimer = q.clock.AfterFunc(q.cfg.ResetAfter, q.resetToBase)
}

// resetToBase hard-resets the spacing to the configured floor.
func (q *Queue) resetToBase() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.minDelay = q.cfg.BaseDelay
	q.resetTimer = nil
	q.logger.Info("Quiet period elapsed; dispatch spacing reset",
		zap.Duration("min_delay", q.minDelay))
}

// MinDelay reports the currently enforced spacing between dispatches.
func (q *Queue) MinDelay() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.minDelay
}

// Len reports the number of tasks waiting for dispatch.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
