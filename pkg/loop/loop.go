// Package loop provides the single-threaded event loop that owns a page.
//
// Every mutation of a page document happens on its loop. Timers and the
// completion of background work are queued back onto the loop with Dispatch,
// so UI code never needs locks.
package loop

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler runs callbacks on an event loop.
type Scheduler interface {
	// Dispatch queues fn to run on the loop. Safe from any goroutine.
	Dispatch(fn func())

	// After runs fn on the loop once d has elapsed. The returned cancel
	// function stops the timer; calling it more than once is harmless.
	After(d time.Duration, fn func()) (cancel func())
}

// DefaultQueueSize is the dispatch queue capacity used by New.
const DefaultQueueSize = 256

// Loop is a Scheduler backed by a goroutine draining a dispatch queue.
type Loop struct {
	queue  chan func()
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once

	// AfterEach, when set, runs on the loop after every dispatched callback.
	// The live session uses it to flush document patches.
	AfterEach func()

	logger *slog.Logger
}

// New creates a loop. Call Run to start processing.
func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		queue:  make(chan func(), DefaultQueueSize),
		done:   make(chan struct{}),
		logger: logger.With("component", "loop"),
	}
}

// Run processes callbacks until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.Close()
			return
		case <-l.done:
			return
		case fn := <-l.queue:
			l.run(fn)
		}
	}
}

// run executes one callback, then AfterEach. AfterEach runs even when the
// callback panicked so changes made before the panic still reach the page.
func (l *Loop) run(fn func()) {
	l.guard(fn)
	if l.AfterEach != nil {
		l.guard(l.AfterEach)
	}
}

// guard runs fn, logging a panic instead of propagating it.
func (l *Loop) guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("callback panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}

// Dispatch implements Scheduler.
func (l *Loop) Dispatch(fn func()) {
	if l.closed.Load() {
		return
	}
	select {
	case l.queue <- fn:
	case <-l.done:
	default:
		l.logger.Warn("dispatch queue full, discarding callback")
	}
}

// After implements Scheduler.
func (l *Loop) After(d time.Duration, fn func()) func() {
	var fired atomic.Bool
	timer := time.AfterFunc(d, func() {
		if fired.CompareAndSwap(false, true) {
			l.Dispatch(fn)
		}
	})
	return func() {
		fired.Store(true)
		timer.Stop()
	}
}

// Close stops the loop. Pending callbacks are dropped.
func (l *Loop) Close() {
	l.once.Do(func() {
		l.closed.Store(true)
		close(l.done)
	})
}

// Done is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
