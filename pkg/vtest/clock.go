package vtest

import (
	"sort"
	"sync"
	"testing"
	"time"
)

// Clock is a manual loop.Scheduler. Dispatched callbacks and due timers run
// on the goroutine that calls Drain, Advance or Await, never on their own.
type Clock struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*timer
	queue  chan func()
}

type timer struct {
	due       time.Duration
	seq       int
	fn        func()
	cancelled bool
}

// NewClock returns a Clock at virtual time zero.
func NewClock() *Clock {
	return &Clock{queue: make(chan func(), 1024)}
}

// Dispatch queues fn. Safe from any goroutine.
func (c *Clock) Dispatch(fn func()) {
	c.queue <- fn
}

// After schedules fn to run once virtual time reaches now+d.
func (c *Clock) After(d time.Duration, fn func()) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &timer{due: c.now + d, seq: c.seq, fn: fn}
	c.timers = append(c.timers, t)
	return func() {
		c.mu.Lock()
		t.cancelled = true
		c.mu.Unlock()
	}
}

// Now returns the elapsed virtual time.
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Pending returns the number of timers that have neither fired nor been cancelled.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Drain runs queued callbacks until the queue is empty.
func (c *Clock) Drain() {
	for {
		select {
		case fn := <-c.queue:
			fn()
		default:
			return
		}
	}
}

// Advance moves virtual time forward by d, firing due timers in order.
// Callbacks dispatched along the way run before the next timer fires.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.Drain()
		t := c.next(target)
		if t == nil {
			break
		}
		t.fn()
	}

	c.mu.Lock()
	c.now = target
	c.mu.Unlock()
	c.Drain()
}

// next pops the earliest live timer due at or before target and moves the
// clock to its due time.
func (c *Clock) next(target time.Duration) *timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	c.timers = live
	if len(c.timers) == 0 {
		return nil
	}

	sort.Slice(c.timers, func(i, j int) bool {
		if c.timers[i].due != c.timers[j].due {
			return c.timers[i].due < c.timers[j].due
		}
		return c.timers[i].seq < c.timers[j].seq
	})
	t := c.timers[0]
	if t.due > target {
		return nil
	}
	c.timers = c.timers[1:]
	if t.due > c.now {
		c.now = t.due
	}
	return t
}

// Await runs dispatched callbacks until done is closed, failing the test if
// that takes longer than timeout of real time.
func (c *Clock) Await(t testing.TB, done <-chan struct{}, timeout time.Duration) {
	t.Helper()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case fn := <-c.queue:
			fn()
		case <-done:
			c.Drain()
			return
		case <-deadline.C:
			t.Fatalf("vtest: not done after %v", timeout)
			return
		}
	}
}
