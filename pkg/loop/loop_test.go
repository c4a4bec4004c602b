package loop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatchRunsInOrder(t *testing.T) {
	l := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	got := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		l.Dispatch(func() { got <- i })
	}
	for want := 1; want <= 3; want++ {
		select {
		case v := <-got:
			if v != want {
				t.Fatalf("got %d, want %d", v, want)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out")
		}
	}
}

func TestPanicDoesNotStopLoop(t *testing.T) {
	l := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	done := make(chan struct{})
	l.Dispatch(func() { panic("boom") })
	l.Dispatch(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop stopped after panic")
	}
}

func TestAfterCancel(t *testing.T) {
	l := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	var ran atomic.Bool
	stop := l.After(20*time.Millisecond, func() { ran.Store(true) })
	stop()
	stop()

	fired := make(chan struct{})
	l.After(40*time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("second timer never fired")
	}
	if ran.Load() {
		t.Error("cancelled timer ran")
	}
}

func TestAfterEachHook(t *testing.T) {
	l := New(nil)
	var flushes atomic.Int32
	l.AfterEach = func() { flushes.Add(1) }
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	done := make(chan struct{})
	l.Dispatch(func() {})
	l.Dispatch(func() { close(done) })
	<-done
	time.Sleep(10 * time.Millisecond)
	if flushes.Load() != 2 {
		t.Errorf("AfterEach ran %d times, want 2", flushes.Load())
	}
}

func TestAfterEachRunsAfterPanic(t *testing.T) {
	l := New(nil)
	flushed := make(chan int32, 1)
	var marks atomic.Int32
	l.AfterEach = func() { flushed <- marks.Load() }
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	l.Dispatch(func() {
		marks.Add(1)
		panic("boom")
	})

	select {
	case got := <-flushed:
		if got != 1 {
			t.Errorf("AfterEach saw %d changes, want 1", got)
		}
	case <-time.After(time.Second):
		t.Fatal("AfterEach did not run after a panicking callback")
	}
}

func TestCloseDropsDispatch(t *testing.T) {
	l := New(nil)
	l.Close()
	l.Close()
	l.Dispatch(func() { t.Error("ran after close") })
	select {
	case <-l.Done():
	default:
		t.Error("Done not closed")
	}
}
