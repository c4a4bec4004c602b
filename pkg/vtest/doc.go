// Package vtest provides testing helpers for projet-ui components.
//
// Components run on an event loop and schedule timers through a
// loop.Scheduler. In tests, Clock replaces the real loop: nothing runs until
// the test drains the queue or advances virtual time, so lifetimes like a
// 300 ms exit animation are asserted without sleeping.
//
// # Quick Start
//
//	func TestToastDismiss(t *testing.T) {
//	    doc := vtest.NewPage(t, `<html><body></body></html>`)
//	    clock := vtest.NewClock()
//	    toasts := toast.New(doc, clock)
//
//	    n := toasts.Success("Saved")
//	    clock.Advance(5 * time.Second)
//	    clock.Advance(300 * time.Millisecond)
//	    if doc.Attached(n.Node()) {
//	        t.Error("toast still on the page")
//	    }
//	}
//
// # Waiting on background work
//
// Work that completes off-loop (an HTTP round trip, for example) dispatches
// its result back through the Clock. Await runs those callbacks on the test
// goroutine until the given channel closes:
//
//	done := submitter.Submit(ctx, form)
//	clock.Await(t, done, time.Second)
//
// # Render Assertions
//
// Assert on rendered HTML output:
//
//	vtest.ExpectContains(t, toast.Render(n), "Saved")
//	vtest.ExpectAttribute(t, node, "role", "alert")
package vtest
