// Package middleware provides the observability layer of the UI server.
//
// Page events arriving over the websocket run through a Handler chain:
//
//	h := middleware.Chain(handle,
//	    middleware.Logging(logger),
//	    middleware.OpenTelemetry(),
//	    metrics.Middleware(),
//	)
//
// # OpenTelemetry
//
// OpenTelemetry starts a span per event (ui.submit, ui.click, ...) with the
// session, path and target element. The span context flows into the handler,
// so the form.submit spans of intercepted submissions are its children.
//
// # Prometheus
//
// NewMetrics registers the collectors. Besides event counts and durations it
// tracks what the components put on screen: each session gets a
// SessionMetrics that observes its toasts, overlays and submissions.
//
//	metrics := middleware.NewMetrics()
//	r.Handle("/metrics", metrics.Handler())
//
//	sm := metrics.Session()
//	defer sm.Close()
//	deps := app.NewDeps(doc, loop, app.Options{
//	    Observers: app.Observers{Toasts: sm, Overlays: sm, Forms: sm},
//	})
package middleware
