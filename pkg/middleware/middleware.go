package middleware

import (
	"context"
	"log/slog"
	"net/url"
	"time"
)

// Event describes one inbound page event as seen by middleware.
type Event struct {
	// Type is the client event type: hello, submit, blur, input or click.
	Type string
	// HID is the hydration id of the target element, empty for hello.
	HID string
	// Path is the page path of the session.
	Path string
	// Session is the session id.
	Session string
	// Visitor is the visitor id from the visitor cookie.
	Visitor string
	// Value is the field value reported with blur and input events.
	Value string
	// Fields are the form values reported with submit events.
	Fields url.Values
	// Patches is set by the handler to the number of patches the event produced.
	Patches int
}

// Handler processes one event on the page loop.
type Handler func(ctx context.Context, ev *Event) error

// Middleware wraps a Handler.
type Middleware func(next Handler) Handler

// Chain wraps h so that mws run in order, the first one outermost.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Logging logs every event at debug level and failures at warn level.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "events")
	return func(next Handler) Handler {
		return func(ctx context.Context, ev *Event) error {
			start := time.Now()
			err := next(ctx, ev)
			attrs := []any{
				"type", ev.Type,
				"hid", ev.HID,
				"path", ev.Path,
				"session", ev.Session,
				"patches", ev.Patches,
				"duration", time.Since(start),
			}
			if err != nil {
				logger.Warn("event failed", append(attrs, "error", err)...)
			} else {
				logger.Debug("event handled", attrs...)
			}
			return err
		}
	}
}
