package middleware

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name.
const defaultTracerName = "projet-ui"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "projet-ui").
	TracerName string

	// Tracer overrides the tracer taken from the global provider.
	Tracer trace.Tracer

	// IncludeVisitor includes the visitor id in traces.
	// It identifies a browser across sessions, so it is off by default.
	IncludeVisitor bool

	// Filter determines which events to trace.
	// Return true to trace the event, false to skip.
	// If nil, all events are traced.
	Filter func(ev *Event) bool

	// AttributeExtractor extracts custom attributes from the event.
	AttributeExtractor func(ev *Event) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracer sets the tracer directly.
func WithTracer(t trace.Tracer) OTelOption {
	return func(c *OTelConfig) {
		c.Tracer = t
	}
}

// WithIncludeVisitor enables including the visitor id in traces.
func WithIncludeVisitor(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeVisitor = include
	}
}

// WithEventFilter sets a filter function for events.
func WithEventFilter(filter func(ev *Event) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(ev *Event) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
	}
}

// OpenTelemetry creates middleware that traces every page event.
//
// Each event gets a server span named "ui.<type>" carrying the path,
// session, event type and target. The span context is passed to the next
// handler, so form submissions started by the event become child spans.
// Errors are recorded on the span and the patch count is added once the
// handler returns.
//
// The tracer uses the global OpenTelemetry tracer provider unless
// WithTracer is given. Configure it in main() before starting the server:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}
	tracer := config.Tracer
	if tracer == nil {
		tracer = otel.Tracer(config.TracerName)
	}

	return func(next Handler) Handler {
		return func(ctx context.Context, ev *Event) error {
			if config.Filter != nil && !config.Filter(ev) {
				return next(ctx, ev)
			}

			attrs := []attribute.KeyValue{
				attribute.String("ui.path", ev.Path),
				attribute.String("ui.event_type", ev.Type),
			}
			if ev.HID != "" {
				attrs = append(attrs, attribute.String("ui.event_target", ev.HID))
			}
			if ev.Session != "" {
				attrs = append(attrs, attribute.String("ui.session_id", ev.Session))
			}
			if config.IncludeVisitor && ev.Visitor != "" {
				attrs = append(attrs, attribute.String("ui.visitor_id", ev.Visitor))
			}
			if config.AttributeExtractor != nil {
				attrs = append(attrs, config.AttributeExtractor(ev)...)
			}

			spanCtx, span := tracer.Start(ctx, SpanName(ev),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			err := next(spanCtx, ev)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			span.SetAttributes(attribute.Int("ui.patch_count", ev.Patches))
			return err
		}
	}
}

// SpanName returns the span name used for ev.
func SpanName(ev *Event) string {
	if ev.Type == "" {
		return "ui.event"
	}
	return fmt.Sprintf("ui.%s", ev.Type)
}
