package middleware

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type recordedSpan struct {
	noop.Span
	name   string
	kind   trace.SpanKind
	attrs  map[attribute.Key]attribute.Value
	status codes.Code
	errs   []error
	ended  bool
}

func (s *recordedSpan) SetAttributes(kv ...attribute.KeyValue) {
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}
func (s *recordedSpan) SetStatus(c codes.Code, _ string)              { s.status = c }
func (s *recordedSpan) RecordError(err error, _ ...trace.EventOption) { s.errs = append(s.errs, err) }
func (s *recordedSpan) End(...trace.SpanEndOption)                    { s.ended = true }

type recordingTracer struct {
	noop.Tracer
	spans []*recordedSpan
}

func (r *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordedSpan{name: name, kind: cfg.SpanKind(), attrs: map[attribute.Key]attribute.Value{}}
	s.SetAttributes(cfg.Attributes()...)
	r.spans = append(r.spans, s)
	return trace.ContextWithSpan(ctx, s), s
}

func TestOpenTelemetryConfig(t *testing.T) {
	c := defaultOTelConfig()
	if c.TracerName != "projet-ui" || c.IncludeVisitor || c.Filter != nil {
		t.Errorf("defaults: %+v", c)
	}
	WithTracerName("app")(&c)
	WithIncludeVisitor(true)(&c)
	if c.TracerName != "app" || !c.IncludeVisitor {
		t.Errorf("options not applied: %+v", c)
	}
}

func TestSpanName(t *testing.T) {
	if got := SpanName(&Event{Type: "submit"}); got != "ui.submit" {
		t.Errorf("SpanName: got %q", got)
	}
	if got := SpanName(&Event{}); got != "ui.event" {
		t.Errorf("SpanName empty: got %q", got)
	}
}

func TestOpenTelemetryRecordsSpan(t *testing.T) {
	tr := &recordingTracer{}
	mw := OpenTelemetry(
		WithTracer(tr),
		WithIncludeVisitor(true),
		WithAttributeExtractor(func(*Event) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	)

	var inner trace.Span
	h := Chain(func(ctx context.Context, ev *Event) error {
		inner = trace.SpanFromContext(ctx)
		ev.Patches = 4
		return nil
	}, mw)
	err := h(context.Background(), &Event{Type: "click", HID: "h3", Path: "/", Session: "s1", Visitor: "v1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(tr.spans) != 1 {
		t.Fatalf("spans: got %d, want 1", len(tr.spans))
	}
	s := tr.spans[0]
	if inner != trace.Span(s) {
		t.Error("handler should receive the span in its context")
	}
	if s.name != "ui.click" || s.kind != trace.SpanKindServer {
		t.Errorf("span: name=%q kind=%v", s.name, s.kind)
	}
	for key, want := range map[attribute.Key]string{
		"ui.event_target": "h3",
		"ui.session_id":   "s1",
		"ui.visitor_id":   "v1",
		"test.attr":       "ok",
	} {
		if got := s.attrs[key].AsString(); got != want {
			t.Errorf("attribute %s: got %q, want %q", key, got, want)
		}
	}
	if s.attrs["ui.patch_count"].AsInt64() != 4 {
		t.Errorf("patch count: got %v", s.attrs["ui.patch_count"])
	}
	if s.status != codes.Ok || !s.ended {
		t.Errorf("status=%v ended=%v", s.status, s.ended)
	}
}

func TestOpenTelemetryRecordsError(t *testing.T) {
	tr := &recordingTracer{}
	boom := errors.New("boom")
	h := Chain(func(context.Context, *Event) error { return boom }, OpenTelemetry(WithTracer(tr)))

	if err := h(context.Background(), &Event{Type: "submit"}); err != boom {
		t.Fatalf("error not propagated: %v", err)
	}
	s := tr.spans[0]
	if s.status != codes.Error || len(s.errs) != 1 {
		t.Errorf("status=%v errs=%v", s.status, s.errs)
	}
	if _, ok := s.attrs["ui.visitor_id"]; ok {
		t.Error("visitor id should be omitted by default")
	}
}

func TestOpenTelemetryFilterSkipsTracing(t *testing.T) {
	tr := &recordingTracer{}
	called := false
	h := Chain(func(context.Context, *Event) error { called = true; return nil },
		OpenTelemetry(WithTracer(tr), WithEventFilter(func(ev *Event) bool { return ev.Type != "input" })))

	h(context.Background(), &Event{Type: "input"})
	if !called {
		t.Error("filtered event should still reach the handler")
	}
	if len(tr.spans) != 0 {
		t.Errorf("filtered event traced: %d spans", len(tr.spans))
	}
}
