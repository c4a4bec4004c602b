package form

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/eneky/projet-ui/pkg/loading"
	"github.com/eneky/projet-ui/pkg/loop"
	"github.com/eneky/projet-ui/pkg/page"
	"github.com/eneky/projet-ui/pkg/toast"
	"github.com/eneky/projet-ui/pkg/vdom"
)

// Default SubmitOptions texts.
const (
	DefaultSubmitText     = "Sending..."
	DefaultSuccessMessage = "Action succeeded!"
	DefaultErrorMessage   = "An error occurred"
	ConnectionErrorText   = "Connection error"
)

// SubmitAttr tells the browser client how to treat a form's submit event.
const SubmitAttr = "data-submit"

// maxBodySize caps how much of a response body is buffered for callbacks.
const maxBodySize = 1 << 20

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SubmitOptions configures an intercepted form. Zero fields take defaults.
type SubmitOptions struct {
	// OnSuccess runs on the loop with an ok response. Its body is buffered.
	OnSuccess func(resp *http.Response)

	// OnError runs on the loop after a failure. For a non-ok response, err
	// is a *ResponseError carrying the body text. For a transport failure,
	// resp is nil.
	OnError func(resp *http.Response, err error)

	// SubmitText labels the submit button while the request is in flight.
	SubmitText string

	// SuccessMessage is the toast shown on an ok response.
	SuccessMessage string

	// ErrorMessage is the toast shown on a non-ok response.
	ErrorMessage string
}

func (o SubmitOptions) withDefaults() SubmitOptions {
	if o.OnSuccess == nil {
		o.OnSuccess = func(*http.Response) {}
	}
	if o.OnError == nil {
		o.OnError = func(*http.Response, error) {}
	}
	if o.SubmitText == "" {
		o.SubmitText = DefaultSubmitText
	}
	if o.SuccessMessage == "" {
		o.SuccessMessage = DefaultSuccessMessage
	}
	if o.ErrorMessage == "" {
		o.ErrorMessage = DefaultErrorMessage
	}
	return o
}

// ResponseError is passed to OnError for a non-ok response.
type ResponseError struct {
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("form: server responded %d", e.StatusCode)
}

// Outcome classifies a finished submission.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeError     Outcome = "error"
	OutcomeTransport Outcome = "transport"
)

// Observer is told how each submission ended.
type Observer interface {
	SubmissionFinished(outcome Outcome)
}

// Submitter intercepts form submissions and performs them off-loop,
// showing a busy overlay and a result toast.
type Submitter struct {
	doc      *page.Document
	sched    loop.Scheduler
	toasts   *toast.Emitter
	overlays *loading.Manager
	client   Doer
	forms    map[*vdom.VNode]SubmitOptions
	tracer   trace.Tracer
	observer Observer
	logger   *slog.Logger
}

// SubmitterOption configures a Submitter.
type SubmitterOption func(*Submitter)

// WithObserver registers an outcome observer.
func WithObserver(o Observer) SubmitterOption {
	return func(s *Submitter) { s.observer = o }
}

// WithTracer overrides the tracer. Defaults to the global provider's.
func WithTracer(t trace.Tracer) SubmitterOption {
	return func(s *Submitter) { s.tracer = t }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) SubmitterOption {
	return func(s *Submitter) { s.logger = l }
}

// NewSubmitter creates a Submitter. A nil client uses http.DefaultClient.
func NewSubmitter(doc *page.Document, sched loop.Scheduler, toasts *toast.Emitter, overlays *loading.Manager, client Doer, opts ...SubmitterOption) *Submitter {
	if client == nil {
		client = http.DefaultClient
	}
	s := &Submitter{
		doc:      doc,
		sched:    sched,
		toasts:   toasts,
		overlays: overlays,
		client:   client,
		forms:    make(map[*vdom.VNode]SubmitOptions),
		tracer:   otel.Tracer("github.com/eneky/projet-ui/pkg/features/form"),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "submit")
	return s
}

// Attach intercepts form: the browser no longer navigates on submit and
// Submit performs the request instead.
func (s *Submitter) Attach(form *vdom.VNode, opts SubmitOptions) {
	s.forms[form] = opts.withDefaults()
	s.doc.SetAttr(form, SubmitAttr, "intercept")
}

// Intercepts reports whether form was attached.
func (s *Submitter) Intercepts(form *vdom.VNode) bool {
	_, ok := s.forms[form]
	return ok
}

// Submit must run on the loop. It overlays the submit button, sends the
// form and dispatches the outcome back onto the loop. The returned channel
// is closed once the outcome has been handled and the overlay released.
func (s *Submitter) Submit(ctx context.Context, form *vdom.VNode) <-chan struct{} {
	done := make(chan struct{})
	opts, ok := s.forms[form]
	if !ok {
		opts = SubmitOptions{}.withDefaults()
	}

	handle, _ := s.overlays.ShowForm(form, opts.SubmitText)
	req, err := NewRequest(ctx, form, s.doc.URL())

	go func() {
		var (
			resp *http.Response
			body []byte
		)
		if err == nil {
			resp, body, err = s.send(req)
		}
		s.sched.Dispatch(func() {
			defer close(done)
			defer s.overlays.Hide(handle)
			s.complete(opts, resp, body, err)
		})
	}()
	return done
}

// send performs req and buffers the body so callbacks can read it on the loop.
func (s *Submitter) send(req *http.Request) (*http.Response, []byte, error) {
	ctx, span := s.tracer.Start(req.Context(), "form.submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
		),
	)
	defer span.End()

	resp, err := s.client.Do(req.WithContext(ctx))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if !isOK(resp.StatusCode) {
		span.SetStatus(codes.Error, resp.Status)
	}
	return resp, body, nil
}

func (s *Submitter) complete(opts SubmitOptions, resp *http.Response, body []byte, err error) {
	switch {
	case err != nil:
		s.logger.Warn("form submission failed", "error", err)
		s.toasts.Error(ConnectionErrorText)
		s.finished(OutcomeTransport)
		opts.OnError(nil, err)
	case isOK(resp.StatusCode):
		s.toasts.Success(opts.SuccessMessage)
		s.finished(OutcomeSuccess)
		opts.OnSuccess(resp)
	default:
		s.logger.Info("form rejected", "status", resp.StatusCode)
		s.toasts.Error(opts.ErrorMessage)
		s.finished(OutcomeError)
		opts.OnError(resp, &ResponseError{StatusCode: resp.StatusCode, Body: string(body)})
	}
}

func (s *Submitter) finished(o Outcome) {
	if s.observer != nil {
		s.observer.SubmissionFinished(o)
	}
}

func isOK(status int) bool {
	return status >= 200 && status < 300
}

// NewRequest builds the request a browser would send for form, resolving
// its action against pageURL. GET forms carry their values in the query
// string; other methods send them url-encoded in the body.
func NewRequest(ctx context.Context, form *vdom.VNode, pageURL *url.URL) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(form.Attr("method")))
	if method == "" {
		method = http.MethodGet
	}
	target := *pageURL
	if action := strings.TrimSpace(form.Attr("action")); action != "" {
		ref, err := url.Parse(action)
		if err != nil {
			return nil, fmt.Errorf("form: bad action %q: %w", action, err)
		}
		target = *pageURL.ResolveReference(ref)
	}
	target.Fragment = ""

	values := Values(form)
	if method == http.MethodGet {
		target.RawQuery = values.Encode()
		return http.NewRequestWithContext(ctx, method, target.String(), nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

// Values serializes the named, enabled controls of form the way a browser
// does. Unchecked checkboxes and radios are skipped.
func Values(form *vdom.VNode) url.Values {
	values := url.Values{}
	for _, n := range controls(form) {
		name := n.Attr("name")
		if name == "" || n.HasAttr("disabled") {
			continue
		}
		switch strings.ToLower(n.Attr("type")) {
		case "submit", "button", "reset", "image", "file":
			continue
		case "checkbox", "radio":
			if !n.HasAttr("checked") {
				continue
			}
			v := n.Attr("value")
			if _, ok := n.Props["value"]; !ok {
				v = "on"
			}
			values.Add(name, v)
			continue
		}
		values.Add(name, page.Value(n))
	}
	return values
}

// Apply copies values reported by the browser onto the controls of form.
func Apply(doc *page.Document, form *vdom.VNode, values url.Values) {
	for _, n := range controls(form) {
		name := n.Attr("name")
		if name == "" {
			continue
		}
		switch strings.ToLower(n.Attr("type")) {
		case "submit", "button", "reset", "image", "file":
		case "checkbox", "radio":
			own := n.Attr("value")
			if _, ok := n.Props["value"]; !ok {
				own = "on"
			}
			checked := false
			for _, v := range values[name] {
				if v == own {
					checked = true
				}
			}
			n.SetAttr("checked", checked)
		default:
			if v, ok := values[name]; ok && len(v) > 0 {
				doc.SetValue(n, v[0])
			}
		}
	}
}

func controls(form *vdom.VNode) []*vdom.VNode {
	return vdom.FindAll(form, func(n *vdom.VNode) bool {
		return n.Tag == "input" || n.Tag == "textarea" || n.Tag == "select"
	})
}
