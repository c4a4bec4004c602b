package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eneky/projet-ui/pkg/features/form"
	"github.com/eneky/projet-ui/pkg/toast"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "projet_ui").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for event duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer

	// Gatherer serves /metrics.
	// Default: prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry registers and serves the metrics from registry.
func WithRegistry(registry *prometheus.Registry) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
		c.Gatherer = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "projet_ui",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
		Gatherer:  prometheus.DefaultGatherer,
	}
}

// Metrics holds the Prometheus collectors of the UI server.
//
// Collected:
//   - projet_ui_events_total: events by type and status
//   - projet_ui_event_duration_seconds: event handling duration by type
//   - projet_ui_event_errors_total: failed events by type and error category
//   - projet_ui_patches_sent_total: patches flushed to browsers
//   - projet_ui_active_sessions: open websocket sessions
//   - projet_ui_websocket_errors_total: websocket errors by type
//   - projet_ui_toasts_total: toasts shown by severity
//   - projet_ui_toasts_active: toasts currently on screen
//   - projet_ui_overlays_active: loading overlays currently shown
//   - projet_ui_submissions_total: intercepted form submissions by outcome
type Metrics struct {
	gatherer prometheus.Gatherer

	eventsTotal    *prometheus.CounterVec
	eventDuration  *prometheus.HistogramVec
	eventErrors    *prometheus.CounterVec
	patchesSent    prometheus.Counter
	activeSessions prometheus.Gauge
	wsErrors       *prometheus.CounterVec
	toastsTotal    *prometheus.CounterVec
	toastsActive   prometheus.Gauge
	overlaysActive prometheus.Gauge
	submissions    *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}

	return &Metrics{
		gatherer:    config.Gatherer,
		eventsTotal: counter("events_total", "Total number of page events processed", "type", "status"),
		eventDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "event_duration_seconds",
			Help:        "Event processing duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"type"}),
		eventErrors: counter("event_errors_total", "Total number of event processing errors", "type", "error_type"),
		patchesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "patches_sent_total",
			Help:        "Total number of patches sent to clients",
			ConstLabels: config.ConstLabels,
		}),
		activeSessions: gauge("active_sessions", "Number of active WebSocket sessions"),
		wsErrors:       counter("websocket_errors_total", "Total WebSocket errors by type", "type"),
		toastsTotal:    counter("toasts_total", "Total number of toasts shown", "severity"),
		toastsActive:   gauge("toasts_active", "Number of toasts currently displayed"),
		overlaysActive: gauge("overlays_active", "Number of loading overlays currently displayed"),
		submissions:    counter("submissions_total", "Total intercepted form submissions", "outcome"),
	}
}

// Middleware counts and times events.
func (m *Metrics) Middleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, ev *Event) error {
			start := time.Now()
			err := next(ctx, ev)
			m.eventDuration.WithLabelValues(ev.Type).Observe(time.Since(start).Seconds())

			status := "success"
			if err != nil {
				status = "error"
				m.eventErrors.WithLabelValues(ev.Type, categorizeError(err)).Inc()
			}
			m.eventsTotal.WithLabelValues(ev.Type, status).Inc()
			return err
		}
	}
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// categorizeError maps an error to a low-cardinality label.
func categorizeError(err error) string {
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout"):
		return "timeout"
	case strings.Contains(errStr, "rate limit"):
		return "rate_limit"
	case strings.Contains(errStr, "not found"):
		return "not_found"
	case strings.Contains(errStr, "validation"):
		return "validation"
	case strings.Contains(errStr, "websocket"):
		return "websocket"
	default:
		return "internal"
	}
}

// RecordPatches records the number of patches sent.
func (m *Metrics) RecordPatches(count int) {
	m.patchesSent.Add(float64(count))
}

// RecordWebSocketError records a WebSocket error.
func (m *Metrics) RecordWebSocketError(errorType string) {
	m.wsErrors.WithLabelValues(errorType).Inc()
}

// Session returns the observer for one new session and counts it as active.
// Call Close on the result when the session ends.
func (m *Metrics) Session() *SessionMetrics {
	m.activeSessions.Inc()
	return &SessionMetrics{m: m}
}

// SessionMetrics feeds the component observers of one session into the
// shared collectors. It implements toast.Observer, loading.Observer and
// form.Observer.
type SessionMetrics struct {
	m *Metrics

	mu       sync.Mutex
	toasts   int
	overlays int
	closed   bool
}

func (s *SessionMetrics) ToastShown(severity toast.Type) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.toasts++
	s.m.toastsTotal.WithLabelValues(string(severity)).Inc()
	s.m.toastsActive.Inc()
}

func (s *SessionMetrics) ToastRemoved(toast.Type) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.toasts == 0 {
		return
	}
	s.toasts--
	s.m.toastsActive.Dec()
}

// OverlaysActive applies the change in this session's overlay count.
func (s *SessionMetrics) OverlaysActive(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.m.overlaysActive.Add(float64(n - s.overlays))
	s.overlays = n
}

func (s *SessionMetrics) SubmissionFinished(outcome form.Outcome) {
	s.m.submissions.WithLabelValues(string(outcome)).Inc()
}

// Close removes what the session still had on screen from the gauges.
// It is safe to call more than once.
func (s *SessionMetrics) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.m.activeSessions.Dec()
	s.m.toastsActive.Sub(float64(s.toasts))
	s.m.overlaysActive.Sub(float64(s.overlays))
	s.toasts, s.overlays = 0, 0
}
