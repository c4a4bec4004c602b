package toast

import (
	"log/slog"
	"time"

	"github.com/eneky/projet-ui/pkg/loop"
	"github.com/eneky/projet-ui/pkg/page"
	"github.com/eneky/projet-ui/pkg/vdom"
)

// Type represents the toast notification type.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// Valid reports whether t is one of the four known severities.
func (t Type) Valid() bool {
	switch t {
	case TypeSuccess, TypeError, TypeWarning, TypeInfo:
		return true
	}
	return false
}

const (
	// ContainerID identifies the element all toasts are appended to.
	ContainerID = "toast-container"
	// StylesID identifies the injected animation stylesheet.
	StylesID = "toast-styles"
	// DismissAction marks the dismiss button.
	DismissAction = "toast-dismiss"

	// EnterDelay is the wait before the entry animation class is added.
	EnterDelay = 10 * time.Millisecond
	// ExitDelay is the exit animation grace period before removal.
	ExitDelay = 300 * time.Millisecond
)

// DefaultDurations are the lifetimes used by Success, Error, Warning and Info.
var DefaultDurations = map[Type]time.Duration{
	TypeSuccess: 5 * time.Second,
	TypeError:   7 * time.Second,
	TypeWarning: 6 * time.Second,
	TypeInfo:    5 * time.Second,
}

// Notification is one displayed toast. The pointer is its handle.
type Notification struct {
	Message  string
	Severity Type
	Lifetime time.Duration

	node    *vdom.VNode
	cancel  func()
	exiting bool
}

// Node returns the element rendered for n.
func (n *Notification) Node() *vdom.VNode { return n.node }

// Exiting reports whether Hide has been called on n.
func (n *Notification) Exiting() bool { return n.exiting }

// Observer is told about toast lifecycle transitions.
type Observer interface {
	ToastShown(severity Type)
	ToastRemoved(severity Type)
}

// Emitter creates, displays and removes notifications on one page.
type Emitter struct {
	doc       *page.Document
	sched     loop.Scheduler
	container *vdom.VNode
	durations map[Type]time.Duration
	active    map[*vdom.VNode]*Notification
	observer  Observer
	logger    *slog.Logger
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithObserver registers a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(e *Emitter) { e.observer = o }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Emitter) { e.logger = l }
}

// WithDurations overrides default lifetimes per severity.
// Severities missing from d keep their defaults.
func WithDurations(d map[Type]time.Duration) Option {
	return func(e *Emitter) {
		for t, v := range d {
			if t.Valid() && v >= 0 {
				e.durations[t] = v
			}
		}
	}
}

// New creates an Emitter for doc and injects the animation stylesheet.
func New(doc *page.Document, sched loop.Scheduler, opts ...Option) *Emitter {
	e := &Emitter{
		doc:       doc,
		sched:     sched,
		durations: make(map[Type]time.Duration, len(DefaultDurations)),
		active:    make(map[*vdom.VNode]*Notification),
		logger:    slog.Default(),
	}
	for t, d := range DefaultDurations {
		e.durations[t] = d
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "toast")
	e.EnsureStyles()
	return e
}

// EnsureStyles inserts the toast stylesheet into <head> unless an element
// with StylesID already exists.
func (e *Emitter) EnsureStyles() {
	if e.doc.ByID(StylesID) != nil {
		return
	}
	e.doc.AppendChild(e.doc.Head(), Styles())
}

// Container returns the toast container, creating it on first use.
func (e *Emitter) Container() *vdom.VNode {
	if e.doc.Attached(e.container) {
		return e.container
	}
	if c := e.doc.ByID(ContainerID); c != nil {
		e.container = c
		return c
	}
	e.container = RenderContainer()
	e.doc.AppendChild(e.doc.Body(), e.container)
	return e.container
}

// Show displays message and schedules its removal after duration.
// A duration of zero or less keeps it until dismissed. An unknown severity
// is shown as info.
func (e *Emitter) Show(message string, severity Type, duration time.Duration) *Notification {
	if !severity.Valid() {
		e.logger.Warn("unknown toast severity", "severity", string(severity))
		severity = TypeInfo
	}
	if duration < 0 {
		duration = 0
	}
	n := &Notification{Message: message, Severity: severity, Lifetime: duration}
	n.node = Render(n)

	e.doc.AppendChild(e.Container(), n.node)
	e.active[n.node] = n
	e.logger.Debug("toast shown", "severity", string(severity), "hid", n.node.HID)
	if e.observer != nil {
		e.observer.ToastShown(severity)
	}

	e.sched.After(EnterDelay, func() {
		if !n.exiting && e.doc.Attached(n.node) {
			e.doc.AddClass(n.node, "toast-enter")
		}
	})
	if duration > 0 {
		n.cancel = e.sched.After(duration, func() { e.Hide(n) })
	}
	return n
}

// Hide starts the exit animation and removes n after ExitDelay.
// Calling Hide again, or after removal, does nothing.
func (e *Emitter) Hide(n *Notification) {
	if n == nil || n.exiting {
		return
	}
	n.exiting = true
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	if !e.doc.Attached(n.node) {
		delete(e.active, n.node)
		return
	}
	e.doc.AddClass(n.node, "toast-exit")
	e.sched.After(ExitDelay, func() { e.remove(n) })
}

func (e *Emitter) remove(n *Notification) {
	delete(e.active, n.node)
	if !e.doc.Remove(n.node) {
		return
	}
	e.logger.Debug("toast removed", "severity", string(n.Severity))
	if e.observer != nil {
		e.observer.ToastRemoved(n.Severity)
	}
}

// Dismiss hides the notification containing the element with the given
// hydration ID. It reports whether a notification was found.
func (e *Emitter) Dismiss(hid string) bool {
	for node := e.doc.ByHID(hid); node != nil; node = e.doc.Parent(node) {
		if n, ok := e.active[node]; ok {
			e.Hide(n)
			return true
		}
	}
	return false
}

// Active returns the number of notifications currently on the page,
// including those playing their exit animation.
func (e *Emitter) Active() int { return len(e.active) }

// Duration returns the default lifetime configured for severity.
func (e *Emitter) Duration(severity Type) time.Duration {
	return e.durations[severity]
}

// Success shows a success toast with the default lifetime.
//
//	toasts.Success("Changes saved!")
func (e *Emitter) Success(message string) *Notification {
	return e.Show(message, TypeSuccess, e.durations[TypeSuccess])
}

// Error shows an error toast with the default lifetime.
func (e *Emitter) Error(message string) *Notification {
	return e.Show(message, TypeError, e.durations[TypeError])
}

// Warning shows a warning toast with the default lifetime.
func (e *Emitter) Warning(message string) *Notification {
	return e.Show(message, TypeWarning, e.durations[TypeWarning])
}

// Info shows an info toast with the default lifetime.
func (e *Emitter) Info(message string) *Notification {
	return e.Show(message, TypeInfo, e.durations[TypeInfo])
}

// SuccessFor shows a success toast for d.
func (e *Emitter) SuccessFor(message string, d time.Duration) *Notification {
	return e.Show(message, TypeSuccess, d)
}

// ErrorFor shows an error toast for d.
func (e *Emitter) ErrorFor(message string, d time.Duration) *Notification {
	return e.Show(message, TypeError, d)
}

// WarningFor shows a warning toast for d.
func (e *Emitter) WarningFor(message string, d time.Duration) *Notification {
	return e.Show(message, TypeWarning, d)
}

// InfoFor shows an info toast for d.
func (e *Emitter) InfoFor(message string, d time.Duration) *Notification {
	return e.Show(message, TypeInfo, d)
}
