package loading

import (
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/eneky/projet-ui/pkg/page"
	"github.com/eneky/projet-ui/pkg/vdom"
)

const (
	// DefaultLabel is shown when Show is given an empty label.
	DefaultLabel = "Loading..."
	// DefaultFormLabel is shown when ShowForm is given an empty label.
	DefaultFormLabel = "Sending..."
	// HandlePrefix starts every handle.
	HandlePrefix = "loader_"
	// BusyClass is added to a control while it is overlaid.
	BusyClass = "loading"
)

// Handle identifies one overlay. The zero value identifies nothing.
type Handle string

// Overlay is a control suspended behind a spinner, with the state needed
// to restore it.
type Overlay struct {
	ID     Handle
	Target *vdom.VNode

	savedContent  []*vdom.VNode
	savedDisabled bool
}

// Observer is told the number of active overlays whenever it changes.
type Observer interface {
	OverlaysActive(n int)
}

// Manager tracks the overlays of one page. Use it from the page's loop only.
type Manager struct {
	doc      *page.Document
	overlays []*Overlay
	observer Observer
	logger   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// New creates a Manager for doc.
func New(doc *page.Document, opts ...Option) *Manager {
	m := &Manager{doc: doc, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "loading")
	return m
}

func newHandle() Handle {
	return Handle(HandlePrefix + ulid.Make().String())
}

// Show replaces target's content with a spinner and disables it.
// A nil target yields the zero Handle.
func (m *Manager) Show(target *vdom.VNode, label string, size Size) Handle {
	if target == nil {
		return ""
	}
	if label == "" {
		label = DefaultLabel
	}
	o := &Overlay{
		ID:            newHandle(),
		Target:        target,
		savedContent:  target.Children,
		savedDisabled: target.HasAttr("disabled"),
	}

	m.doc.SetChildren(target, []*vdom.VNode{Spinner(label, size)})
	m.doc.SetDisabled(target, true)
	m.doc.AddClass(target, BusyClass)

	m.overlays = append(m.overlays, o)
	m.logger.Debug("overlay shown", "handle", string(o.ID), "hid", target.HID)
	m.notify()
	return o.ID
}

// Hide restores the control behind h and forgets h.
// Unknown or already hidden handles are ignored.
func (m *Manager) Hide(h Handle) {
	for i, o := range m.overlays {
		if o.ID != h {
			continue
		}
		m.restore(o)
		m.overlays = append(m.overlays[:i:i], m.overlays[i+1:]...)
		m.logger.Debug("overlay hidden", "handle", string(h))
		m.notify()
		return
	}
}

// HideAll restores every tracked control, oldest first, and clears the set.
func (m *Manager) HideAll() {
	if len(m.overlays) == 0 {
		return
	}
	for _, o := range m.overlays {
		m.restore(o)
	}
	m.logger.Debug("all overlays hidden", "count", len(m.overlays))
	m.overlays = nil
	m.notify()
}

func (m *Manager) restore(o *Overlay) {
	m.doc.SetChildren(o.Target, o.savedContent)
	m.doc.SetDisabled(o.Target, o.savedDisabled)
	m.doc.RemoveClass(o.Target, BusyClass)
}

// ShowForm overlays the form's submit button. It reports false when the
// form has no button[type="submit"].
func (m *Manager) ShowForm(form *vdom.VNode, label string) (Handle, bool) {
	if form == nil {
		return "", false
	}
	btn := page.QueryIn(form, `button[type="submit"]`)
	if btn == nil {
		return "", false
	}
	if label == "" {
		label = DefaultFormLabel
	}
	return m.Show(btn, label, SizeMedium), true
}

// HideForm hides an overlay created by ShowForm.
func (m *Manager) HideForm(h Handle) { m.Hide(h) }

// Active returns the number of tracked overlays.
func (m *Manager) Active() int { return len(m.overlays) }

// IsActive reports whether h is tracked.
func (m *Manager) IsActive(h Handle) bool {
	for _, o := range m.overlays {
		if o.ID == h {
			return true
		}
	}
	return false
}

// Overlays returns the tracked overlays, oldest first.
func (m *Manager) Overlays() []Overlay {
	out := make([]Overlay, len(m.overlays))
	for i, o := range m.overlays {
		out[i] = *o
	}
	return out
}

func (m *Manager) notify() {
	if m.observer != nil {
		m.observer.OverlaysActive(len(m.overlays))
	}
}
