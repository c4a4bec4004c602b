package form

import (
	"log/slog"
	"strings"
	"time"

	"github.com/eneky/projet-ui/pkg/loading"
	"github.com/eneky/projet-ui/pkg/loop"
	"github.com/eneky/projet-ui/pkg/page"
	"github.com/eneky/projet-ui/pkg/vdom"
)

// FallbackTimeout releases a passive overlay when the page did not navigate away.
const FallbackTimeout = 10 * time.Second

// NoLoadingClass opts a POST form out of passive enhancement.
const NoLoadingClass = "no-loading"

// Enhancer adds a busy overlay to ordinary POST forms without taking over
// their submission. The browser still navigates.
type Enhancer struct {
	doc      *page.Document
	sched    loop.Scheduler
	overlays *loading.Manager
	buttons  map[*vdom.VNode]*vdom.VNode
	timeout  time.Duration
	logger   *slog.Logger
}

// NewEnhancer creates an Enhancer. A timeout of zero uses FallbackTimeout.
func NewEnhancer(doc *page.Document, sched loop.Scheduler, overlays *loading.Manager, timeout time.Duration, logger *slog.Logger) *Enhancer {
	if timeout <= 0 {
		timeout = FallbackTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enhancer{
		doc:      doc,
		sched:    sched,
		overlays: overlays,
		buttons:  make(map[*vdom.VNode]*vdom.VNode),
		timeout:  timeout,
		logger:   logger.With("component", "enhance"),
	}
}

// Attach enhances every form whose method is post, that lacks the
// no-loading class and has a submit button. It returns how many were enhanced.
func (e *Enhancer) Attach() int {
	for _, f := range e.doc.QueryAll("form") {
		if !strings.EqualFold(strings.TrimSpace(f.Attr("method")), "post") || f.HasClass(NoLoadingClass) {
			continue
		}
		btn := page.QueryIn(f, SubmitSelector)
		if btn == nil {
			continue
		}
		e.doc.AddClass(btn, "relative")
		if !f.HasAttr(SubmitAttr) {
			e.doc.SetAttr(f, SubmitAttr, "passive")
		}
		e.buttons[f] = btn
	}
	e.logger.Debug("forms enhanced", "count", len(e.buttons))
	return len(e.buttons)
}

// Enhanced reports whether Attach picked up form.
func (e *Enhancer) Enhanced(form *vdom.VNode) bool {
	_, ok := e.buttons[form]
	return ok
}

// Submitted shows the overlay for an enhanced form that is being submitted
// and schedules its release after the fallback timeout.
func (e *Enhancer) Submitted(form *vdom.VNode) (loading.Handle, bool) {
	btn, ok := e.buttons[form]
	if !ok {
		return "", false
	}
	h := e.overlays.Show(btn, DefaultSubmitText, loading.SizeMedium)
	e.sched.After(e.timeout, func() { e.overlays.Hide(h) })
	return h, true
}
