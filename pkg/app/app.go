// Package app wires the page components of one session and runs the
// page-load sequence.
//
// There are no package globals: every session builds its own Deps with
// NewDeps, and Boot returns the Utils handed to the rest of the server.
package app

import (
	"log/slog"
	"strings"
	"time"

	"github.com/eneky/projet-ui/pkg/features/form"
	"github.com/eneky/projet-ui/pkg/loading"
	"github.com/eneky/projet-ui/pkg/loop"
	"github.com/eneky/projet-ui/pkg/page"
	"github.com/eneky/projet-ui/pkg/pref"
	"github.com/eneky/projet-ui/pkg/theme"
	"github.com/eneky/projet-ui/pkg/toast"
	"github.com/eneky/projet-ui/pkg/vdom"
)

// Selectors of server-rendered flash messages turned into toasts on load.
const (
	ErrorMessageSelector   = ".error-message, .alert-error"
	SuccessMessageSelector = ".success-message, .alert-success"
)

// Data attributes read from forms authored with data-submit="intercept".
const (
	attrSubmitText     = "data-submit-text"
	attrSuccessMessage = "data-success-message"
	attrErrorMessage   = "data-error-message"
)

// Observers receives component events, typically the metrics middleware.
// Any field may be nil.
type Observers struct {
	Toasts   toast.Observer
	Overlays loading.Observer
	Forms    form.Observer
}

// Options configures NewDeps.
type Options struct {
	Observers Observers

	// Client sends intercepted form submissions. nil uses http.DefaultClient.
	Client form.Doer

	// Store persists the theme server-side under Visitor. nil keeps it in
	// the browser only.
	Store   pref.Store
	Visitor string
	// PreferStored lets the stored theme override the browser's.
	PreferStored bool

	// ToastDurations overrides the default toast lifetimes.
	ToastDurations map[toast.Type]time.Duration

	// FallbackTimeout releases passive overlays. Zero uses form.FallbackTimeout.
	FallbackTimeout time.Duration

	Logger *slog.Logger
}

// Deps are the components of one page.
type Deps struct {
	Toasts    *toast.Emitter
	Overlays  *loading.Manager
	Submitter *form.Submitter
	Enhancer  *form.Enhancer
	Validator *form.FieldValidator
	Theme     *theme.Toggler

	// SavedTheme is the theme the browser reported from its storage.
	SavedTheme string

	logger *slog.Logger
}

// NewDeps builds every component for doc on sched.
func NewDeps(doc *page.Document, sched loop.Scheduler, opts Options) Deps {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	toastOpts := []toast.Option{toast.WithLogger(logger)}
	if opts.Observers.Toasts != nil {
		toastOpts = append(toastOpts, toast.WithObserver(opts.Observers.Toasts))
	}
	if opts.ToastDurations != nil {
		toastOpts = append(toastOpts, toast.WithDurations(opts.ToastDurations))
	}
	toasts := toast.New(doc, sched, toastOpts...)

	loadingOpts := []loading.Option{loading.WithLogger(logger)}
	if opts.Observers.Overlays != nil {
		loadingOpts = append(loadingOpts, loading.WithObserver(opts.Observers.Overlays))
	}
	overlays := loading.New(doc, loadingOpts...)

	submitOpts := []form.SubmitterOption{form.WithLogger(logger)}
	if opts.Observers.Forms != nil {
		submitOpts = append(submitOpts, form.WithObserver(opts.Observers.Forms))
	}

	themeOpts := []theme.Option{theme.WithLogger(logger.With("component", "theme"))}
	if opts.Store != nil && opts.Visitor != "" {
		themeOpts = append(themeOpts, theme.WithStore(opts.Store, opts.Visitor))
		if opts.PreferStored {
			themeOpts = append(themeOpts, theme.PreferStored())
		}
	}

	return Deps{
		Toasts:    toasts,
		Overlays:  overlays,
		Submitter: form.NewSubmitter(doc, sched, toasts, overlays, opts.Client, submitOpts...),
		Enhancer:  form.NewEnhancer(doc, sched, overlays, opts.FallbackTimeout, logger),
		Validator: form.NewFieldValidator(doc, logger),
		Theme:     theme.New(doc, themeOpts...),
		logger:    logger.With("component", "app"),
	}
}

// Boot runs the page-load sequence: flash messages become toasts, forms get
// their loading behavior, required fields get validation, then the saved
// theme is applied. It must run on the page loop.
func Boot(doc *page.Document, d Deps) *Utils {
	logger := d.logger
	if logger == nil {
		logger = slog.Default().With("component", "app")
	}

	errs := migrateMessages(doc, ErrorMessageSelector, d.Toasts.Error)
	oks := migrateMessages(doc, SuccessMessageSelector, d.Toasts.Success)

	intercepted := attachIntercepted(doc, d.Submitter)
	enhanced := d.Enhancer.Attach()
	fields := d.Validator.Attach()

	d.Theme.Init(d.SavedTheme)

	logger.Debug("page booted",
		"path", doc.URL().Path,
		"error_toasts", errs,
		"success_toasts", oks,
		"intercepted", intercepted,
		"enhanced", enhanced,
		"fields", fields,
	)
	return &Utils{toasts: d.Toasts, overlays: d.Overlays, validator: d.Validator}
}

// migrateMessages shows each non-empty match of sel as a toast and hides the
// original element.
func migrateMessages(doc *page.Document, sel string, show func(string) *toast.Notification) int {
	n := 0
	for _, el := range doc.QueryAll(sel) {
		msg := strings.TrimSpace(el.TextContent())
		if msg == "" {
			continue
		}
		show(msg)
		doc.SetStyle(el, "display", "none")
		n++
	}
	return n
}

// attachIntercepted hands forms authored with data-submit="intercept" to s.
func attachIntercepted(doc *page.Document, s *form.Submitter) int {
	forms := doc.QueryAll(`form[` + form.SubmitAttr + `=intercept]`)
	for _, f := range forms {
		s.Attach(f, optionsFromAttrs(f))
	}
	return len(forms)
}

func optionsFromAttrs(f *vdom.VNode) form.SubmitOptions {
	return form.SubmitOptions{
		SubmitText:     f.Attr(attrSubmitText),
		SuccessMessage: f.Attr(attrSuccessMessage),
		ErrorMessage:   f.Attr(attrErrorMessage),
	}
}
