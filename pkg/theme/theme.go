// Package theme implements the dark/light toggle.
//
// The active theme is the "dark" class on <html>. The choice is kept in the
// browser's local storage under "theme" and, when a pref.Store is configured,
// on the server keyed by visitor so it follows the visitor across devices.
package theme

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eneky/projet-ui/pkg/page"
	"github.com/eneky/projet-ui/pkg/pref"
	"github.com/eneky/projet-ui/pkg/vdom"
)

// Theme is the page color scheme.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

const (
	// StorageKey is the local storage key holding the theme.
	StorageKey = "theme"
	// ToggleID is the id of the toggle button.
	ToggleID = "theme-toggle"
	// DarkClass is set on <html> while the dark theme is active.
	DarkClass = "dark"
)

// SaveTimeout bounds one write to the preference store.
var SaveTimeout = 5 * time.Second

// Parse maps a stored value to a Theme. Anything but "dark" is light;
// ok is false for the empty string.
func Parse(s string) (t Theme, ok bool) {
	if s == "" {
		return Light, false
	}
	if Theme(s) == Dark {
		return Dark, true
	}
	return Light, true
}

// Toggler owns the theme of one page.
type Toggler struct {
	doc      *page.Document
	pref     *pref.Pref[Theme]
	store    pref.Store
	storeKey string
	logger   *slog.Logger
	toggle   *vdom.VNode
	writes   sync.WaitGroup
}

// Option configures a Toggler.
type Option func(*Toggler)

// WithStore persists the theme of visitor in s.
func WithStore(s pref.Store, visitor string) Option {
	return func(t *Toggler) {
		t.store = s
		t.storeKey = pref.Key(visitor, StorageKey)
	}
}

// PreferStored lets a theme loaded from the store win over the browser's
// saved value. The browser value still applies when the store has none.
func PreferStored() Option {
	return func(t *Toggler) {
		t.pref = pref.New(StorageKey, Light, pref.MergeWith(pref.LocalWins))
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Toggler) { t.logger = l }
}

// New creates a Toggler for doc.
func New(doc *page.Document, opts ...Option) *Toggler {
	t := &Toggler{
		doc:    doc,
		pref:   pref.New(StorageKey, Light),
		logger: slog.Default().With("component", "theme"),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.pref.SetPersistHandlers(t.persistLocal, t.persistStore)
	return t
}

// Load reads the stored theme. Call it before Init, off the page loop.
func (t *Toggler) Load(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	return pref.Load(ctx, t.store, t.storeKey, t.pref)
}

// Init applies the saved theme and binds the toggle button. saved is the
// browser's stored value, empty when it has none. A browser value wins over
// the server-side one unless PreferStored is set; the resolved theme is
// copied to the browser when it differs from saved.
func (t *Toggler) Init(saved string) {
	t.toggle = t.doc.ByID(ToggleID)

	fromStore := !t.pref.UpdatedAt().IsZero()
	if th, ok := Parse(saved); ok {
		t.pref.SetFromRemote(th, time.Now())
	} else if !fromStore {
		return
	}

	th := t.pref.Get()
	t.apply(th)
	if string(th) != saved {
		t.doc.SetStorage(StorageKey, string(th))
	}
	t.logger.Debug("theme applied", "theme", th, "saved", saved)
}

// Toggle flips the theme, persists it and swaps the toggle icon.
func (t *Toggler) Toggle() Theme {
	th := Light
	if t.doc.ToggleClass(t.doc.Root(), DarkClass) {
		th = Dark
	}
	t.pref.Set(th)
	t.updateIcon(th)
	return th
}

// Current returns the theme shown on the page.
func (t *Toggler) Current() Theme {
	if t.doc.Root().HasClass(DarkClass) {
		return Dark
	}
	return Light
}

// Button returns the bound toggle button, nil when the page has none.
func (t *Toggler) Button() *vdom.VNode { return t.toggle }

// IsToggle reports whether a click on n is a click on the toggle.
func (t *Toggler) IsToggle(n *vdom.VNode) bool {
	return t.toggle != nil && n != nil && vdom.Contains(t.toggle, n)
}

// Flush waits for pending store writes.
func (t *Toggler) Flush() {
	t.writes.Wait()
}

func (t *Toggler) apply(th Theme) {
	root := t.doc.Root()
	if th == Dark {
		t.doc.AddClass(root, DarkClass)
	} else {
		t.doc.RemoveClass(root, DarkClass)
	}
	t.updateIcon(th)
}

func (t *Toggler) updateIcon(th Theme) {
	if t.toggle == nil {
		return
	}
	svg := page.QueryIn(t.toggle, "svg")
	if svg == nil {
		return
	}
	t.doc.SetChildren(svg, []*vdom.VNode{IconPath(th)})
}

func (t *Toggler) persistLocal(key string, th Theme, _ time.Time) {
	t.doc.SetStorage(key, string(th))
}

// persistStore writes off the loop; errors are logged.
func (t *Toggler) persistStore(_ string, th Theme, at time.Time) {
	if t.store == nil {
		return
	}
	t.writes.Add(1)
	go func() {
		defer t.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), SaveTimeout)
		defer cancel()
		if err := pref.Save(ctx, t.store, t.storeKey, th, at); err != nil {
			t.logger.Warn("theme save failed", "key", t.storeKey, "error", err)
		}
	}()
}
