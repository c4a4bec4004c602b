package app

import (
	"strings"
	"testing"

	"github.com/eneky/projet-ui/pkg/features/form"
	"github.com/eneky/projet-ui/pkg/loading"
	"github.com/eneky/projet-ui/pkg/page"
	"github.com/eneky/projet-ui/pkg/toast"
	"github.com/eneky/projet-ui/pkg/vtest"
)

const bootPage = `<html><head></head><body>
<div class="alert-error">  Invalid credentials  </div>
<p class="error-message"></p>
<div class="success-message">Saved</div>
<form id="login" method="POST" action="/login">
  <input name="email" type="email" required>
  <textarea name="bio"></textarea>
  <button type="submit">Log in</button>
</form>
<form id="ajax" method="post" action="/api" data-submit="intercept" data-success-message="Done!">
  <input name="q">
  <button type="submit">Go</button>
</form>
<form id="search" method="get"><button type="submit">Search</button></form>
<button id="theme-toggle"><svg><path d="x"></path></svg></button>
</body></html>`

func boot(t *testing.T, saved string) (*page.Document, *vtest.Clock, Deps, *Utils) {
	t.Helper()
	doc := vtest.NewPage(t, bootPage)
	clock := vtest.NewClock()
	d := NewDeps(doc, clock, Options{})
	d.SavedTheme = saved
	u := Boot(doc, d)
	return doc, clock, d, u
}

func TestBootMigratesMessages(t *testing.T) {
	doc, _, d, _ := boot(t, "")

	if d.Toasts.Active() != 2 {
		t.Fatalf("Active toasts: got %d, want 2", d.Toasts.Active())
	}
	toasts := doc.QueryAll(".toast")
	if len(toasts) != 2 {
		t.Fatalf("rendered toasts: got %d, want 2", len(toasts))
	}
	vtest.ExpectClass(t, toasts[0], "toast-error")
	vtest.ExpectContains(t, toasts[0], "Invalid credentials")
	vtest.ExpectNotContains(t, toasts[0], "  Invalid")
	vtest.ExpectClass(t, toasts[1], "toast-success")

	alert := vtest.MustQuery(t, doc, ".alert-error")
	vtest.ExpectAttribute(t, alert, "style", "display: none")

	empty := vtest.MustQuery(t, doc, ".error-message")
	if empty.HasAttr("style") {
		t.Error("empty message should be left alone")
	}
}

func TestBootForms(t *testing.T) {
	doc, _, d, _ := boot(t, "")

	login := vtest.MustQuery(t, doc, "#login")
	ajax := vtest.MustQuery(t, doc, "#ajax")
	search := vtest.MustQuery(t, doc, "#search")

	if !d.Enhancer.Enhanced(login) {
		t.Error("POST form should be enhanced")
	}
	vtest.ExpectAttribute(t, login, form.SubmitAttr, "passive")
	if d.Enhancer.Enhanced(search) {
		t.Error("GET form should not be enhanced")
	}

	if !d.Submitter.Intercepts(ajax) {
		t.Error("data-submit=intercept form should be attached to the submitter")
	}
	vtest.ExpectAttribute(t, ajax, form.SubmitAttr, "intercept")
	if d.Submitter.Intercepts(login) {
		t.Error("passive form should not be intercepted")
	}

	email := vtest.MustQuery(t, doc, "input[name=email]")
	if !d.Validator.Watches(email) {
		t.Error("required field should be watched")
	}
	if d.Validator.Watches(vtest.MustQuery(t, doc, "textarea")) {
		t.Error("optional field should not be watched")
	}
	vtest.ExpectClass(t, page.QueryIn(login, "button"), "relative")
}

func TestBootTheme(t *testing.T) {
	doc, _, d, _ := boot(t, "dark")

	vtest.ExpectClass(t, doc.Root(), "dark")
	if d.Theme.Button() == nil {
		t.Error("theme toggle should be bound")
	}
}

func TestBootOrder(t *testing.T) {
	doc, _, _, _ := boot(t, "dark")

	messageStyle, themeClass := -1, -1
	for i, p := range doc.TakePatches() {
		if p.Op == page.OpSetAttr && p.Key == "style" && messageStyle < 0 {
			messageStyle = i
		}
		if p.Op == page.OpSetAttr && p.Key == "class" && strings.Contains(p.Value, "dark") {
			themeClass = i
		}
	}
	if messageStyle < 0 || themeClass < 0 || messageStyle > themeClass {
		t.Errorf("messages should be migrated before the theme is applied: style=%d theme=%d", messageStyle, themeClass)
	}
}

func TestUtils(t *testing.T) {
	doc, clock, _, u := boot(t, "")

	n := u.ShowWarning("Careful")
	if n.Severity != toast.TypeWarning {
		t.Errorf("ShowWarning severity: got %v", n.Severity)
	}
	if u.ShowInfo("fyi").Severity != toast.TypeInfo {
		t.Error("ShowInfo severity")
	}
	if u.ShowSuccess("ok").Severity != toast.TypeSuccess {
		t.Error("ShowSuccess severity")
	}
	if u.ShowError("ko").Severity != toast.TypeError {
		t.Error("ShowError severity")
	}

	box := vtest.MustQuery(t, doc, "#search")
	h := u.ShowLoading(box, "Searching")
	if !strings.HasPrefix(string(h), loading.HandlePrefix) {
		t.Errorf("handle: got %q", h)
	}
	vtest.ExpectContains(t, box, "Searching")
	vtest.ExpectContains(t, box, "w-6 h-6")
	u.HideLoading(h)
	vtest.ExpectContains(t, box, "Search")
	vtest.ExpectNotContains(t, box, "Searching")

	login := vtest.MustQuery(t, doc, "#login")
	if u.ValidateForm(login) {
		t.Error("empty required email should fail validation")
	}
	vtest.ExpectContains(t, login, form.MsgRequired)

	clock.Advance(toast.DefaultDurations[toast.TypeError] + toast.ExitDelay)
	if got := len(doc.QueryAll(".toast")); got != 0 {
		t.Errorf("toasts left after their lifetime: %d", got)
	}
}

type countingObserver struct {
	shown, overlays int
}

func (o *countingObserver) ToastShown(toast.Type)   { o.shown++ }
func (o *countingObserver) ToastRemoved(toast.Type) {}
func (o *countingObserver) OverlaysActive(n int)    { o.overlays = n }

func TestNewDepsObservers(t *testing.T) {
	doc := vtest.NewPage(t, bootPage)
	obs := &countingObserver{}
	d := NewDeps(doc, vtest.NewClock(), Options{
		Observers: Observers{Toasts: obs, Overlays: obs},
	})
	u := Boot(doc, d)

	if obs.shown != 2 {
		t.Errorf("ToastShown: got %d, want 2", obs.shown)
	}
	u.ShowLoading(vtest.MustQuery(t, doc, "#search"), "")
	if obs.overlays != 1 {
		t.Errorf("OverlaysActive: got %d, want 1", obs.overlays)
	}
}
