package toast_test

import (
	"strings"
	"testing"
	"time"

	"github.com/eneky/projet-ui/pkg/page"
	"github.com/eneky/projet-ui/pkg/toast"
	"github.com/eneky/projet-ui/pkg/vtest"
)

const blank = `<html><head></head><body><main></main></body></html>`

type countingObserver struct {
	shown, removed map[toast.Type]int
}

func newObserver() *countingObserver {
	return &countingObserver{shown: map[toast.Type]int{}, removed: map[toast.Type]int{}}
}

func (o *countingObserver) ToastShown(t toast.Type)   { o.shown[t]++ }
func (o *countingObserver) ToastRemoved(t toast.Type) { o.removed[t]++ }

func setup(t *testing.T, opts ...toast.Option) (*page.Document, *vtest.Clock, *toast.Emitter) {
	t.Helper()
	doc := vtest.NewPage(t, blank)
	clock := vtest.NewClock()
	return doc, clock, toast.New(doc, clock, opts...)
}

func TestSuccess(t *testing.T) {
	doc, _, toasts := setup(t)

	n := toasts.Success("Item saved!")

	if n.Severity != toast.TypeSuccess {
		t.Errorf("expected severity success, got %s", n.Severity)
	}
	if n.Lifetime != 5*time.Second {
		t.Errorf("expected lifetime 5s, got %v", n.Lifetime)
	}
	if !doc.Attached(n.Node()) {
		t.Fatal("expected toast on the page")
	}
	container := doc.ByID(toast.ContainerID)
	if container == nil || container.Children[0] != n.Node() {
		t.Fatal("expected toast inside the container")
	}
	vtest.ExpectClass(t, n.Node(), "toast", "toast-success", "translate-x-full", "opacity-0")
	vtest.ExpectContains(t, n.Node(), "Item saved!")
	vtest.ExpectContains(t, n.Node(), "bg-green-50 border-green-200 text-green-800")
}

func TestDefaultDurations(t *testing.T) {
	_, _, toasts := setup(t)

	tests := []struct {
		show func(string) *toast.Notification
		want time.Duration
		sev  toast.Type
	}{
		{toasts.Success, 5 * time.Second, toast.TypeSuccess},
		{toasts.Error, 7 * time.Second, toast.TypeError},
		{toasts.Warning, 6 * time.Second, toast.TypeWarning},
		{toasts.Info, 5 * time.Second, toast.TypeInfo},
	}
	for _, tt := range tests {
		n := tt.show("msg")
		if n.Severity != tt.sev || n.Lifetime != tt.want {
			t.Errorf("%s: got %s/%v, want %v", tt.sev, n.Severity, n.Lifetime, tt.want)
		}
	}
}

func TestLifecycle(t *testing.T) {
	doc, clock, toasts := setup(t)

	n := toasts.Error("Something went wrong")

	clock.Advance(toast.EnterDelay)
	vtest.ExpectClass(t, n.Node(), "toast-enter")

	clock.Advance(7*time.Second - toast.EnterDelay - time.Millisecond)
	if n.Exiting() {
		t.Fatal("toast exiting before its lifetime")
	}

	clock.Advance(time.Millisecond)
	vtest.ExpectClass(t, n.Node(), "toast-exit")
	if !doc.Attached(n.Node()) {
		t.Fatal("toast removed before the exit animation")
	}

	clock.Advance(toast.ExitDelay)
	if doc.Attached(n.Node()) {
		t.Error("toast still on the page after exit delay")
	}
	if toasts.Active() != 0 {
		t.Errorf("Active = %d", toasts.Active())
	}
}

func TestHideImmediatelyForEverySeverity(t *testing.T) {
	for _, sev := range []toast.Type{toast.TypeSuccess, toast.TypeError, toast.TypeWarning, toast.TypeInfo} {
		t.Run(string(sev), func(t *testing.T) {
			doc, clock, toasts := setup(t)
			n := toasts.Show("bye", sev, time.Second)

			toasts.Hide(n)
			clock.Advance(toast.ExitDelay)

			if doc.Attached(n.Node()) {
				t.Error("toast not removed within the exit delay")
			}
			if clock.Pending() != 0 {
				t.Errorf("auto-dismiss timer still pending: %d", clock.Pending())
			}
		})
	}
}

func TestHideIsIdempotent(t *testing.T) {
	doc, clock, toasts := setup(t, toast.WithObserver(newObserver()))
	n := toasts.Info("x")

	toasts.Hide(n)
	toasts.Hide(n)
	clock.Advance(toast.ExitDelay)
	toasts.Hide(n)
	clock.Advance(time.Minute)

	if doc.Attached(n.Node()) {
		t.Error("toast still attached")
	}
	toasts.Hide(nil)
}

func TestZeroDurationPersists(t *testing.T) {
	doc, clock, toasts := setup(t)
	n := toasts.WarningFor("stay", 0)

	clock.Advance(time.Hour)
	if !doc.Attached(n.Node()) || n.Exiting() {
		t.Fatal("persistent toast was dismissed")
	}
}

func TestContainerCreatedOnce(t *testing.T) {
	doc, _, toasts := setup(t)
	toasts.Info("a")
	toasts.Info("b")

	if got := len(doc.QueryAll("#" + toast.ContainerID)); got != 1 {
		t.Fatalf("containers = %d, want 1", got)
	}
	if got := len(doc.ByID(toast.ContainerID).Children); got != 2 {
		t.Errorf("toasts in container = %d, want 2", got)
	}
	if doc.Body().Children[len(doc.Body().Children)-1] != doc.ByID(toast.ContainerID) {
		t.Error("container not appended to body")
	}
}

func TestExistingContainerReused(t *testing.T) {
	doc := vtest.NewPage(t, `<html><head></head><body><div id="toast-container"></div></body></html>`)
	toasts := toast.New(doc, vtest.NewClock())
	toasts.Info("a")

	if got := len(doc.QueryAll("#" + toast.ContainerID)); got != 1 {
		t.Fatalf("containers = %d, want 1", got)
	}
}

func TestStylesInjectedOnce(t *testing.T) {
	doc := vtest.NewPage(t, blank)
	clock := vtest.NewClock()
	toast.New(doc, clock)
	toast.New(doc, clock)

	styles := doc.QueryAll("#" + toast.StylesID)
	if len(styles) != 1 {
		t.Fatalf("styles = %d, want 1", len(styles))
	}
	if doc.Parent(styles[0]) != doc.Head() {
		t.Error("styles not in head")
	}
	vtest.ExpectContains(t, styles[0], ".toast-enter")
}

func TestInvalidSeverityFallsBackToInfo(t *testing.T) {
	_, _, toasts := setup(t)
	n := toasts.Show("?", toast.Type("fatal"), time.Second)

	if n.Severity != toast.TypeInfo {
		t.Errorf("severity = %s, want info", n.Severity)
	}
	vtest.ExpectClass(t, n.Node(), "toast-info")
}

func TestMessageIsEscaped(t *testing.T) {
	_, _, toasts := setup(t)
	n := toasts.Error(`<img src=x onerror="alert(1)">`)

	vtest.ExpectNotContains(t, n.Node(), "<img")
	vtest.ExpectContains(t, n.Node(), "&lt;img")
}

func TestDismissByButton(t *testing.T) {
	doc, clock, toasts := setup(t)
	n := toasts.Success("x")

	btn := vtest.MustQuery(t, doc, `[data-action="toast-dismiss"]`)
	if !toasts.Dismiss(btn.HID) {
		t.Fatal("Dismiss did not find the toast")
	}
	clock.Advance(toast.ExitDelay)
	if doc.Attached(n.Node()) {
		t.Error("dismissed toast still attached")
	}
	if toasts.Dismiss(btn.HID) {
		t.Error("second Dismiss should report false")
	}
	if toasts.Dismiss(doc.Body().HID) {
		t.Error("Dismiss outside a toast should report false")
	}
}

func TestObserver(t *testing.T) {
	obs := newObserver()
	_, clock, toasts := setup(t, toast.WithObserver(obs))

	toasts.Success("a")
	toasts.Error("b")
	toasts.Error("c")
	clock.Advance(time.Minute)

	if obs.shown[toast.TypeError] != 2 || obs.shown[toast.TypeSuccess] != 1 {
		t.Errorf("shown = %v", obs.shown)
	}
	if obs.removed[toast.TypeError] != 2 || obs.removed[toast.TypeSuccess] != 1 {
		t.Errorf("removed = %v", obs.removed)
	}
}

func TestWithDurations(t *testing.T) {
	_, _, toasts := setup(t, toast.WithDurations(map[toast.Type]time.Duration{
		toast.TypeError: 10 * time.Second,
		"bogus":         time.Second,
	}))

	if got := toasts.Error("x").Lifetime; got != 10*time.Second {
		t.Errorf("error lifetime = %v", got)
	}
	if got := toasts.Duration(toast.TypeInfo); got != 5*time.Second {
		t.Errorf("info lifetime = %v", got)
	}
}

func TestPatchesDescribeToast(t *testing.T) {
	doc, _, toasts := setup(t)
	doc.TakePatches()

	toasts.Info("hello")
	patches := doc.TakePatches()

	// container append, then toast append into it
	if len(patches) != 2 {
		t.Fatalf("patches = %+v", patches)
	}
	if patches[1].Op != page.OpAppend || !strings.Contains(patches[1].HTML, "hello") {
		t.Errorf("toast patch = %+v", patches[1])
	}
}
