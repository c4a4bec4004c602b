package vtest

import (
	"net/url"
	"strings"
	"testing"

	"github.com/eneky/projet-ui/pkg/page"
	"github.com/eneky/projet-ui/pkg/render"
	"github.com/eneky/projet-ui/pkg/vdom"
)

// NewPage parses html into a page document served from /.
//
// Example:
//
//	doc := vtest.NewPage(t, `<html><body><form method="post"></form></body></html>`)
func NewPage(t testing.TB, html string) *page.Document {
	t.Helper()
	return NewPageAt(t, html, "http://localhost/")
}

// NewPageAt is NewPage with an explicit page URL, used to resolve relative
// form actions.
func NewPageAt(t testing.TB, html, pageURL string) *page.Document {
	t.Helper()
	u, err := url.Parse(pageURL)
	if err != nil {
		t.Fatalf("vtest: bad page url %q: %v", pageURL, err)
	}
	doc, err := page.Parse(strings.NewReader(html), u)
	if err != nil {
		t.Fatalf("vtest: parse page: %v", err)
	}
	return doc
}

// MustQuery returns the first element matching sel or fails the test.
func MustQuery(t testing.TB, doc *page.Document, sel string) *vdom.VNode {
	t.Helper()
	n := doc.Query(sel)
	if n == nil {
		t.Fatalf("vtest: no element matches %q", sel)
	}
	return n
}

// RenderToString renders a VNode and returns the HTML string without
// hydration IDs.
//
// Example:
//
//	html := vtest.RenderToString(toast.Render(n))
func RenderToString(node *vdom.VNode) string {
	r := render.NewRenderer(render.RendererConfig{SkipHIDs: true})
	html, err := r.RenderToString(node)
	if err != nil {
		return ""
	}
	return html
}

// ExpectContains asserts that rendered output contains expected substring.
func ExpectContains(t testing.TB, node *vdom.VNode, expected string) {
	t.Helper()
	html := RenderToString(node)
	if !strings.Contains(html, expected) {
		t.Errorf("expected rendered output to contain %q, got:\n%s", expected, truncate(html, 500))
	}
}

// ExpectNotContains asserts that rendered output does not contain substring.
func ExpectNotContains(t testing.TB, node *vdom.VNode, unexpected string) {
	t.Helper()
	html := RenderToString(node)
	if strings.Contains(html, unexpected) {
		t.Errorf("expected rendered output to NOT contain %q, got:\n%s", unexpected, truncate(html, 500))
	}
}

// ExpectElement asserts that rendered output contains a specific tag.
func ExpectElement(t testing.TB, node *vdom.VNode, tag string) {
	t.Helper()
	html := RenderToString(node)
	if !strings.Contains(html, "<"+tag) {
		t.Errorf("expected rendered output to contain <%s> element, got:\n%s", tag, truncate(html, 500))
	}
}

// ExpectAttribute asserts that rendered output contains an attribute value.
//
// Example:
//
//	vtest.ExpectAttribute(t, node, "class", "field-error text-red-500 text-sm mt-1")
func ExpectAttribute(t testing.TB, node *vdom.VNode, attr, value string) {
	t.Helper()
	html := RenderToString(node)
	needle := attr + `="` + render.EscapeHTML(value) + `"`
	if !strings.Contains(html, needle) {
		t.Errorf("expected attribute %s=%q not found, got:\n%s", attr, value, truncate(html, 500))
	}
}

// ExpectClass asserts that n carries every class.
func ExpectClass(t testing.TB, n *vdom.VNode, classes ...string) {
	t.Helper()
	for _, c := range classes {
		if !n.HasClass(c) {
			t.Errorf("expected <%s> to have class %q, got %q", n.Tag, c, n.Attr("class"))
		}
	}
}

// ExpectNoClass asserts that n carries none of the classes.
func ExpectNoClass(t testing.TB, n *vdom.VNode, classes ...string) {
	t.Helper()
	for _, c := range classes {
		if n.HasClass(c) {
			t.Errorf("expected <%s> not to have class %q", n.Tag, c)
		}
	}
}

// truncate truncates a string to max length with ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
