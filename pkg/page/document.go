package page

import (
	"io"
	"net/url"
	"strings"

	"github.com/eneky/projet-ui/pkg/render"
	"github.com/eneky/projet-ui/pkg/vdom"
)

// Document is the server-side copy of one browser page.
//
// All mutating methods record a Patch so the browser can replay the change.
// A Document is owned by a single event loop and is not safe for concurrent use.
type Document struct {
	root    *vdom.VNode
	url     *url.URL
	hids    *vdom.HIDGenerator
	byHID   map[string]*vdom.VNode
	storage map[string]string
	patches []Patch
}

// New wraps a parsed page. Elements without a hydration ID get one.
// A nil root yields an empty <html><head></head><body></body></html> page.
func New(root *vdom.VNode, pageURL *url.URL) *Document {
	if root == nil {
		root = vdom.Html(vdom.Head(), vdom.Body())
	}
	if pageURL == nil {
		pageURL = &url.URL{Path: "/"}
	}
	d := &Document{
		root:    root,
		url:     pageURL,
		hids:    vdom.NewHIDGenerator(),
		byHID:   make(map[string]*vdom.VNode),
		storage: make(map[string]string),
	}
	// Skip past IDs the server already rendered so new ones never collide.
	vdom.Walk(root, func(n *vdom.VNode) bool {
		if n.HID != "" {
			d.byHID[n.HID] = n
		}
		return true
	})
	d.index(root)
	return d
}

// Parse builds a Document from page HTML.
func Parse(r io.Reader, pageURL *url.URL) (*Document, error) {
	root, err := render.Parse(r)
	if err != nil {
		return nil, err
	}
	return New(root, pageURL), nil
}

// index assigns hydration IDs to unindexed elements under n and records them.
func (d *Document) index(n *vdom.VNode) {
	vdom.Walk(n, func(v *vdom.VNode) bool {
		if v.Kind != vdom.KindElement {
			return true
		}
		if v.HID == "" {
			for {
				hid := d.hids.Next()
				if _, taken := d.byHID[hid]; !taken {
					v.HID = hid
					break
				}
			}
		}
		d.byHID[v.HID] = v
		return true
	})
}

func (d *Document) unindex(n *vdom.VNode) {
	vdom.Walk(n, func(v *vdom.VNode) bool {
		if v.HID != "" && d.byHID[v.HID] == v {
			delete(d.byHID, v.HID)
		}
		return true
	})
}

func (d *Document) record(p Patch) {
	d.patches = append(d.patches, p)
}

// TakePatches returns and clears the pending patches.
func (d *Document) TakePatches() []Patch {
	p := d.patches
	d.patches = nil
	return p
}

// Pending reports how many patches are waiting to be flushed.
func (d *Document) Pending() int { return len(d.patches) }

// Root returns the <html> element.
func (d *Document) Root() *vdom.VNode { return d.root }

// URL returns the page URL, used to resolve relative form actions.
func (d *Document) URL() *url.URL { return d.url }

// Head returns the <head> element, creating it if the page has none.
func (d *Document) Head() *vdom.VNode {
	if h := d.childByTag("head"); h != nil {
		return h
	}
	head := vdom.Head()
	d.root.Children = append([]*vdom.VNode{head}, d.root.Children...)
	d.index(head)
	return head
}

// Body returns the <body> element, creating it if the page has none.
func (d *Document) Body() *vdom.VNode {
	if b := d.childByTag("body"); b != nil {
		return b
	}
	body := vdom.Body()
	d.root.Children = append(d.root.Children, body)
	d.index(body)
	return body
}

func (d *Document) childByTag(tag string) *vdom.VNode {
	for _, c := range d.root.Children {
		if c.IsElement() && c.Tag == tag {
			return c
		}
	}
	return nil
}

// ByHID looks up an attached element by hydration ID.
func (d *Document) ByHID(hid string) *vdom.VNode {
	return d.byHID[hid]
}

// ByID returns the first attached element with the given id attribute.
func (d *Document) ByID(id string) *vdom.VNode {
	return vdom.Find(d.root, func(n *vdom.VNode) bool { return n.ID() == id })
}

// Attached reports whether n is currently part of the page.
func (d *Document) Attached(n *vdom.VNode) bool {
	return n != nil && n.HID != "" && d.byHID[n.HID] == n
}

// Query returns the first element matching sel, or nil.
// An invalid selector matches nothing.
func (d *Document) Query(sel string) *vdom.VNode {
	return QueryIn(d.root, sel)
}

// QueryAll returns every element matching sel in document order.
func (d *Document) QueryAll(sel string) []*vdom.VNode {
	return QueryAllIn(d.root, sel)
}

// QueryIn returns the first element under scope (scope included) matching sel.
func QueryIn(scope *vdom.VNode, sel string) *vdom.VNode {
	s, err := Compile(sel)
	if err != nil {
		return nil
	}
	return vdom.Find(scope, s.Match)
}

// QueryAllIn returns every element under scope (scope included) matching sel.
func QueryAllIn(scope *vdom.VNode, sel string) []*vdom.VNode {
	s, err := Compile(sel)
	if err != nil {
		return nil
	}
	return vdom.FindAll(scope, s.Match)
}

// Parent returns the parent element of n.
func (d *Document) Parent(n *vdom.VNode) *vdom.VNode {
	p, _ := vdom.ParentOf(d.root, n)
	return p
}

// AppendChild adds child as the last child of parent.
func (d *Document) AppendChild(parent, child *vdom.VNode) {
	parent.Children = append(parent.Children, child)
	d.index(child)
	d.record(Patch{Op: OpAppend, HID: parent.HID, HTML: render.HTML(child)})
}

// InsertAfter places node right after ref. It is a no-op when ref is detached.
func (d *Document) InsertAfter(ref, node *vdom.VNode) bool {
	parent, idx := vdom.ParentOf(d.root, ref)
	if parent == nil {
		return false
	}
	children := make([]*vdom.VNode, 0, len(parent.Children)+1)
	children = append(children, parent.Children[:idx+1]...)
	children = append(children, node)
	children = append(children, parent.Children[idx+1:]...)
	parent.Children = children
	d.index(node)
	d.record(Patch{Op: OpInsertAfter, HID: ref.HID, HTML: render.HTML(node)})
	return true
}

// Remove detaches n from the page. It reports false when n was not attached.
func (d *Document) Remove(n *vdom.VNode) bool {
	parent, idx := vdom.ParentOf(d.root, n)
	if parent == nil {
		return false
	}
	parent.Children = append(parent.Children[:idx:idx], parent.Children[idx+1:]...)
	d.unindex(n)
	d.record(Patch{Op: OpRemove, HID: n.HID})
	return true
}

// SetChildren replaces the displayable content of n.
func (d *Document) SetChildren(n *vdom.VNode, children []*vdom.VNode) {
	for _, c := range n.Children {
		d.unindex(c)
	}
	n.Children = children
	var b strings.Builder
	for _, c := range children {
		d.index(c)
		b.WriteString(render.HTML(c))
	}
	d.record(Patch{Op: OpInner, HID: n.HID, HTML: b.String()})
}

// SetAttr sets an attribute and records the change.
func (d *Document) SetAttr(n *vdom.VNode, key, value string) {
	n.SetAttr(key, value)
	d.record(Patch{Op: OpSetAttr, HID: n.HID, Key: key, Value: value})
}

// RemoveAttr deletes an attribute and records the change.
func (d *Document) RemoveAttr(n *vdom.VNode, key string) {
	if _, ok := n.Props[key]; !ok {
		return
	}
	n.RemoveAttr(key)
	d.record(Patch{Op: OpRemoveAttr, HID: n.HID, Key: key})
}

// AddClass adds classes to n.
func (d *Document) AddClass(n *vdom.VNode, classes ...string) {
	if n.AddClass(classes...) {
		d.syncClass(n)
	}
}

// RemoveClass removes classes from n.
func (d *Document) RemoveClass(n *vdom.VNode, classes ...string) {
	if n.RemoveClass(classes...) {
		d.syncClass(n)
	}
}

// ToggleClass flips class on n and returns whether it is now present.
func (d *Document) ToggleClass(n *vdom.VNode, class string) bool {
	on := n.ToggleClass(class)
	d.syncClass(n)
	return on
}

func (d *Document) syncClass(n *vdom.VNode) {
	if n.HasAttr("class") {
		d.record(Patch{Op: OpSetAttr, HID: n.HID, Key: "class", Value: n.Attr("class")})
	} else {
		d.record(Patch{Op: OpRemoveAttr, HID: n.HID, Key: "class"})
	}
}

// SetDisabled toggles the disabled attribute.
func (d *Document) SetDisabled(n *vdom.VNode, disabled bool) {
	if disabled {
		n.SetAttr("disabled", true)
		d.record(Patch{Op: OpSetAttr, HID: n.HID, Key: "disabled", Value: ""})
		return
	}
	d.RemoveAttr(n, "disabled")
}

// SetStyle sets one inline style property, keeping the others.
func (d *Document) SetStyle(n *vdom.VNode, property, value string) {
	var kept []string
	for _, decl := range strings.Split(n.Attr("style"), ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		name, _, _ := strings.Cut(decl, ":")
		if strings.TrimSpace(name) == property {
			continue
		}
		kept = append(kept, decl)
	}
	kept = append(kept, property+": "+value)
	d.SetAttr(n, "style", strings.Join(kept, "; "))
}

// SetValue mirrors a value typed in the browser. The browser already shows
// it, so no patch is recorded.
func (d *Document) SetValue(n *vdom.VNode, value string) {
	n.SetAttr("value", value)
}

// Value returns the current value of a form field.
func Value(n *vdom.VNode) string {
	if v, ok := n.Props["value"].(string); ok {
		return v
	}
	if n.Tag == "textarea" {
		return n.TextContent()
	}
	if n.Tag == "select" {
		opts := vdom.FindAll(n, func(o *vdom.VNode) bool { return o.Tag == "option" })
		for _, o := range opts {
			if o.HasAttr("selected") {
				return optionValue(o)
			}
		}
		if len(opts) > 0 {
			return optionValue(opts[0])
		}
	}
	return ""
}

func optionValue(o *vdom.VNode) string {
	if _, ok := o.Props["value"]; ok {
		return o.Attr("value")
	}
	return strings.TrimSpace(o.TextContent())
}

// SetStorage writes a key to the browser's local storage.
func (d *Document) SetStorage(key, value string) {
	d.storage[key] = value
	d.record(Patch{Op: OpStorage, Key: key, Value: value})
}

// LoadStorage seeds the storage mirror with what the browser reported.
func (d *Document) LoadStorage(values map[string]string) {
	for k, v := range values {
		d.storage[k] = v
	}
}

// Storage reads a key from the browser storage mirror.
func (d *Document) Storage(key string) (string, bool) {
	v, ok := d.storage[key]
	return v, ok
}

// Render writes the whole page, including hydration IDs.
func (d *Document) Render(w io.Writer) error {
	return render.NewRenderer(render.RendererConfig{}).RenderDocument(w, d.root)
}

// HTML renders one element of the page.
func (d *Document) HTML(n *vdom.VNode) string {
	return render.HTML(n)
}
