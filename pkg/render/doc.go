// Package render converts VNode trees to HTML and parses server-rendered
// HTML pages back into VNode trees.
//
// Rendering handles text and attribute escaping, void elements, boolean
// attributes and the data-hid hydration attribute:
//
//	renderer := render.NewRenderer(render.RendererConfig{})
//	html, err := renderer.RenderToString(node)
//
// Parsing is backed by golang.org/x/net/html, so it accepts the same markup a
// browser does:
//
//	root, err := render.Parse(file)
package render
