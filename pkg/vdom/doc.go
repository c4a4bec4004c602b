// Package vdom provides the virtual DOM used to describe and hold page UI.
//
// VNode is the building block for elements, text, fragments and raw HTML.
// Render functions in the UI packages are pure: they take state and return
// a VNode tree. The page adapter keeps the live page as a VNode tree as well
// and mutates it in place.
//
// # Element API
//
// Elements are created using variadic factory functions:
//
//	Div(Class("toast", "toast-info"), ID("main"),
//	    Span(Text("Saved")),
//	)
//
// # Hydration
//
// AssignHIDs gives every element a hydration ID. The thin browser client
// uses these IDs (rendered as data-hid) to locate elements when applying
// patches and to report events back.
package vdom
