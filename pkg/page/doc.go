// Package page holds the server-side copy of a browser page and turns every
// change made to it into patches for the browser client.
//
// UI components never touch the browser directly. They query and mutate a
// Document; the live session flushes Document.TakePatches over its websocket.
//
//	doc, _ := page.Parse(r.Body, r.URL)
//	btn := doc.Query(`button[type="submit"]`)
//	doc.SetDisabled(btn, true)
//	patches := doc.TakePatches()
package page
