// Package server serves the HTML pages and keeps one live Session per
// browser tab.
//
// A page request renders the page with hydration ids and adds the thin
// client script. The client opens a websocket to /_ui/ws and sends a hello
// naming the page and what the browser holds in local storage. The server
// parses the same page into a page.Document, boots the page components on a
// per-session loop and from then on:
//
//   - browser events (submit, blur, input, click) are decoded, rate limited
//     and run on the loop through the event middleware chain;
//   - every patch recorded during a loop callback is flushed to the browser
//     as one {"patches": [...]} frame.
//
// Requests that are not pages (form posts, API calls) are forwarded to the
// upstream application when one is configured.
//
// # Usage
//
//	srv, err := server.New(&server.Config{
//	    Address:  "localhost:8001",
//	    PagesDir: "pages",
//	    Upstream: upstreamURL,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(srv.Run(context.Background()))
package server
