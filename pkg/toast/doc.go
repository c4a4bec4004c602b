// Package toast shows short-lived notifications on a live page.
//
// An Emitter owns the notifications of one page document. Each notification
// is rendered by the pure Render function, appended to a single container
// element (id "toast-container") and animated in and out with the
// toast-enter and toast-exit classes. Lifetimes are driven by the page's
// loop.Scheduler, so an Emitter must only be used from its loop.
//
// # Severities
//
// Four severities exist, each with a default lifetime:
//
//	toast.TypeSuccess  5s
//	toast.TypeError    7s
//	toast.TypeWarning  6s
//	toast.TypeInfo     5s
//
// A lifetime of zero keeps the notification until it is dismissed.
//
// # Server-Side Usage
//
//	toasts := toast.New(doc, sessionLoop)
//
//	if err := projects.Delete(id); err != nil {
//	    toasts.Error("Failed to delete project")
//	    return err
//	}
//	toasts.Success("Project deleted")
//
// With an explicit lifetime:
//
//	toasts.InfoFor("Sync running in background", 0)
//
// # Dismissal
//
// The dismiss button carries data-action="toast-dismiss". The live server
// routes clicks on it to Emitter.Dismiss with the clicked element's
// hydration ID.
package toast
