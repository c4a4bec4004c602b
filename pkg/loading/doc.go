// Package loading puts busy overlays on page controls.
//
// Show swaps a control's content for a spinner, disables it and returns a
// Handle. Hide restores exactly what was there before. Handles are never
// reused within a process.
//
//	h := overlays.Show(button, "Saving...", loading.SizeSmall)
//	defer overlays.Hide(h)
//
// Overlays on the same control are not coordinated: each one saves the
// content it found, so hiding an older handle after a newer one was shown
// restores the content from before both.
package loading
