package theme

import "github.com/eneky/projet-ui/pkg/vdom"

const (
	sunPath  = "M12 3v1m0 16v1m9-9h-1M4 12H3m15.364 6.364l-.707-.707M6.343 6.343l-.707-.707m12.728 0l-.707.707M6.343 17.657l-.707.707M16 12a4 4 0 11-8 0 4 4 0 018 0z"
	moonPath = "M20.354 15.354A9 9 0 018.646 3.646 9.003 9.003 0 0012 21a9.003 9.003 0 008.354-5.646z"
)

// IconPath returns the toggle icon for th: a sun while dark is active (the
// click switches to light), a moon otherwise.
func IconPath(th Theme) *vdom.VNode {
	d := moonPath
	if th == Dark {
		d = sunPath
	}
	return vdom.Path(
		vdom.Attribute("stroke-linecap", "round"),
		vdom.Attribute("stroke-linejoin", "round"),
		vdom.Attribute("stroke-width", "2"),
		vdom.D(d),
	)
}

// Button renders a toggle button for pages that do not author their own.
func Button(th Theme) *vdom.VNode {
	return vdom.Button(
		vdom.ID(ToggleID),
		vdom.Type("button"),
		vdom.Class("p-2 rounded-lg text-text-secondary hover:bg-gray-light dark:text-dark-text-secondary dark:hover:bg-dark-card"),
		vdom.AriaLabel("Toggle theme"),
		vdom.Svg(
			vdom.Class("w-5 h-5"),
			vdom.Fill("none"),
			vdom.Stroke("currentColor"),
			vdom.ViewBox("0 0 24 24"),
			IconPath(th),
		),
	)
}
