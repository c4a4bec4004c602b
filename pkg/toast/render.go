package toast

import "github.com/eneky/projet-ui/pkg/vdom"

// styleCSS is the animation stylesheet injected once per page.
const styleCSS = `
.toast-enter {
    transform: translateX(0) !important;
    opacity: 1 !important;
}

.toast-exit {
    transform: translateX(full) !important;
    opacity: 0 !important;
}
`

const containerClass = "fixed bottom-4 left-1/2 transform -translate-x-1/2 z-50 space-y-2"

var (
	panelStyles = map[Type]string{
		TypeSuccess: "bg-green-50 border-green-200 text-green-800",
		TypeError:   "bg-red-50 border-red-200 text-red-800",
		TypeWarning: "bg-yellow-50 border-yellow-200 text-yellow-800",
		TypeInfo:    "bg-blue-50 border-blue-200 text-blue-800",
	}

	iconColors = map[Type]string{
		TypeSuccess: "text-green-500",
		TypeError:   "text-red-500",
		TypeWarning: "text-yellow-500",
		TypeInfo:    "text-blue-500",
	}

	iconPaths = map[Type]string{
		TypeSuccess: "M10 18a8 8 0 100-16 8 8 0 000 16zm3.707-9.293a1 1 0 00-1.414-1.414L9 10.586 7.707 9.293a1 1 0 00-1.414 1.414l2 2a1 1 0 001.414 0l4-4z",
		TypeError:   "M10 18a8 8 0 100-16 8 8 0 000 16zM8.707 7.293a1 1 0 00-1.414 1.414L8.586 10l-1.293 1.293a1 1 0 101.414 1.414L10 11.414l1.293 1.293a1 1 0 001.414-1.414L11.414 10l1.293-1.293a1 1 0 00-1.414-1.414L10 8.586 8.707 7.293z",
		TypeWarning: "M8.257 3.099c.765-1.36 2.722-1.36 3.486 0l5.58 9.92c.75 1.334-.213 2.98-1.742 2.98H4.42c-1.53 0-2.493-1.646-1.743-2.98l5.58-9.92zM11 13a1 1 0 11-2 0 1 1 0 012 0zm-1-8a1 1 0 00-1 1v3a1 1 0 002 0V6a1 1 0 00-1-1z",
		TypeInfo:    "M18 10a8 8 0 11-16 0 8 8 0 0116 0zm-7-4a1 1 0 11-2 0 1 1 0 012 0zM9 9a1 1 0 000 2v3a1 1 0 001 1h1a1 1 0 100-2v-3a1 1 0 00-1-1H9z",
	}
)

const closePath = "M4.293 4.293a1 1 0 011.414 0L10 8.586l4.293-4.293a1 1 0 111.414 1.414L11.414 10l4.293 4.293a1 1 0 01-1.414 1.414L10 11.414l-4.293 4.293a1 1 0 01-1.414-1.414L8.586 10 4.293 5.707a1 1 0 010-1.414z"

// Render returns the element for n. It does not touch any page.
// The message is rendered as text, never as markup.
func Render(n *Notification) *vdom.VNode {
	severity := n.Severity
	if !severity.Valid() {
		severity = TypeInfo
	}
	role := "status"
	if severity == TypeError {
		role = "alert"
	}
	return vdom.Div(
		vdom.Class("toast", "toast-"+string(severity),
			"transform translate-x-full opacity-0 transition-all duration-300 ease-in-out"),
		vdom.Role(role),
		vdom.Div(
			vdom.Class("flex items-center p-4 border rounded-lg shadow-lg max-w-sm", panelStyles[severity]),
			vdom.Div(vdom.Class("flex-shrink-0 mr-3"), Icon(severity)),
			vdom.Div(vdom.Class("flex-1 text-sm font-medium"), vdom.Text(n.Message)),
			vdom.Button(
				vdom.Type("button"),
				vdom.Class("ml-3 flex-shrink-0 text-gray-400 hover:text-gray-600 focus:outline-none"),
				vdom.Data("action", DismissAction),
				vdom.AriaLabel("Close"),
				solidIcon("w-4 h-4", closePath),
			),
		),
	)
}

// Icon returns the severity icon.
func Icon(severity Type) *vdom.VNode {
	if !severity.Valid() {
		severity = TypeInfo
	}
	return solidIcon("w-5 h-5 "+iconColors[severity], iconPaths[severity])
}

func solidIcon(class, d string) *vdom.VNode {
	return vdom.Svg(
		vdom.Class(class),
		vdom.Fill("currentColor"),
		vdom.ViewBox("0 0 20 20"),
		vdom.Path(
			vdom.Attribute("fill-rule", "evenodd"),
			vdom.D(d),
			vdom.Attribute("clip-rule", "evenodd"),
		),
	)
}

// RenderContainer returns an empty toast container.
func RenderContainer() *vdom.VNode {
	return vdom.Div(vdom.ID(ContainerID), vdom.Class(containerClass), vdom.AriaLive("polite"))
}

// Styles returns the <style> element holding the animation classes.
func Styles() *vdom.VNode {
	return vdom.Style(vdom.ID(StylesID), vdom.Raw(styleCSS))
}
