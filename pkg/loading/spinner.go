package loading

import "github.com/eneky/projet-ui/pkg/vdom"

// Size selects the spinner dimensions.
type Size string

const (
	SizeSmall  Size = "sm"
	SizeMedium Size = "md"
	SizeLarge  Size = "lg"
)

var sizeClasses = map[Size]string{
	SizeSmall:  "w-4 h-4",
	SizeMedium: "w-6 h-6",
	SizeLarge:  "w-8 h-8",
}

// Valid reports whether s is a known size.
func (s Size) Valid() bool {
	_, ok := sizeClasses[s]
	return ok
}

// ParseSize maps "sm", "md" and "lg" to a Size. Anything else is medium.
func ParseSize(s string) Size {
	if size := Size(s); size.Valid() {
		return size
	}
	return SizeMedium
}

const spinnerPath = "M4 12a8 8 0 018-8V0C5.373 0 0 5.373 0 12h4zm2 5.291A7.962 7.962 0 014 12H0c0 3.042 1.135 5.824 3 7.938l3-2.647z"

// Spinner renders the overlay content: an animated ring and a label.
func Spinner(label string, size Size) *vdom.VNode {
	if !size.Valid() {
		size = SizeMedium
	}
	return vdom.Div(
		vdom.Class("flex items-center justify-center"),
		vdom.Svg(
			vdom.Class("animate-spin", sizeClasses[size], "text-accent mr-2"),
			vdom.Fill("none"),
			vdom.ViewBox("0 0 24 24"),
			vdom.AriaHidden(),
			vdom.Circle(
				vdom.Class("opacity-25"),
				vdom.Attribute("cx", "12"),
				vdom.Attribute("cy", "12"),
				vdom.Attribute("r", "10"),
				vdom.Stroke("currentColor"),
				vdom.Attribute("stroke-width", "4"),
			),
			vdom.Path(
				vdom.Class("opacity-75"),
				vdom.Fill("currentColor"),
				vdom.D(spinnerPath),
			),
		),
		vdom.Span(vdom.Class("text-sm text-text-secondary"), label),
	)
}
