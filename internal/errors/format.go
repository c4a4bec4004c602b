package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// detailWidth is the column at which details are wrapped.
const detailWidth = 70

var styles = struct {
	Header lipgloss.Style
	Title  lipgloss.Style
	Where  lipgloss.Style
	Label  lipgloss.Style
	Gutter lipgloss.Style
	Marker lipgloss.Style
	Link   lipgloss.Style
	Body   lipgloss.Style
}{
	Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	Title:  lipgloss.NewStyle().Bold(true),
	Where:  lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
	Label:  lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
	Gutter: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	Marker: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	Link:   lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("69")),
	Body:   lipgloss.NewStyle().Width(detailWidth),
}

// Format renders the error for a terminal: header, source excerpt, detail,
// cause, hint, example and documentation link, each only when present.
func (e *Error) Format() string {
	blocks := []string{e.header()}
	if e.Location != nil {
		blocks = append(blocks, indent(styles.Where.Render(e.Location.String())))
		if len(e.Context) > 0 {
			blocks = append(blocks, e.excerpt())
		}
	}
	if e.Detail != "" {
		blocks = append(blocks, indent(styles.Body.Render(e.Detail)))
	}
	if e.Wrapped != nil {
		blocks = append(blocks, indent(styles.Gutter.Render("Cause:")+" "+e.Wrapped.Error()))
	}
	if e.Suggestion != "" {
		blocks = append(blocks, indent(styles.Label.Render("Hint:")+" "+e.Suggestion))
	}
	if e.Example != "" {
		blocks = append(blocks, indent(styles.Label.Render("Example:"))+"\n"+indent(indent(e.Example)))
	}
	if e.DocURL != "" {
		blocks = append(blocks, indent(styles.Gutter.Render("Learn more:")+" "+styles.Link.Render(e.DocURL)))
	}
	return "\n" + strings.Join(blocks, "\n\n") + "\n"
}

func (e *Error) header() string {
	if e.Code == "" {
		return styles.Header.Render("ERROR:") + " " + e.Message
	}
	return styles.Header.Render("ERROR") + " " + styles.Title.Render(e.Code+":") + " " + e.Message
}

// excerpt numbers the context lines and points at the failing column.
func (e *Error) excerpt() string {
	first := e.Location.Line - len(e.Context)/2
	var lines []string
	for i, text := range e.Context {
		n := first + i
		marker := "  "
		if n == e.Location.Line {
			marker = styles.Marker.Render("→ ")
		}
		lines = append(lines, fmt.Sprintf("%s%4d %s %s", marker, n, styles.Gutter.Render("│"), text))
		if n == e.Location.Line && e.Location.Column > 0 {
			lines = append(lines, fmt.Sprintf("       %s %s%s",
				styles.Gutter.Render("│"), strings.Repeat(" ", e.Location.Column-1), styles.Marker.Render("^")))
		}
	}
	return indent(strings.Join(lines, "\n"))
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}

// PrintError writes err to stderr. Errors without a code get a bare header.
func PrintError(err error) {
	var ce *Error
	if !stderrors.As(err, &ce) {
		ce = &Error{Message: err.Error()}
	}
	fmt.Fprint(os.Stderr, ce.Format())
}
