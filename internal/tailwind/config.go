package tailwind

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/eneky/projet-ui/internal/errors"
)

// Token is one named design value.
type Token struct {
	Name  string
	Value string
}

// FontSize is a font size with its line height.
type FontSize struct {
	Name       string
	Size       string
	LineHeight string
}

// Palette is the design system written into tailwind.config.js.
type Palette struct {
	Light     []Token
	Dark      []Token
	Fonts     []string
	FontSizes []FontSize
	Spacing   []Token
	Radius    []Token
	Shadows   []Token
}

// DefaultPalette returns the projet palette: a minimal grey scheme with a
// blue accent, and its dark counterpart applied under the dark class.
func DefaultPalette() Palette {
	return Palette{
		Light: []Token{
			{"gray-bg", "#F5F5F5"},
			{"gray-light", "#FAFAFA"},
			{"gray-border", "#E5E5E5"},
			{"text-primary", "#4A4A4A"},
			{"text-secondary", "#6B7280"},
			{"text-muted", "#9CA3AF"},
			{"accent", "#2563EB"},
			{"accent-hover", "#1D4ED8"},
		},
		Dark: []Token{
			{"dark-bg", "#1A1A1A"},
			{"dark-card", "#2D2D2D"},
			{"dark-border", "#404040"},
			{"dark-text-primary", "#F5F5F5"},
			{"dark-text-secondary", "#D1D5DB"},
			{"dark-text-muted", "#9CA3AF"},
			{"dark-accent", "#3B82F6"},
			{"dark-accent-hover", "#2563EB"},
		},
		Fonts: []string{"Marianne", "system-ui", "sans-serif"},
		FontSizes: []FontSize{
			{"xs", "0.75rem", "1rem"},
			{"sm", "0.875rem", "1.25rem"},
			{"base", "1rem", "1.5rem"},
			{"lg", "1.125rem", "1.75rem"},
			{"xl", "1.25rem", "1.75rem"},
			{"2xl", "1.5rem", "2rem"},
			{"3xl", "1.875rem", "2.25rem"},
		},
		Spacing: []Token{{"18", "4.5rem"}, {"88", "22rem"}},
		Radius:  []Token{{"xl", "0.75rem"}, {"2xl", "1rem"}},
		Shadows: []Token{
			{"soft", "0 2px 8px 0 rgba(0, 0, 0, 0.06)"},
			{"card", "0 4px 12px 0 rgba(0, 0, 0, 0.08)"},
		},
	}
}

// Color looks up a color token in either scheme.
func (p Palette) Color(name string) (string, bool) {
	for _, set := range [][]Token{p.Light, p.Dark} {
		for _, t := range set {
			if t.Name == name {
				return t.Value, true
			}
		}
	}
	return "", false
}

// Options configures the generated tailwind.config.js.
type Options struct {
	// Content lists the globs Tailwind scans for class names.
	Content []string
	// Palette defaults to DefaultPalette.
	Palette *Palette
	// Plugins are required by name. Defaults to @tailwindcss/forms.
	Plugins []string
}

var configTemplate = template.Must(template.New("tailwind").Funcs(template.FuncMap{
	"js":   strconv.Quote,
	"list": jsList,
}).Parse(`/** @type {import('tailwindcss').Config} */
module.exports = {
  content: {{list .Content}},
  darkMode: 'class',
  theme: {
    extend: {
      colors: {
{{- range .Palette.Light}}
        {{js .Name}}: {{js .Value}},
{{- end}}
{{- range .Palette.Dark}}
        {{js .Name}}: {{js .Value}},
{{- end}}
      },
      fontFamily: {
        'marianne': {{list .Palette.Fonts}},
        'sans': {{list .Palette.Fonts}},
      },
      fontSize: {
{{- range .Palette.FontSizes}}
        {{js .Name}}: [{{js .Size}}, { lineHeight: {{js .LineHeight}} }],
{{- end}}
      },
      spacing: {
{{- range .Palette.Spacing}}
        {{js .Name}}: {{js .Value}},
{{- end}}
      },
      borderRadius: {
{{- range .Palette.Radius}}
        {{js .Name}}: {{js .Value}},
{{- end}}
      },
      boxShadow: {
{{- range .Palette.Shadows}}
        {{js .Name}}: {{js .Value}},
{{- end}}
      },
    },
  },
  plugins: [
{{- range .Plugins}}
    require({{js .}}),
{{- end}}
  ],
}
`))

func jsList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = strconv.Quote(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// RenderConfig returns the tailwind.config.js source for opts.
func RenderConfig(opts Options) ([]byte, error) {
	if opts.Palette == nil {
		p := DefaultPalette()
		opts.Palette = &p
	}
	if len(opts.Plugins) == 0 {
		opts.Plugins = []string{"@tailwindcss/forms"}
	}
	if len(opts.Content) == 0 {
		opts.Content = []string{"./pages/**/*.html"}
	}

	var buf bytes.Buffer
	if err := configTemplate.Execute(&buf, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteConfig renders the config and writes it to path.
func WriteConfig(path string, opts Options) error {
	data, err := RenderConfig(opts)
	if err == nil {
		if err = os.MkdirAll(filepath.Dir(path), 0755); err == nil {
			err = os.WriteFile(path, data, 0644)
		}
	}
	if err != nil {
		return errors.New("E205").
			WithDetail("Writing " + path + " failed").
			Wrap(err)
	}
	return nil
}
