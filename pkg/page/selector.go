package page

import (
	"fmt"
	"strings"

	"github.com/eneky/projet-ui/pkg/vdom"
)

// Selector is a compiled CSS selector subset: comma separated compound
// selectors made of an optional tag, #id, .class and [attr] / [attr=value]
// parts. Combinators are not supported; use QueryIn to scope a search.
type Selector struct {
	source string
	groups []compound
}

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
}

type attrMatch struct {
	key      string
	value    string
	hasValue bool
}

// Compile parses a selector.
func Compile(sel string) (*Selector, error) {
	s := &Selector{source: sel}
	for _, part := range strings.Split(sel, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("selector %q: empty group", sel)
		}
		c, err := parseCompound(part)
		if err != nil {
			return nil, fmt.Errorf("selector %q: %w", sel, err)
		}
		s.groups = append(s.groups, c)
	}
	return s, nil
}

// MustCompile is Compile that panics on error. For package-level selectors.
func MustCompile(sel string) *Selector {
	s, err := Compile(sel)
	if err != nil {
		panic(err)
	}
	return s
}

// String returns the selector source.
func (s *Selector) String() string { return s.source }

// Match reports whether the element matches any group.
func (s *Selector) Match(n *vdom.VNode) bool {
	if !n.IsElement() {
		return false
	}
	for _, g := range s.groups {
		if g.match(n) {
			return true
		}
	}
	return false
}

func (c compound) match(n *vdom.VNode) bool {
	if c.tag != "" && !strings.EqualFold(c.tag, n.Tag) {
		return false
	}
	if c.id != "" && n.ID() != c.id {
		return false
	}
	for _, cls := range c.classes {
		if !n.HasClass(cls) {
			return false
		}
	}
	for _, a := range c.attrs {
		if !n.HasAttr(a.key) {
			return false
		}
		if a.hasValue && n.Attr(a.key) != a.value {
			return false
		}
	}
	return true
}

func parseCompound(s string) (compound, error) {
	var c compound
	i := 0
	readIdent := func() string {
		start := i
		for i < len(s) && isIdentChar(s[i]) {
			i++
		}
		return s[start:i]
	}

	if i < len(s) && (isIdentChar(s[i]) || s[i] == '*') {
		if s[i] == '*' {
			i++
		} else {
			c.tag = strings.ToLower(readIdent())
		}
	}

	for i < len(s) {
		switch s[i] {
		case '#':
			i++
			c.id = readIdent()
			if c.id == "" {
				return c, fmt.Errorf("empty id")
			}
		case '.':
			i++
			cls := readIdent()
			if cls == "" {
				return c, fmt.Errorf("empty class")
			}
			c.classes = append(c.classes, cls)
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return c, fmt.Errorf("unterminated attribute")
			}
			body := s[i+1 : i+end]
			i += end + 1
			a, err := parseAttr(body)
			if err != nil {
				return c, err
			}
			c.attrs = append(c.attrs, a)
		default:
			return c, fmt.Errorf("unsupported syntax at %q", s[i:])
		}
	}
	return c, nil
}

func parseAttr(body string) (attrMatch, error) {
	key, value, hasValue := strings.Cut(body, "=")
	key = strings.TrimSpace(key)
	if key == "" {
		return attrMatch{}, fmt.Errorf("empty attribute name")
	}
	value = strings.TrimSpace(value)
	if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
		value = value[1 : len(value)-1]
	}
	return attrMatch{key: key, value: value, hasValue: hasValue}, nil
}

func isIdentChar(b byte) bool {
	return b == '-' || b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
