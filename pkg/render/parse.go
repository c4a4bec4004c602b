package render

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/eneky/projet-ui/pkg/vdom"
)

// Parse reads a server-rendered HTML page and returns its <html> element as a
// VNode tree. Comments and the doctype are dropped. Boolean attributes present
// in the markup become true-valued props; data-hid attributes are restored
// as node HIDs.
func Parse(r io.Reader) (*vdom.VNode, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Html {
			return convert(c), nil
		}
	}
	return nil, fmt.Errorf("parse html: no <html> element")
}

// ParseString is Parse for an in-memory page.
func ParseString(s string) (*vdom.VNode, error) {
	return Parse(strings.NewReader(s))
}

// ParseFragment parses markup meant to live inside a <body> and returns the
// top-level nodes.
func ParseFragment(s string) ([]*vdom.VNode, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(s), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	out := make([]*vdom.VNode, 0, len(nodes))
	for _, n := range nodes {
		if v := convert(n); v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

func convert(n *html.Node) *vdom.VNode {
	switch n.Type {
	case html.TextNode:
		return vdom.Text(n.Data)
	case html.ElementNode:
		node := &vdom.VNode{
			Kind:     vdom.KindElement,
			Tag:      n.Data,
			Props:    make(vdom.Props, len(n.Attr)),
			Children: make([]*vdom.VNode, 0),
		}
		for _, a := range n.Attr {
			key := a.Key
			if a.Namespace != "" {
				key = a.Namespace + ":" + a.Key
			}
			switch {
			case key == HIDAttr:
				node.HID = a.Val
			case IsBooleanAttr(key):
				node.Props[key] = true
			default:
				node.Props[key] = a.Val
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if child := convert(c); child != nil {
				node.Children = append(node.Children, child)
			}
		}
		return node
	default:
		return nil
	}
}
