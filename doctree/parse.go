package doctree

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jacoelho/xsd/pkg/xmlstream"
	"golang.org/x/net/html"
)

// ErrEmptyDocument is returned when the input holds no element.
var ErrEmptyDocument = errors.New("doctree: document has no root element")

// Parse reads an XML document and returns its root element. Element and
// attribute names are local names; namespace declarations are dropped.
func Parse(r io.Reader) (*Element, error) {
	sr, err := xmlstream.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("doctree: reader: %w", err)
	}

	var root *Element
	var stack []*Element
	for {
		ev, err := sr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("doctree: parse: %w", err)
		}

		switch ev.Kind {
		case xmlstream.EventStartElement:
			el := &Element{Name: ev.Name.Local}
			for _, a := range ev.Attrs {
				if isNamespaceDecl(string(a.Name.Namespace), a.Name.Local) {
					continue
				}
				el.Attrs = append(el.Attrs, Attr{Name: a.Name.Local, Value: string(a.Value)})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("doctree: parse: second root element %q", el.Name)
				}
				root = el
			} else {
				stack[len(stack)-1].AppendChild(el)
			}
			stack = append(stack, el)

		case xmlstream.EventEndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if root == nil {
		return nil, ErrEmptyDocument
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("doctree: parse: unclosed element %q", stack[len(stack)-1].Name)
	}
	return root, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Element, error) {
	return Parse(strings.NewReader(s))
}

func isNamespaceDecl(ns, local string) bool {
	if ns == xmlstream.XMLNSNamespace {
		return true
	}
	return ns == "" && local == "xmlns"
}

// ParseHTML reads an HTML document and returns its <html> element. The HTML5
// parser repairs markup, so the tree always has html/head/body.
func ParseHTML(r io.Reader) (*Element, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("doctree: parse html: %w", err)
	}
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode {
			return fromHTML(n), nil
		}
	}
	return nil, ErrEmptyDocument
}

func fromHTML(n *html.Node) *Element {
	el := &Element{Name: n.Data}
	for _, a := range n.Attr {
		el.Attrs = append(el.Attrs, Attr{Name: a.Key, Value: a.Val})
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			el.AppendChild(fromHTML(c))
		}
	}
	return el
}
