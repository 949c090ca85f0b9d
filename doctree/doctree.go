// CLAUDE:SUMMARY Parsed document tree handed to the extractor and compat checker, plus a small builder for tests.
// Package doctree is the element tree a document source hands to the profile
// core. The core never parses text itself; Parse and ParseHTML are adapters
// for callers that hold raw XML or HTML.
package doctree

// Attr is one attribute occurrence on an element.
type Attr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Element is one element node. Children holds first-level child elements
// only; text, comments and processing instructions are not represented.
type Element struct {
	Name     string     `json:"name"`
	Attrs    []Attr     `json:"attrs,omitempty"`
	Children []*Element `json:"children,omitempty"`
}

// E builds an element from a name, attributes in name/value pairs, and
// children. It exists for tests and for programmatic document sources.
//
//	doctree.E("config", nil, doctree.E("server", []string{"port", "8080"}))
func E(name string, attrs []string, children ...*Element) *Element {
	el := &Element{Name: name, Children: children}
	for i := 0; i+1 < len(attrs); i += 2 {
		el.Attrs = append(el.Attrs, Attr{Name: attrs[i], Value: attrs[i+1]})
	}
	return el
}

// Attr returns the value of the named attribute and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AppendChild adds child as the last first-level child of e.
func (e *Element) AppendChild(child *Element) {
	e.Children = append(e.Children, child)
}

// DeeperThan returns the first element, in pre-order, that sits more than
// depth levels down the subtree rooted at e (e itself is level 1), or nil when
// the subtree fits.
func (e *Element) DeeperThan(depth int) *Element {
	if e == nil {
		return nil
	}
	type frame struct {
		el    *Element
		level int
	}
	stack := []frame{{e, 1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.level > depth {
			return f.el
		}
		for i := len(f.el.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.el.Children[i], f.level + 1})
		}
	}
	return nil
}
