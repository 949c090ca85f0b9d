// CLAUDE:SUMMARY Checks a document tree against learned element/edge/attribute facts; boolean Check and accumulating Diff.
// Package compat reports whether a document only uses structure that a
// profile already knows: element names, parent/child edges and attribute
// names. Attribute values are never compared.
package compat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/hazyhaar/xmlprofile/doctree"
	"github.com/hazyhaar/xmlprofile/valueset"
)

// DefaultMaxDepth bounds the document depth a walk accepts.
const DefaultMaxDepth = 512

// ErrCycle is returned when a document node is its own ancestor. Parsed
// documents never are; hand-built trees can be.
var ErrCycle = errors.New("compat: document tree contains a cycle")

// Element is what a Source knows about one element name.
type Element struct {
	Children   valueset.Set
	Attributes valueset.Set
}

// Source answers element lookups. LookupElement returns nil, nil for an
// unknown name.
type Source interface {
	LookupElement(ctx context.Context, name string) (*Element, error)
}

// Edge is a parent/child pair.
type Edge struct {
	Parent string `json:"parent"`
	Child  string `json:"child"`
}

// AttributeRef names an attribute on an element.
type AttributeRef struct {
	Element   string `json:"element"`
	Attribute string `json:"attribute"`
}

// Report lists every unknown fact found in a document, deduplicated and
// sorted.
type Report struct {
	UnknownElements   []string       `json:"unknown_elements"`
	UnknownEdges      []Edge         `json:"unknown_edges"`
	UnknownAttributes []AttributeRef `json:"unknown_attributes"`
}

// Compatible reports whether nothing unknown was found.
func (r *Report) Compatible() bool {
	return len(r.UnknownElements) == 0 && len(r.UnknownEdges) == 0 && len(r.UnknownAttributes) == 0
}

// DepthError reports a document deeper than the configured bound.
type DepthError struct {
	Element  string
	MaxDepth int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("compat: element %s is nested deeper than %d", e.Element, e.MaxDepth)
}

// Option configures a walk.
type Option func(*walker)

// WithMaxDepth sets the maximum nesting depth. n <= 0 keeps the default.
func WithMaxDepth(n int) Option {
	return func(w *walker) {
		if n > 0 {
			w.maxDepth = n
		}
	}
}

// Check reports whether doc is compatible with src. It stops at the first
// unknown fact.
func Check(ctx context.Context, src Source, doc *doctree.Element, opts ...Option) (bool, error) {
	w := newWalker(src, true, opts)
	err := w.walk(ctx, doc, nil, 1)
	if errors.Is(err, errStop) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Diff walks the whole of doc and collects every unknown fact.
func Diff(ctx context.Context, src Source, doc *doctree.Element, opts ...Option) (*Report, error) {
	w := newWalker(src, false, opts)
	if err := w.walk(ctx, doc, nil, 1); err != nil {
		return nil, err
	}
	return w.report(), nil
}

var errStop = errors.New("compat: stop")

type walker struct {
	src       Source
	stopEarly bool
	maxDepth  int

	known     map[string]*Element
	ancestors []*doctree.Element

	elements map[string]struct{}
	edges    map[Edge]struct{}
	attrs    map[AttributeRef]struct{}
}

func newWalker(src Source, stopEarly bool, opts []Option) *walker {
	w := &walker{
		src:       src,
		stopEarly: stopEarly,
		maxDepth:  DefaultMaxDepth,
		known:     make(map[string]*Element),
		elements:  make(map[string]struct{}),
		edges:     make(map[Edge]struct{}),
		attrs:     make(map[AttributeRef]struct{}),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// lookup memoises Source answers for the duration of one walk.
func (w *walker) lookup(ctx context.Context, name string) (*Element, error) {
	if e, ok := w.known[name]; ok {
		return e, nil
	}
	e, err := w.src.LookupElement(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("compat: lookup %s: %w", name, err)
	}
	w.known[name] = e
	return e, nil
}

// miss records an unknown fact and tells the caller whether to stop.
func (w *walker) miss() error {
	if w.stopEarly {
		return errStop
	}
	return nil
}

func (w *walker) walk(ctx context.Context, node, parent *doctree.Element, depth int) error {
	if node == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth > w.maxDepth {
		return &DepthError{Element: node.Name, MaxDepth: w.maxDepth}
	}
	// The chain holds node pointers: the same name recurs legitimately at
	// different positions, the same node never does.
	if slices.Contains(w.ancestors, node) {
		return ErrCycle
	}

	e, err := w.lookup(ctx, node.Name)
	if err != nil {
		return err
	}
	if e == nil {
		w.elements[node.Name] = struct{}{}
		if err := w.miss(); err != nil {
			return err
		}
	}

	if parent != nil {
		pe, err := w.lookup(ctx, parent.Name)
		if err != nil {
			return err
		}
		if pe == nil || !pe.Children.Has(node.Name) {
			w.edges[Edge{Parent: parent.Name, Child: node.Name}] = struct{}{}
			if err := w.miss(); err != nil {
				return err
			}
		}
	}

	for _, a := range node.Attrs {
		if a.Name == "" {
			continue
		}
		if e == nil || !e.Attributes.Has(a.Name) {
			w.attrs[AttributeRef{Element: node.Name, Attribute: a.Name}] = struct{}{}
			if err := w.miss(); err != nil {
				return err
			}
		}
	}

	w.ancestors = append(w.ancestors, node)
	defer func() { w.ancestors = w.ancestors[:len(w.ancestors)-1] }()
	for _, c := range node.Children {
		if err := w.walk(ctx, c, node, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) report() *Report {
	r := &Report{
		UnknownElements:   make([]string, 0, len(w.elements)),
		UnknownEdges:      make([]Edge, 0, len(w.edges)),
		UnknownAttributes: make([]AttributeRef, 0, len(w.attrs)),
	}
	for n := range w.elements {
		r.UnknownElements = append(r.UnknownElements, n)
	}
	sort.Strings(r.UnknownElements)
	for e := range w.edges {
		r.UnknownEdges = append(r.UnknownEdges, e)
	}
	sort.Slice(r.UnknownEdges, func(i, j int) bool {
		a, b := r.UnknownEdges[i], r.UnknownEdges[j]
		if a.Parent != b.Parent {
			return a.Parent < b.Parent
		}
		return a.Child < b.Child
	})
	for a := range w.attrs {
		r.UnknownAttributes = append(r.UnknownAttributes, a)
	}
	sort.Slice(r.UnknownAttributes, func(i, j int) bool {
		a, b := r.UnknownAttributes[i], r.UnknownAttributes[j]
		if a.Element != b.Element {
			return a.Element < b.Element
		}
		return a.Attribute < b.Attribute
	})
	return r
}

// MapSource is an in-memory Source keyed by element name.
type MapSource map[string]*Element

// LookupElement implements Source.
func (m MapSource) LookupElement(_ context.Context, name string) (*Element, error) {
	return m[name], nil
}
