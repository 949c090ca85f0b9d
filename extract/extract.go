// CLAUDE:SUMMARY Structural extraction — one pre-order pass over a document tree producing per-occurrence local records.
// Package extract reads a parsed document tree once and records, for every
// element occurrence, its tag, attributes and first-level child tags.
//
// Occurrences are kept apart: three <server> elements yield three local
// records under "server". Merging them is the consolidator's job. Extraction
// touches no storage and cannot fail on a tree produced by doctree.
package extract

import "github.com/hazyhaar/xmlprofile/doctree"

// LocalRecord describes a single element occurrence.
type LocalRecord struct {
	Name string

	// Children lists the tags of the occurrence's first-level children in
	// document order, repeats included.
	Children []string

	// Attrs holds the attribute names and the values seen at this occurrence.
	Attrs []doctree.Attr
}

// Result is the output of one extraction pass.
type Result struct {
	// Root is the tag of the document's outermost element.
	Root string

	// Records maps an element name to its local records in pre-order.
	Records map[string][]LocalRecord
}

// Occurrences returns the total number of local records.
func (r *Result) Occurrences() int {
	n := 0
	for _, recs := range r.Records {
		n += len(recs)
	}
	return n
}

// Extract walks root depth-first in pre-order. A nil root yields an empty
// result with no root name.
func Extract(root *doctree.Element) *Result {
	res := &Result{Records: make(map[string][]LocalRecord)}
	if root == nil {
		return res
	}
	res.Root = root.Name

	// Explicit stack; children pushed in reverse to keep pre-order.
	stack := []*doctree.Element{root}
	for len(stack) > 0 {
		el := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		rec := LocalRecord{Name: el.Name}
		if len(el.Attrs) > 0 {
			rec.Attrs = append([]doctree.Attr(nil), el.Attrs...)
		}
		for _, c := range el.Children {
			rec.Children = append(rec.Children, c.Name)
		}

		res.Records[el.Name] = append(res.Records[el.Name], rec)

		for i := len(el.Children) - 1; i >= 0; i-- {
			stack = append(stack, el.Children[i])
		}
	}
	return res
}
