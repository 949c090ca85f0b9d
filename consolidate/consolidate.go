// CLAUDE:SUMMARY Merges per-occurrence extraction records into one unioned record per element name.
// Package consolidate folds the local records of one extraction pass into a
// single record per element name. The fold is a set union, so the outcome
// does not depend on the order records were encountered in.
package consolidate

import (
	"sort"

	"github.com/hazyhaar/xmlprofile/extract"
	"github.com/hazyhaar/xmlprofile/valueset"
)

// Record is the consolidated view of one element name within one document.
type Record struct {
	Name       string
	Children   valueset.Set
	Attributes valueset.Set

	// Values maps an attribute name to every value it took on this element.
	Values map[string]valueset.Set
}

// Batch is the consolidated output of one extraction pass.
type Batch struct {
	Root    string
	Records []Record // sorted by Name
}

// Len returns the number of distinct element names.
func (b *Batch) Len() int { return len(b.Records) }

// Lookup returns the record for name.
func (b *Batch) Lookup(name string) (Record, bool) {
	i := sort.Search(len(b.Records), func(i int) bool { return b.Records[i].Name >= name })
	if i < len(b.Records) && b.Records[i].Name == name {
		return b.Records[i], true
	}
	return Record{}, false
}

// Consolidate merges res into one record per element name.
func Consolidate(res *extract.Result) *Batch {
	b := &Batch{Root: res.Root}
	names := make([]string, 0, len(res.Records))
	for name := range res.Records {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b.Records = append(b.Records, Merge(name, res.Records[name]))
	}
	return b
}

// Merge unions the children, attribute names and attribute values of recs.
// A single record is converted without a merge loop.
func Merge(name string, recs []extract.LocalRecord) Record {
	if len(recs) == 1 {
		return fromLocal(name, recs[0])
	}
	out := Record{
		Name:       name,
		Children:   valueset.New(),
		Attributes: valueset.New(),
		Values:     make(map[string]valueset.Set),
	}
	for _, r := range recs {
		merge(&out, r)
	}
	return out
}

func fromLocal(name string, r extract.LocalRecord) Record {
	out := Record{
		Name:       name,
		Children:   valueset.Of(r.Children...),
		Attributes: valueset.New(),
		Values:     make(map[string]valueset.Set, len(r.Attrs)),
	}
	for _, a := range r.Attrs {
		addValue(&out, a.Name, a.Value)
	}
	return out
}

func merge(out *Record, r extract.LocalRecord) {
	for _, c := range r.Children {
		out.Children.Add(c)
	}
	for _, a := range r.Attrs {
		addValue(out, a.Name, a.Value)
	}
}

func addValue(out *Record, attr, value string) {
	if attr == "" {
		return
	}
	out.Attributes.Add(attr)
	vs, ok := out.Values[attr]
	if !ok {
		vs = valueset.New()
		out.Values[attr] = vs
	}
	vs.Add(value)
}
