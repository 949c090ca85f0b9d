package profile

import (
	"context"

	"github.com/hazyhaar/xmlprofile/compat"
	"github.com/hazyhaar/xmlprofile/profile/internal/store"
)

// Ingestion is the log row of one Learn run.
type Ingestion = store.Ingestion

// Ingestion statuses.
const (
	IngestionRunning = store.IngestionRunning
	IngestionDone    = store.IngestionDone
	IngestionFailed  = store.IngestionFailed
)

// Edge is a parent/child pair.
type Edge = compat.Edge

// Stats counts the records of a profile.
type Stats struct {
	Path       string `json:"path"`
	Elements   int    `json:"elements"`
	Attributes int    `json:"attributes"`
	Roots      int    `json:"roots"`
	Ingestions int    `json:"ingestions"`
}

// ElementInfo is an element record with sorted sets.
type ElementInfo struct {
	Name       string   `json:"name"`
	Children   []string `json:"children"`
	Attributes []string `json:"attributes"`
}

// AttributeInfo is an attribute record with sorted values.
type AttributeInfo struct {
	Element   string   `json:"element"`
	Attribute string   `json:"attribute"`
	Values    []string `json:"values"`
}

// Snapshot is the whole content of a profile.
type Snapshot struct {
	Roots      []string        `json:"roots"`
	Elements   []ElementInfo   `json:"elements"`
	Attributes []AttributeInfo `json:"attributes"`
}

// Stats returns record counts.
func (p *Profile) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Path: p.config.DBPath}
	var err error
	if st.Elements, err = p.store.CountElements(ctx); err != nil {
		return nil, p.query("stats", err)
	}
	if st.Attributes, err = p.store.CountAttributes(ctx); err != nil {
		return nil, p.query("stats", err)
	}
	roots, err := p.store.Roots(ctx)
	if err != nil {
		return nil, p.query("stats", err)
	}
	st.Roots = len(roots)
	if st.Ingestions, err = p.store.CountIngestions(ctx); err != nil {
		return nil, p.query("stats", err)
	}
	return st, nil
}

// Snapshot reads every record, sorted by key.
func (p *Profile) Snapshot(ctx context.Context) (*Snapshot, error) {
	roots, err := p.store.Roots(ctx)
	if err != nil {
		return nil, p.query("snapshot", err)
	}
	elems, err := p.store.Elements(ctx)
	if err != nil {
		return nil, p.query("snapshot", err)
	}
	attrs, err := p.store.Attributes(ctx)
	if err != nil {
		return nil, p.query("snapshot", err)
	}

	snap := &Snapshot{
		Roots:      roots,
		Elements:   make([]ElementInfo, 0, len(elems)),
		Attributes: make([]AttributeInfo, 0, len(attrs)),
	}
	for _, e := range elems {
		snap.Elements = append(snap.Elements, ElementInfo{
			Name:       e.Name,
			Children:   e.Children.Sorted(),
			Attributes: e.Attributes.Sorted(),
		})
	}
	for _, a := range attrs {
		snap.Attributes = append(snap.Attributes, AttributeInfo{
			Element:   a.Element,
			Attribute: a.Attribute,
			Values:    a.Values.Sorted(),
		})
	}
	return snap, nil
}

// Ingestions lists the most recent Learn runs first. limit <= 0 means all.
func (p *Profile) Ingestions(ctx context.Context, limit int) ([]*Ingestion, error) {
	list, err := p.store.ListIngestions(ctx, limit)
	if err != nil {
		return nil, p.query("ingestions", err)
	}
	if list == nil {
		list = []*Ingestion{}
	}
	return list, nil
}
