// CLAUDE:SUMMARY Cascading element delete and edge unlink over the learned children graph, guarded by the ancestor chain.
package profile

import (
	"context"
	"fmt"
	"slices"
)

// CascadeResult lists what a cascade removed.
type CascadeResult struct {
	// Deleted holds the element records removed, in removal order.
	Deleted []string `json:"deleted"`
	// Unlinked holds the edges removed from elements that survived.
	Unlinked []Edge `json:"unlinked"`
}

// CascadeDelete removes name and everything that only exists because of it:
//
//  1. every child listed only under name (or under elements this cascade
//     is already removing) is cascade-deleted first;
//  2. the (*, name) attribute records are removed;
//  3. the element record is removed;
//  4. name leaves the root set;
//  5. name is swept from every remaining children set.
//
// A child that is also a known root, or that is listed under an element
// outside the cascade, survives with only the edge removed. A self-listed
// element is never recursed into.
func (p *Profile) CascadeDelete(ctx context.Context, name string) (*CascadeResult, error) {
	res := &CascadeResult{Deleted: []string{}, Unlinked: []Edge{}}
	err := p.mutate("cascade delete", func() error {
		return p.cascade(ctx, name, nil, res)
	})
	p.purge()
	res.Unlinked = survivors(res)
	if err == nil {
		p.logger.Info("profile: cascade delete", "element", name,
			"deleted", len(res.Deleted), "unlinked", len(res.Unlinked))
	}
	return res, err
}

// UnlinkChild removes the parent→child edge and, when nothing else lists
// child and it is not a known root, cascade-deletes child. An edge the
// profile does not hold is a no-op.
func (p *Profile) UnlinkChild(ctx context.Context, parent, child string) (*CascadeResult, error) {
	res := &CascadeResult{Deleted: []string{}, Unlinked: []Edge{}}
	err := p.mutate("unlink child", func() error {
		removed, err := p.store.RemoveChildEdge(ctx, parent, child)
		if err != nil {
			return err
		}
		if !removed {
			return nil
		}
		res.Unlinked = append(res.Unlinked, Edge{Parent: parent, Child: child})
		orphan, err := p.orphaned(ctx, child, nil)
		if err != nil || !orphan {
			return err
		}
		return p.cascade(ctx, child, nil, res)
	})
	p.purge()
	res.Unlinked = survivors(res)
	return res, err
}

// cascade deletes name. ancestors is the chain of elements whose cascade is
// in progress above it.
func (p *Profile) cascade(ctx context.Context, name string, ancestors []string, res *CascadeResult) error {
	if len(ancestors) >= p.config.MaxDepth {
		return &DepthError{Name: name, Depth: p.config.MaxDepth}
	}
	e, err := p.store.GetElement(ctx, name)
	if err != nil {
		return err
	}

	if e != nil {
		chain := append(slices.Clone(ancestors), name)
		for _, child := range e.Children.Sorted() {
			// Self-reference and back-edges into the chain are terminal: the
			// element is already being deleted.
			if child == name || slices.Contains(ancestors, child) {
				continue
			}
			orphan, err := p.orphaned(ctx, child, chain)
			if err != nil {
				return err
			}
			if !orphan {
				continue
			}
			if err := p.cascade(ctx, child, chain, res); err != nil {
				return err
			}
		}
	}

	if _, err := p.store.DeleteAttributesOf(ctx, name); err != nil {
		return fmt.Errorf("attributes of %s: %w", name, err)
	}
	if e != nil {
		if err := p.store.DeleteElement(ctx, name); err != nil {
			return fmt.Errorf("element %s: %w", name, err)
		}
		res.Deleted = append(res.Deleted, name)
	}
	if err := p.store.RemoveRoot(ctx, name); err != nil {
		return fmt.Errorf("root %s: %w", name, err)
	}
	touched, err := p.store.SweepChild(ctx, name)
	if err != nil {
		return fmt.Errorf("sweep %s: %w", name, err)
	}
	for _, parent := range touched {
		res.Unlinked = append(res.Unlinked, Edge{Parent: parent, Child: name})
	}
	p.logger.Debug("profile: cascade step", "element", name, "depth", len(ancestors))
	return nil
}

// orphaned reports whether child has a record, is not a known root, and is
// listed under no element other than itself and those in deleting.
func (p *Profile) orphaned(ctx context.Context, child string, deleting []string) (bool, error) {
	e, err := p.store.GetElement(ctx, child)
	if err != nil || e == nil {
		return false, err
	}
	root, err := p.store.HasRoot(ctx, child)
	if err != nil || root {
		return false, err
	}
	parents, err := p.store.ParentsOf(ctx, child)
	if err != nil {
		return false, err
	}
	for _, parent := range parents {
		if parent != child && !slices.Contains(deleting, parent) {
			return false, nil
		}
	}
	return true, nil
}

// survivors drops edges whose parent was itself deleted later in the run.
func survivors(res *CascadeResult) []Edge {
	out := []Edge{}
	for _, e := range res.Unlinked {
		if !slices.Contains(res.Deleted, e.Parent) {
			out = append(out, e)
		}
	}
	return out
}
