// CLAUDE:SUMMARY Profile handle — open/close lifecycle, union/replace mutations, sorted queries, LRU element cache, last-error surface.
// Package profile is the persistent knowledge base learned from XML
// documents: which elements exist, which children and attribute names they
// take, which values each attribute has had, and which elements were seen
// as document roots.
//
// Usage:
//
//	p, err := profile.Open(&profile.Config{DBPath: "config.profile"}, logger)
//	defer p.Close()
//	doc, _ := doctree.Parse(f)
//	p.Learn(ctx, doc, profile.LearnOptions{Source: f.Name()})
//	ok, _ := p.Check(ctx, other)
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hazyhaar/xmlprofile/compat"
	"github.com/hazyhaar/xmlprofile/dbopen"
	"github.com/hazyhaar/xmlprofile/idgen"
	"github.com/hazyhaar/xmlprofile/profile/internal/store"
	"github.com/hazyhaar/xmlprofile/valueset"
)

// Profile is an open profile database.
type Profile struct {
	store  *store.Store
	cache  *lru.Cache[string, *store.Element]
	logger *slog.Logger
	config *Config
	newID  idgen.Generator

	// mu serialises mutations so that batch and cascade steps of two
	// callers never interleave.
	mu sync.Mutex

	// cacheGen counts invalidations. A read only fills the cache when no
	// invalidation happened while it was reading the store.
	cacheMu  sync.Mutex
	cacheGen uint64

	errMu   sync.Mutex
	lastErr string
}

// Open opens (or creates) the profile at cfg.DBPath.
func Open(cfg *Config, logger *slog.Logger) (*Profile, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.ApplyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	s, err := store.Open(cfg.DBPath, dbopen.WithBusyTimeout(cfg.BusyTimeoutMS))
	if err != nil {
		return nil, &ConnectError{Path: cfg.DBPath, Cause: err}
	}
	return newProfile(s, cfg, logger), nil
}

func newProfile(s *store.Store, cfg *Config, logger *slog.Logger) *Profile {
	cache, err := lru.New[string, *store.Element](cfg.CacheSize)
	if err != nil {
		// Only reachable with a non-positive size, which ApplyDefaults rules out.
		panic(err)
	}
	return &Profile{
		store:  s,
		cache:  cache,
		logger: logger,
		config: cfg,
		newID:  idgen.Default,
	}
}

// Close closes the database.
func (p *Profile) Close() error {
	p.purge()
	return p.store.Close()
}

// Path returns the database path.
func (p *Profile) Path() string { return p.config.DBPath }

// Config returns the effective configuration.
func (p *Profile) Config() Config { return *p.config }

// LastError returns the message of the last failed operation, or "" if
// the last mutation succeeded.
func (p *Profile) LastError() string {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.lastErr
}

// record updates the last-error surface. Successful reads leave it alone;
// successful mutations clear it.
func (p *Profile) record(err error, mutation bool) error {
	if err == nil && !mutation {
		return nil
	}
	p.errMu.Lock()
	defer p.errMu.Unlock()
	if err != nil {
		p.lastErr = err.Error()
	} else {
		p.lastErr = ""
	}
	return err
}

func (p *Profile) mutate(op string, fn func() error, invalidate ...string) error {
	p.mu.Lock()
	err := fn()
	p.forget(invalidate...)
	p.mu.Unlock()
	if err != nil {
		err = fmt.Errorf("profile: %s: %w", op, err)
		p.logger.Warn("profile: operation failed", "op", op, "error", err)
	}
	return p.record(err, true)
}

func (p *Profile) query(op string, err error) error {
	if err != nil {
		err = fmt.Errorf("profile: %s: %w", op, err)
	}
	return p.record(err, false)
}

// --- mutations ---

// MergeElement unions children and attrs into the record for name, creating
// it when name is unknown.
func (p *Profile) MergeElement(ctx context.Context, name string, children, attrs valueset.Set) error {
	return p.mutate("merge element", func() error {
		return p.store.MergeElement(ctx, name, children, attrs)
	}, name)
}

// ReplaceElementChildren sets the children of name to exactly children.
func (p *Profile) ReplaceElementChildren(ctx context.Context, name string, children valueset.Set) error {
	return p.mutate("replace children", func() error {
		return p.store.ReplaceChildren(ctx, name, children)
	}, name)
}

// ReplaceElementAttributes sets the attribute names of name to exactly attrs.
func (p *Profile) ReplaceElementAttributes(ctx context.Context, name string, attrs valueset.Set) error {
	return p.mutate("replace attributes", func() error {
		return p.store.ReplaceAttributes(ctx, name, attrs)
	}, name)
}

// MergeAttributeValues unions values into the (attr, element) record.
func (p *Profile) MergeAttributeValues(ctx context.Context, element, attr string, values valueset.Set) error {
	return p.mutate("merge values", func() error {
		return p.store.MergeValues(ctx, element, attr, values)
	})
}

// ReplaceAttributeValues sets the (attr, element) record to exactly values.
func (p *Profile) ReplaceAttributeValues(ctx context.Context, element, attr string, values valueset.Set) error {
	return p.mutate("replace values", func() error {
		return p.store.ReplaceValues(ctx, element, attr, values)
	})
}

// RemoveElement deletes the record of name only. Use CascadeDelete to
// remove what depends on it.
func (p *Profile) RemoveElement(ctx context.Context, name string) error {
	return p.mutate("remove element", func() error {
		return p.store.DeleteElement(ctx, name)
	}, name)
}

// RemoveAttribute deletes the (attr, element) record and its values.
func (p *Profile) RemoveAttribute(ctx context.Context, element, attr string) error {
	return p.mutate("remove attribute", func() error {
		return p.store.DeleteAttribute(ctx, element, attr)
	})
}

// RemoveChildEdge drops child from parent's children. A missing edge is a
// no-op.
func (p *Profile) RemoveChildEdge(ctx context.Context, parent, child string) error {
	return p.mutate("remove edge", func() error {
		_, err := p.store.RemoveChildEdge(ctx, parent, child)
		return err
	}, parent)
}

// AddRoot records name as a known root.
func (p *Profile) AddRoot(ctx context.Context, name string) error {
	return p.mutate("add root", func() error { return p.store.AddRoot(ctx, name) })
}

// RemoveRoot forgets name as a root.
func (p *Profile) RemoveRoot(ctx context.Context, name string) error {
	return p.mutate("remove root", func() error { return p.store.RemoveRoot(ctx, name) })
}

// Normalize re-encodes every stored field. Returns the number of rows that
// changed; a profile written only through this package reports 0.
func (p *Profile) Normalize(ctx context.Context) (int, error) {
	var n int
	err := p.mutate("normalize", func() error {
		ne, err := p.store.NormalizeElements(ctx, nil)
		if err != nil {
			return err
		}
		na, err := p.store.NormalizeAttributes(ctx, nil)
		n = ne + na
		return err
	})
	p.purge()
	return n, err
}

// --- queries ---

// element reads name through the cache. The returned record is shared and
// must not be modified.
func (p *Profile) element(ctx context.Context, name string) (*store.Element, error) {
	p.cacheMu.Lock()
	e, ok := p.cache.Get(name)
	gen := p.cacheGen
	p.cacheMu.Unlock()
	if ok {
		return e, nil
	}
	e, err := p.store.GetElement(ctx, name)
	if err != nil {
		return nil, err
	}
	p.fill(name, e, gen)
	return e, nil
}

// fill caches e unless the cache was invalidated after gen was read.
func (p *Profile) fill(name string, e *store.Element, gen uint64) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	if p.cacheGen == gen {
		p.cache.Add(name, e)
	}
}

func (p *Profile) forget(names ...string) {
	if len(names) == 0 {
		return
	}
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	p.cacheGen++
	for _, name := range names {
		p.cache.Remove(name)
	}
}

func (p *Profile) purge() {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	p.cacheGen++
	p.cache.Purge()
}

// KnownElements returns every known element name, sorted.
func (p *Profile) KnownElements(ctx context.Context) ([]string, error) {
	names, err := p.store.ElementNames(ctx)
	return names, p.query("known elements", err)
}

// ChildrenOf returns the known children of element, sorted. Unknown
// elements have none.
func (p *Profile) ChildrenOf(ctx context.Context, element string) ([]string, error) {
	e, err := p.element(ctx, element)
	if err != nil {
		return nil, p.query("children", err)
	}
	if e == nil {
		return []string{}, nil
	}
	return e.Children.Sorted(), nil
}

// AttributesOf returns the known attribute names of element, sorted.
func (p *Profile) AttributesOf(ctx context.Context, element string) ([]string, error) {
	e, err := p.element(ctx, element)
	if err != nil {
		return nil, p.query("attributes", err)
	}
	if e == nil {
		return []string{}, nil
	}
	return e.Attributes.Sorted(), nil
}

// ValuesOf returns the known values of attr on element, sorted.
func (p *Profile) ValuesOf(ctx context.Context, element, attr string) ([]string, error) {
	vals, _, err := p.store.GetValues(ctx, element, attr)
	if err != nil {
		return nil, p.query("values", err)
	}
	return vals.Sorted(), nil
}

// KnownRoots returns every known root name, sorted.
func (p *Profile) KnownRoots(ctx context.Context) ([]string, error) {
	roots, err := p.store.Roots(ctx)
	return roots, p.query("roots", err)
}

// IsRoot reports whether name is a known root of this profile.
func (p *Profile) IsRoot(ctx context.Context, name string) (bool, error) {
	ok, err := p.store.HasRoot(ctx, name)
	return ok, p.query("is root", err)
}

// ParentsOf returns every element that lists child among its children,
// sorted.
func (p *Profile) ParentsOf(ctx context.Context, child string) ([]string, error) {
	parents, err := p.store.ParentsOf(ctx, child)
	return parents, p.query("parents", err)
}

// LookupElement implements compat.Source. The sets are copies.
func (p *Profile) LookupElement(ctx context.Context, name string) (*compat.Element, error) {
	e, err := p.element(ctx, name)
	if err != nil || e == nil {
		return nil, err
	}
	return &compat.Element{
		Children:   e.Children.Clone(),
		Attributes: e.Attributes.Clone(),
	}, nil
}

// IsKnownRoot reports whether the profile stored at path lists name as a
// root. The file is opened read-only and closed again; the caller's active
// profile is untouched.
func IsKnownRoot(ctx context.Context, path, name string) (bool, error) {
	s, err := store.OpenReadOnly(path)
	if err != nil {
		return false, &ConnectError{Path: path, Cause: err}
	}
	defer s.Close()
	ok, err := s.HasRoot(ctx, name)
	if err != nil {
		return false, fmt.Errorf("profile: root lookup in %s: %w", path, err)
	}
	return ok, nil
}
