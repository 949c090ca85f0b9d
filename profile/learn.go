// CLAUDE:SUMMARY Batch ingestion of one document — root, element merge, value merge, normalization — with an ingestion log row.
package profile

import (
	"context"
	"sort"

	"github.com/hazyhaar/xmlprofile/compat"
	"github.com/hazyhaar/xmlprofile/consolidate"
	"github.com/hazyhaar/xmlprofile/doctree"
	"github.com/hazyhaar/xmlprofile/extract"
	"github.com/hazyhaar/xmlprofile/profile/internal/store"
)

// LearnOptions tunes a Learn run.
type LearnOptions struct {
	// Source names the document in the ingestion log (file path, URL).
	Source string
	// Progress is called after each completed step.
	Progress func(step string)
}

// Learn merges everything doc shows into the profile: its root name, every
// element's children and attribute names, and every attribute value.
//
// The run is a sequence of steps, each committed on its own. ctx is only
// consulted between steps, and the normalization step is never cut short.
// On failure the returned *BatchError names the step; earlier steps stay
// applied and re-running Learn with the same document converges.
//
// A document nested deeper than Config.MaxDepth is refused with a
// *compat.DepthError before anything is written, the same bound Check and
// Diff apply.
func (p *Profile) Learn(ctx context.Context, doc *doctree.Element, opts LearnOptions) (*Ingestion, error) {
	if doc == nil {
		return nil, p.record(ErrNilDocument, true)
	}
	if deep := doc.DeeperThan(p.config.MaxDepth); deep != nil {
		return nil, p.record(&compat.DepthError{Element: deep.Name, MaxDepth: p.config.MaxDepth}, true)
	}
	local := extract.Extract(doc)
	batch := consolidate.Consolidate(local)

	p.mu.Lock()
	defer p.mu.Unlock()

	in := &store.Ingestion{
		ID:       p.newID(),
		Source:   opts.Source,
		Root:     batch.Root,
		Elements: batch.Len(),
	}
	if err := p.store.BeginIngestion(ctx, in); err != nil {
		return nil, p.record(&BatchError{Step: StepBegin, Cause: err}, true)
	}

	runErr := p.runBatch(ctx, batch, opts.Progress)
	p.purge()

	if err := p.store.FinishIngestion(context.WithoutCancel(ctx), in, runErr); err != nil {
		p.logger.Warn("profile: ingestion log not updated", "id", in.ID, "error", err)
	}
	if runErr != nil {
		p.logger.Warn("profile: batch aborted", "id", in.ID, "source", in.Source, "error", runErr)
		return in, p.record(runErr, true)
	}
	p.logger.Info("profile: learned", "id", in.ID, "source", in.Source,
		"root", in.Root, "elements", in.Elements, "occurrences", local.Occurrences())
	return in, p.record(nil, true)
}

func (p *Profile) runBatch(ctx context.Context, b *consolidate.Batch, progress func(string)) error {
	// Writes inside a step ignore cancellation; only step boundaries honour it.
	stepCtx := context.WithoutCancel(ctx)

	steps := []struct {
		name string
		run  func() error
	}{
		{StepRoot, func() error { return p.learnRoot(stepCtx, b) }},
		{StepElements, func() error { return p.learnElements(stepCtx, b) }},
		{StepValues, func() error { return p.learnValues(stepCtx, b) }},
		{StepNormalize, func() error { return p.normalizeBatch(stepCtx, b) }},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return &BatchError{Step: s.name, Cause: err}
		}
		if err := s.run(); err != nil {
			return err
		}
		p.logger.Debug("profile: batch step done", "step", s.name, "elements", b.Len())
		if progress != nil {
			progress(s.name)
		}
	}
	return nil
}

func (p *Profile) learnRoot(ctx context.Context, b *consolidate.Batch) error {
	if b.Root == "" {
		return nil
	}
	if err := p.store.AddRoot(ctx, b.Root); err != nil {
		return &BatchError{Step: StepRoot, Element: b.Root, Cause: err}
	}
	return nil
}

func (p *Profile) learnElements(ctx context.Context, b *consolidate.Batch) error {
	for _, r := range b.Records {
		if err := p.store.MergeElement(ctx, r.Name, r.Children, r.Attributes); err != nil {
			return &BatchError{Step: StepElements, Element: r.Name, Cause: err}
		}
	}
	return nil
}

func (p *Profile) learnValues(ctx context.Context, b *consolidate.Batch) error {
	for _, r := range b.Records {
		for _, attr := range sortedKeys(r) {
			if err := p.store.MergeValues(ctx, r.Name, attr, r.Values[attr]); err != nil {
				return &BatchError{Step: StepValues, Element: r.Name, Attribute: attr, Cause: err}
			}
		}
	}
	return nil
}

// normalizeBatch re-encodes every field the batch touched.
func (p *Profile) normalizeBatch(ctx context.Context, b *consolidate.Batch) error {
	names := make([]string, 0, b.Len())
	var keys []store.AttributeKey
	for _, r := range b.Records {
		names = append(names, r.Name)
		for _, attr := range sortedKeys(r) {
			keys = append(keys, store.AttributeKey{Element: r.Name, Attribute: attr})
		}
	}
	ne, err := p.store.NormalizeElements(ctx, names)
	if err != nil {
		return &BatchError{Step: StepNormalize, Cause: err}
	}
	if keys == nil {
		keys = []store.AttributeKey{}
	}
	na, err := p.store.NormalizeAttributes(ctx, keys)
	if err != nil {
		return &BatchError{Step: StepNormalize, Cause: err}
	}
	if ne+na > 0 {
		p.logger.Warn("profile: normalization rewrote rows", "elements", ne, "attributes", na)
	}
	return nil
}

func sortedKeys(r consolidate.Record) []string {
	keys := make([]string, 0, len(r.Values))
	for k := range r.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Check reports whether doc only uses known elements, edges and attribute
// names. It stops at the first unknown fact.
func (p *Profile) Check(ctx context.Context, doc *doctree.Element) (bool, error) {
	if doc == nil {
		return false, p.query("check", ErrNilDocument)
	}
	ok, err := compat.Check(ctx, p, doc, compat.WithMaxDepth(p.config.MaxDepth))
	return ok, p.query("check", err)
}

// Diff lists every unknown element, edge and attribute name in doc.
func (p *Profile) Diff(ctx context.Context, doc *doctree.Element) (*compat.Report, error) {
	if doc == nil {
		return nil, p.query("diff", ErrNilDocument)
	}
	r, err := compat.Diff(ctx, p, doc, compat.WithMaxDepth(p.config.MaxDepth))
	return r, p.query("diff", err)
}
