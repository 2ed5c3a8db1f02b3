// Package text implements the Text object of the Strata data model: an
// immutable raw string together with a named mapping of annotation layers.
//
// Layers are built in isolation and attached with AddLayer, which validates
// name uniqueness and topology dependencies before any state changes, so a
// failed attach never leaves the text partially mutated.
package text

import (
	"sort"

	"github.com/strata-nlp/strata/core/errors"
	"github.com/strata-nlp/strata/core/layer"
)

// reservedNames are layer names that would collide with the Text's own
// surface and are never accepted.
var reservedNames = map[string]bool{
	"text":   true,
	"layers": true,
	"meta":   true,
}

// Text owns a raw string and its annotation layers.
type Text struct {
	raw    string
	layers map[string]*layer.Layer
	// resolvers maps layer name -> attribute -> name of the ancestor layer
	// declaring that attribute. Built at attach time.
	resolvers map[string]map[string]string
	// Meta holds free-form document metadata (source, ids, provenance).
	Meta map[string]string
}

// New creates a Text over the given raw string with no layers.
func New(raw string) *Text {
	return &Text{
		raw:       raw,
		layers:    make(map[string]*layer.Layer),
		resolvers: make(map[string]map[string]string),
		Meta:      make(map[string]string),
	}
}

// Raw returns the raw text string.
func (t *Text) Raw() string { return t.raw }

// Len returns the length of the raw string in bytes.
func (t *Text) Len() int { return len(t.raw) }

// Layer returns an attached layer by name.
func (t *Text) Layer(name string) (*layer.Layer, bool) {
	l, ok := t.layers[name]
	return l, ok
}

// MustLayer returns an attached layer and panics when absent.
// Intended for tests and code paths that have already checked HasLayer.
func (t *Text) MustLayer(name string) *layer.Layer {
	l, ok := t.layers[name]
	if !ok {
		panic(errors.NewNotFound("layer", name))
	}
	return l
}

// HasLayer reports whether a layer with the given name is attached.
func (t *Text) HasLayer(name string) bool {
	_, ok := t.layers[name]
	return ok
}

// LayerNames returns the attached layer names in sorted order. Iteration
// over a text's layers is deterministic through this method.
func (t *Text) LayerNames() []string {
	names := make([]string, 0, len(t.layers))
	for name := range t.layers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LayerCount returns the number of attached layers.
func (t *Text) LayerCount() int { return len(t.layers) }

// AddLayer attaches a layer. The layer name must be a free, non-reserved
// identifier; dependency layers must already be attached and every span must
// align with them. Validation completes before any mutation: on error the
// text and the layer are unchanged.
func (t *Text) AddLayer(l *layer.Layer) error {
	name := l.Name()
	if reservedNames[name] {
		return &errors.NameCollisionError{Name: name}
	}
	if _, exists := t.layers[name]; exists {
		return &errors.NameCollisionError{Name: name}
	}
	if err := t.checkBounds(l); err != nil {
		return err
	}
	if err := l.ValidateAttached(t); err != nil {
		return err
	}
	if err := l.CheckSpanConsistency(); err != nil {
		return err
	}
	l.Bind(t)
	t.layers[name] = l
	t.resolvers[name] = t.buildResolver(l)
	return nil
}

// checkBounds verifies every span lies inside the raw string.
func (t *Text) checkBounds(l *layer.Layer) error {
	for i := 0; i < l.Len(); i++ {
		s := l.At(i)
		if s.End() > len(t.raw) {
			return &errors.ConsistencyError{
				Layer: l.Name(), Start: s.Start(), End: s.End(),
				Message: "span extends past the end of the text",
			}
		}
	}
	return nil
}

// buildResolver computes the foreign-attribute table for a layer: for each
// ancestor on the parent/enveloping chain, the ancestor's attributes that
// the layer itself does not shadow. Resolution is explicit and fixed at
// attach time rather than looked up through dynamic fallback chains.
func (t *Text) buildResolver(l *layer.Layer) map[string]string {
	table := make(map[string]string)
	seen := map[string]bool{l.Name(): true}
	for cur := l; cur.Topology().Dependent(); {
		base, ok := t.layers[cur.Topology().Base]
		if !ok || seen[base.Name()] {
			break
		}
		seen[base.Name()] = true
		for _, attr := range base.Attributes() {
			if _, shadowed := table[attr]; !shadowed && !l.HasAttribute(attr) {
				table[attr] = base.Name()
			}
		}
		cur = base
	}
	return table
}

// ResolveAttribute reports which ancestor layer declares a foreign attribute
// reachable from the named layer's dependency chain.
func (t *Text) ResolveAttribute(layerName, attr string) (string, bool) {
	table, ok := t.resolvers[layerName]
	if !ok {
		return "", false
	}
	src, ok := table[attr]
	return src, ok
}

// ForeignValue fetches the value of a foreign attribute for a span of the
// named layer, following the resolver table to the declaring ancestor and
// matching spans by location.
func (t *Text) ForeignValue(layerName string, s *layer.Span, attr string) (interface{}, error) {
	src, ok := t.ResolveAttribute(layerName, attr)
	if !ok {
		return nil, &errors.UnknownAttributeError{Layer: layerName, Attribute: attr}
	}
	ancestor := t.layers[src]
	target, found := ancestor.Get(s.Base())
	if !found {
		return nil, &errors.NoMatchingParentSpanError{
			Layer: layerName, Parent: src, Start: s.Start(), End: s.End(),
		}
	}
	return target.Get(attr)
}

// Dependents returns the names of attached layers that directly depend on
// the named layer, in sorted order.
func (t *Text) Dependents(name string) []string {
	var out []string
	for depName, l := range t.layers {
		if l.Topology().Dependent() && l.Topology().Base == name {
			out = append(out, depName)
		}
	}
	sort.Strings(out)
	return out
}

// RemoveLayer detaches a layer. With cascade false, removal fails while
// dependent layers are attached; with cascade true, all transitive
// dependents are removed as well.
func (t *Text) RemoveLayer(name string, cascade bool) error {
	l, ok := t.layers[name]
	if !ok {
		return errors.NewNotFound("layer", name)
	}
	deps := t.Dependents(name)
	if len(deps) > 0 && !cascade {
		return errors.Wrapf(errors.ErrInvalidInput,
			"layer %q has dependent layers %v; remove them first or cascade", name, deps)
	}
	for _, dep := range deps {
		if err := t.RemoveLayer(dep, true); err != nil {
			return err
		}
	}
	delete(t.layers, name)
	delete(t.resolvers, name)
	l.Bind(nil)
	return nil
}
