// Package layer implements the named annotation layers of the Strata data
// model: ordered, schema-typed collections of span entries in one of four
// topologies (independent, parent-attached, enveloping, fragment).
//
// A layer is built in isolation, populated with spans and annotations, and
// then attached to a text.Text, which binds it and validates its topology
// against the layers it depends on. Span entries are kept strictly increasing
// by (start, end) with no duplicate locations; ambiguity is expressed by
// multiple annotations on one entry, never by duplicate entries.
package layer

import (
	"fmt"
	"sort"
	"unicode"

	"github.com/strata-nlp/strata/core/errors"
	"github.com/strata-nlp/strata/core/span"
)

// TextSource is the view of an owning text a bound layer needs: the raw
// string and access to sibling layers. text.Text implements it.
type TextSource interface {
	// Raw returns the raw text string.
	Raw() string
	// Layer returns an attached layer by name.
	Layer(name string) (*Layer, bool)
}

// Def describes a layer to be created.
type Def struct {
	// Name is the layer name, a valid identifier, unique per text.
	Name string
	// Attributes is the ordered, immutable attribute schema.
	Attributes []string
	// Ambiguous allows multiple annotations per span location.
	Ambiguous bool
	// Topology is the layer's topology tag. Zero value means independent.
	Topology Topology
	// Defaults maps attribute names to the value returned for attributes a
	// caller left unset. Unlisted attributes default to nil.
	Defaults map[string]interface{}
}

// Layer is a named, ordered collection of span entries with annotations.
type Layer struct {
	name       string
	attributes []string
	attrIndex  map[string]int
	ambiguous  bool
	topology   Topology
	defaults   map[string]interface{}
	spans      []*Span
	source     TextSource // nil until attached
}

// New creates an empty, unbound layer from a definition.
func New(def Def) (*Layer, error) {
	if !IsIdentifier(def.Name) {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "layer name %q is not a valid identifier", def.Name)
	}
	if def.Topology.Kind == "" {
		def.Topology = Independent()
	}
	if err := def.Topology.validate(); err != nil {
		return nil, errors.Wrapf(err, "layer %q", def.Name)
	}
	if def.Topology.Base == def.Name {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "layer %q cannot depend on itself", def.Name)
	}
	attrIndex := make(map[string]int, len(def.Attributes))
	attributes := make([]string, len(def.Attributes))
	for i, attr := range def.Attributes {
		if !IsIdentifier(attr) {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "layer %q: attribute %q is not a valid identifier", def.Name, attr)
		}
		if _, dup := attrIndex[attr]; dup {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "layer %q: duplicate attribute %q", def.Name, attr)
		}
		attrIndex[attr] = i
		attributes[i] = attr
	}
	defaults := make(map[string]interface{}, len(def.Defaults))
	for k, v := range def.Defaults {
		if _, ok := attrIndex[k]; !ok {
			return nil, &errors.UnknownAttributeError{Layer: def.Name, Attribute: k}
		}
		defaults[k] = v
	}
	return &Layer{
		name:       def.Name,
		attributes: attributes,
		attrIndex:  attrIndex,
		ambiguous:  def.Ambiguous,
		topology:   def.Topology,
		defaults:   defaults,
	}, nil
}

// MustNew creates a layer and panics on an invalid definition.
// Intended for tests and static setup code.
func MustNew(def Def) *Layer {
	l, err := New(def)
	if err != nil {
		panic(err)
	}
	return l
}

// Name returns the layer name.
func (l *Layer) Name() string { return l.name }

// Def returns the layer's definition: schema, ambiguity, topology and
// defaults. Useful for building a derived layer with the same shape.
func (l *Layer) Def() Def {
	defaults := make(map[string]interface{}, len(l.defaults))
	for k, v := range l.defaults {
		defaults[k] = v
	}
	return Def{
		Name:       l.name,
		Attributes: l.Attributes(),
		Ambiguous:  l.ambiguous,
		Topology:   l.topology,
		Defaults:   defaults,
	}
}

// Attributes returns the declared attribute names in schema order.
func (l *Layer) Attributes() []string {
	out := make([]string, len(l.attributes))
	copy(out, l.attributes)
	return out
}

// HasAttribute reports whether the layer declares attr.
func (l *Layer) HasAttribute(attr string) bool {
	_, ok := l.attrIndex[attr]
	return ok
}

// Default returns the configured default value for a declared attribute.
func (l *Layer) Default(attr string) interface{} { return l.defaults[attr] }

// Ambiguous reports whether span locations may hold multiple annotations.
func (l *Layer) Ambiguous() bool { return l.ambiguous }

// Topology returns the layer's topology tag.
func (l *Layer) Topology() Topology { return l.topology }

// Bound reports whether the layer is attached to a text.
func (l *Layer) Bound() bool { return l.source != nil }

// Bind attaches the layer to a text source. It is called by text.Text during
// AddLayer; other callers should attach through the Text.
func (l *Layer) Bind(src TextSource) { l.source = src }

// Len returns the number of span entries.
func (l *Layer) Len() int { return len(l.spans) }

// At returns the i-th span entry in (start, end) order.
func (l *Layer) At(i int) *Span { return l.spans[i] }

// Spans returns the span entries in order. The slice is a copy.
func (l *Layer) Spans() []*Span {
	out := make([]*Span, len(l.spans))
	copy(out, l.spans)
	return out
}

// Get returns the span entry at the exact (start, end) location of base.
func (l *Layer) Get(base span.BaseSpan) (*Span, bool) {
	i, found := l.locate(base)
	if !found {
		return nil, false
	}
	return l.spans[i], true
}

// raw returns the owning text's string, failing when unbound.
func (l *Layer) raw() (string, error) {
	if l.source == nil {
		return "", &errors.UnboundError{What: "layer", Name: l.name}
	}
	return l.source.Raw(), nil
}

// locate finds the insertion index of base by (start, end) and whether an
// entry at the same location already exists.
func (l *Layer) locate(base span.BaseSpan) (int, bool) {
	i := sort.Search(len(l.spans), func(i int) bool {
		return span.Compare(l.spans[i].base, base) >= 0
	})
	if i < len(l.spans) && span.SameLocation(l.spans[i].base, base) {
		return i, true
	}
	return i, false
}

// AddSpan adds an elementary span with one annotation, built from the given
// attribute values. Undeclared value keys fail with an
// AttributeMismatchError; unset declared attributes take the layer default.
func (l *Layer) AddSpan(start, end int, values map[string]interface{}) (*Span, error) {
	base, err := span.NewElementary(start, end)
	if err != nil {
		return nil, err
	}
	return l.AddAnnotation(base, values)
}

// AddEnvelopingSpan adds a composite span over the given children with one
// annotation. It fails with a ChildOrderError when the children are not
// strictly increasing and non-overlapping, and computes the composite
// (start, end) automatically. The layer must have enveloping topology.
func (l *Layer) AddEnvelopingSpan(children []span.Elementary, values map[string]interface{}) (*Span, error) {
	if l.topology.Kind != KindEnveloping {
		return nil, errors.Wrapf(errors.ErrInvalidInput,
			"layer %q has %s topology; enveloping spans are not allowed", l.name, l.topology.Kind)
	}
	base, err := span.NewEnveloping(children)
	if err != nil {
		return nil, err
	}
	return l.AddAnnotation(base, values)
}

// AddAnnotation adds an annotation at the given location. If the location is
// free a new span entry is inserted at its sorted position; if occupied, the
// annotation is appended on ambiguous layers and rejected with a
// DuplicateSpanError on unambiguous ones.
func (l *Layer) AddAnnotation(base span.BaseSpan, values map[string]interface{}) (*Span, error) {
	if err := l.checkShape(base); err != nil {
		return nil, err
	}
	if err := l.checkValues(values); err != nil {
		return nil, err
	}
	if l.Bound() {
		if err := l.checkAlignment(base); err != nil {
			return nil, err
		}
	}
	ann := newAnnotation(l.attributes, values, l.defaults)
	i, found := l.locate(base)
	if found {
		if !l.ambiguous {
			return nil, &errors.DuplicateSpanError{Layer: l.name, Start: base.Start(), End: base.End()}
		}
		s := l.spans[i]
		s.addAnnotation(ann)
		return s, nil
	}
	s := &Span{base: base, annotations: []*Annotation{ann}, layer: l}
	l.spans = append(l.spans, nil)
	copy(l.spans[i+1:], l.spans[i:])
	l.spans[i] = s
	return s, nil
}

// checkShape rejects base spans whose kind does not match the topology:
// enveloping layers hold enveloping spans, all others hold elementary spans.
func (l *Layer) checkShape(base span.BaseSpan) error {
	if l.topology.Kind == KindEnveloping && !base.IsEnveloping() {
		return errors.Wrapf(errors.ErrInvalidInput,
			"layer %q is enveloping; elementary spans are not allowed", l.name)
	}
	if l.topology.Kind != KindEnveloping && base.IsEnveloping() {
		return errors.Wrapf(errors.ErrInvalidInput,
			"layer %q is not enveloping; composite spans are not allowed", l.name)
	}
	return nil
}

// checkValues rejects undeclared attribute keys.
func (l *Layer) checkValues(values map[string]interface{}) error {
	var extra []string
	for k := range values {
		if !l.HasAttribute(k) {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return &errors.AttributeMismatchError{Layer: l.name, Extra: extra}
	}
	return nil
}

// checkAlignment validates one base span against the owning text: the span
// must lie inside the raw string, and for dependent topologies it must align
// with the base layer. Callable only while bound; attach-time validation
// applies it to all spans.
func (l *Layer) checkAlignment(base span.BaseSpan) error {
	if base.End() > len(l.source.Raw()) {
		return &errors.ConsistencyError{
			Layer: l.name, Start: base.Start(), End: base.End(),
			Message: "span extends past the end of the text",
		}
	}
	if !l.topology.Dependent() {
		return nil
	}
	dep, ok := l.source.Layer(l.topology.Base)
	if !ok {
		return &errors.MissingLayerError{Layer: l.name, Requires: l.topology.Base, Role: string(l.topology.Kind)}
	}
	switch l.topology.Kind {
	case KindParent:
		if _, found := dep.Get(base); !found {
			return &errors.NoMatchingParentSpanError{
				Layer: l.name, Parent: dep.name, Start: base.Start(), End: base.End(),
			}
		}
	case KindEnveloping:
		env := base.(span.Enveloping)
		for _, child := range env.Children() {
			if _, found := dep.Get(child); !found {
				return &errors.ConsistencyError{
					Layer: l.name, Start: base.Start(), End: base.End(),
					Message: fmt.Sprintf("child %v is not a span of enveloped layer %q", child, dep.name),
				}
			}
		}
	case KindFragment:
		if !dep.covers(base) {
			return &errors.ConsistencyError{
				Layer: l.name, Start: base.Start(), End: base.End(),
				Message: fmt.Sprintf("fragment is not contained in any span of layer %q", dep.name),
			}
		}
	}
	return nil
}

// covers reports whether some span of the layer fully contains base.
func (l *Layer) covers(base span.BaseSpan) bool {
	for _, s := range l.spans {
		if s.Start() <= base.Start() && base.End() <= s.End() {
			return true
		}
		if s.Start() > base.Start() {
			break
		}
	}
	return false
}

// ValidateAttached runs the full dependency validation of the layer against
// an owning text source: base layer presence and per-span alignment.
// text.Text calls it before binding so that attachment is all-or-nothing.
func (l *Layer) ValidateAttached(src TextSource) error {
	if !l.topology.Dependent() {
		return nil
	}
	if _, ok := src.Layer(l.topology.Base); !ok {
		return &errors.MissingLayerError{Layer: l.name, Requires: l.topology.Base, Role: string(l.topology.Kind)}
	}
	saved := l.source
	l.source = src
	defer func() { l.source = saved }()
	for _, s := range l.spans {
		if err := l.checkAlignment(s.base); err != nil {
			return err
		}
	}
	return nil
}

// Slice returns a new layer holding the span entries [i, j) of this layer.
// The entries are shared; the schema and binding are inherited.
func (l *Layer) Slice(i, j int) *Layer {
	view := l.emptyCopy()
	view.spans = append(view.spans, l.spans[i:j]...)
	return view
}

// Filter returns a new layer with the entries satisfying pred, in order.
// An empty result is a valid empty layer, not an error.
func (l *Layer) Filter(pred func(*Span) bool) *Layer {
	view := l.emptyCopy()
	for _, s := range l.spans {
		if pred(s) {
			view.spans = append(view.spans, s)
		}
	}
	return view
}

// FilterMask returns a new layer with the entries selected by a boolean
// mask. The mask length must equal Len.
func (l *Layer) FilterMask(mask []bool) (*Layer, error) {
	if len(mask) != len(l.spans) {
		return nil, errors.Wrapf(errors.ErrInvalidInput,
			"layer %q: mask length %d does not match span count %d", l.name, len(mask), len(l.spans))
	}
	view := l.emptyCopy()
	for i, keep := range mask {
		if keep {
			view.spans = append(view.spans, l.spans[i])
		}
	}
	return view, nil
}

// emptyCopy returns a spanless layer with the same schema and binding.
func (l *Layer) emptyCopy() *Layer {
	return &Layer{
		name:       l.name,
		attributes: l.attributes,
		attrIndex:  l.attrIndex,
		ambiguous:  l.ambiguous,
		topology:   l.topology,
		defaults:   l.defaults,
		source:     l.source,
	}
}

// AttributeValues returns, in span order, the value of a declared attribute
// per span entry, read from each entry's first annotation. This is the
// column view for unambiguous layers.
func (l *Layer) AttributeValues(attr string) ([]interface{}, error) {
	if !l.HasAttribute(attr) {
		return nil, &errors.UnknownAttributeError{Layer: l.name, Attribute: attr}
	}
	out := make([]interface{}, len(l.spans))
	for i, s := range l.spans {
		out[i], _ = s.annotations[0].Value(attr)
	}
	return out, nil
}

// AmbiguousAttributeValues returns, in span order, one sub-list per span
// entry holding the attribute's value for each annotation at that location.
func (l *Layer) AmbiguousAttributeValues(attr string) ([][]interface{}, error) {
	if !l.HasAttribute(attr) {
		return nil, &errors.UnknownAttributeError{Layer: l.name, Attribute: attr}
	}
	out := make([][]interface{}, len(l.spans))
	for i, s := range l.spans {
		row := make([]interface{}, len(s.annotations))
		for j, a := range s.annotations {
			row[j], _ = a.Value(attr)
		}
		out[i] = row
	}
	return out, nil
}

// CountValues returns a mapping from observed value to occurrence count for
// a declared attribute, across all spans and annotations. Values must be
// comparable; values produced by the record form (strings, numbers, bools,
// nil) always are.
func (l *Layer) CountValues(attr string) (map[interface{}]int, error) {
	if !l.HasAttribute(attr) {
		return nil, &errors.UnknownAttributeError{Layer: l.name, Attribute: attr}
	}
	counts := make(map[interface{}]int)
	for _, s := range l.spans {
		for _, a := range s.annotations {
			v, _ := a.Value(attr)
			counts[v]++
		}
	}
	return counts, nil
}

// ParentSpan resolves the parent-layer span sharing this entry's boundaries.
// The layer must have parent topology and be bound.
func (l *Layer) ParentSpan(s *Span) (*Span, error) {
	if l.topology.Kind != KindParent {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "layer %q has no parent layer", l.name)
	}
	if l.source == nil {
		return nil, &errors.UnboundError{What: "layer", Name: l.name}
	}
	dep, ok := l.source.Layer(l.topology.Base)
	if !ok {
		return nil, &errors.MissingLayerError{Layer: l.name, Requires: l.topology.Base, Role: "parent"}
	}
	p, found := dep.Get(s.base)
	if !found {
		return nil, &errors.NoMatchingParentSpanError{
			Layer: l.name, Parent: dep.name, Start: s.Start(), End: s.End(),
		}
	}
	return p, nil
}

// Texts returns the covered text of every span entry, in order. Elementary
// entries contribute their slice, enveloping entries their enclosing slice.
func (l *Layer) Texts() ([]string, error) {
	raw, err := l.raw()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(l.spans))
	for i, s := range l.spans {
		out[i] = raw[s.Start():s.End()]
	}
	return out, nil
}

// IsIdentifier reports whether name is a valid layer or attribute name:
// a letter or underscore followed by letters, digits or underscores.
func IsIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}
