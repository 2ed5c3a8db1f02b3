package layer

import (
	"github.com/strata-nlp/strata/core/errors"
	"github.com/strata-nlp/strata/core/span"
)

// Span is one entry of a layer: a base span location together with its
// ordered annotations. Unambiguous layers hold exactly one annotation per
// entry; ambiguous layers hold one or more.
type Span struct {
	base        span.BaseSpan
	annotations []*Annotation
	layer       *Layer
}

// Base returns the span's location.
func (s *Span) Base() span.BaseSpan { return s.base }

// Start returns the start offset of the location.
func (s *Span) Start() int { return s.base.Start() }

// End returns the end offset of the location.
func (s *Span) End() int { return s.base.End() }

// Len returns End - Start.
func (s *Span) Len() int { return s.base.Len() }

// Layer returns the owning layer.
func (s *Span) Layer() *Layer { return s.layer }

// AnnotationCount returns the number of annotations at this location.
func (s *Span) AnnotationCount() int { return len(s.annotations) }

// Annotations returns the annotations at this location in insertion order.
// The returned slice is a copy; the annotations themselves are shared.
func (s *Span) Annotations() []*Annotation {
	out := make([]*Annotation, len(s.annotations))
	copy(out, s.annotations)
	return out
}

// Annotation returns the i-th annotation at this location.
func (s *Span) Annotation(i int) *Annotation { return s.annotations[i] }

// Get returns the value of a declared attribute from the span's first
// annotation. Unambiguous layers access their single annotation this way.
// Requesting an undeclared attribute fails with an UnknownAttributeError.
func (s *Span) Get(attr string) (interface{}, error) {
	if !s.layer.HasAttribute(attr) {
		return nil, &errors.UnknownAttributeError{Layer: s.layer.Name(), Attribute: attr}
	}
	v, _ := s.annotations[0].Value(attr)
	return v, nil
}

// GetAll returns the values of a declared attribute across all annotations
// at this location, in annotation order.
func (s *Span) GetAll(attr string) ([]interface{}, error) {
	if !s.layer.HasAttribute(attr) {
		return nil, &errors.UnknownAttributeError{Layer: s.layer.Name(), Attribute: attr}
	}
	out := make([]interface{}, len(s.annotations))
	for i, a := range s.annotations {
		out[i], _ = a.Value(attr)
	}
	return out, nil
}

// Text returns the covered text of an elementary span by slicing the owning
// Text's string. It fails with an UnboundError until the layer is attached,
// and must not be called on enveloping spans (use Texts).
func (s *Span) Text() (string, error) {
	raw, err := s.layer.raw()
	if err != nil {
		return "", err
	}
	if s.base.IsEnveloping() {
		return "", &errors.ConsistencyError{
			Layer: s.layer.Name(), Start: s.Start(), End: s.End(),
			Message: "Text called on an enveloping span; use Texts",
		}
	}
	return raw[s.Start():s.End()], nil
}

// Texts returns the child texts of an enveloping span in child order.
// For an elementary span it returns a single-element slice.
func (s *Span) Texts() ([]string, error) {
	raw, err := s.layer.raw()
	if err != nil {
		return nil, err
	}
	env, ok := s.base.(span.Enveloping)
	if !ok {
		return []string{raw[s.Start():s.End()]}, nil
	}
	out := make([]string, 0, env.ChildCount())
	for _, c := range env.Children() {
		out = append(out, raw[c.Start():c.End()])
	}
	return out, nil
}

// EnclosingText returns the contiguous slice [Start, End) of the owning
// Text, including any gaps between enveloping children.
func (s *Span) EnclosingText() (string, error) {
	raw, err := s.layer.raw()
	if err != nil {
		return "", err
	}
	return raw[s.Start():s.End()], nil
}

// addAnnotation appends an annotation. The layer has already enforced the
// ambiguity rules.
func (s *Span) addAnnotation(a *Annotation) {
	s.annotations = append(s.annotations, a)
}
