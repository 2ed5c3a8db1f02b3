package layer

import (
	"fmt"
	"sort"

	"github.com/strata-nlp/strata/core/errors"
	"github.com/strata-nlp/strata/core/span"
)

// CheckSpanConsistency re-validates every layer invariant and returns a
// ConsistencyError identifying the first violation: span order and location
// uniqueness, annotation counts under the ambiguity setting, attribute
// completeness, span shape per topology and, when the layer is bound, text
// bounds and alignment against its base layer. It is the layer's self-audit
// contract after external code has replaced span storage (retagging):
// idempotent and free of side effects on success.
func (l *Layer) CheckSpanConsistency() error {
	for i, s := range l.spans {
		if s.layer != l {
			return l.inconsistent(s, "span entry does not reference its owning layer")
		}
		if i > 0 {
			switch c := span.Compare(l.spans[i-1].base, s.base); {
			case c == 0:
				return l.inconsistent(s, "duplicate span location")
			case c > 0:
				return l.inconsistent(s, fmt.Sprintf("span out of order after %v", l.spans[i-1].base))
			}
		}
		if err := l.checkEntry(s); err != nil {
			return err
		}
	}
	if l.Bound() {
		if l.topology.Dependent() {
			if _, ok := l.source.Layer(l.topology.Base); !ok {
				return &errors.MissingLayerError{Layer: l.name, Requires: l.topology.Base, Role: string(l.topology.Kind)}
			}
		}
		for _, s := range l.spans {
			if err := l.checkAlignment(s.base); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkEntry audits one span entry: shape, annotation count and attribute
// completeness.
func (l *Layer) checkEntry(s *Span) error {
	if err := l.checkShape(s.base); err != nil {
		return l.inconsistent(s, err.Error())
	}
	if env, ok := s.base.(span.Enveloping); ok {
		children := env.Children()
		for i := 1; i < len(children); i++ {
			if children[i].Start() < children[i-1].End() {
				return l.inconsistent(s, fmt.Sprintf("children %v and %v overlap or are out of order",
					children[i-1], children[i]))
			}
		}
	}
	if len(s.annotations) == 0 {
		return l.inconsistent(s, "span entry has no annotations")
	}
	if !l.ambiguous && len(s.annotations) > 1 {
		return l.inconsistent(s, fmt.Sprintf("unambiguous layer holds %d annotations at one location",
			len(s.annotations)))
	}
	for _, a := range s.annotations {
		if err := l.checkCompleteness(s, a); err != nil {
			return err
		}
	}
	return nil
}

// checkCompleteness verifies an annotation covers exactly the declared
// attribute set.
func (l *Layer) checkCompleteness(s *Span, a *Annotation) error {
	var missing, extra []string
	for _, attr := range l.attributes {
		if _, ok := a.Value(attr); !ok {
			missing = append(missing, attr)
		}
	}
	for _, attr := range a.Attributes() {
		if !l.HasAttribute(attr) {
			extra = append(extra, attr)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		sort.Strings(missing)
		return l.inconsistent(s, (&errors.AttributeMismatchError{
			Layer: l.name, Missing: missing, Extra: extra,
		}).Error())
	}
	return nil
}

func (l *Layer) inconsistent(s *Span, msg string) error {
	return &errors.ConsistencyError{Layer: l.name, Start: s.Start(), End: s.End(), Message: msg}
}

// ReplaceSpans swaps in a freshly built span sequence, auditing it first.
// Retaggers use it to rewrite a layer without readers ever observing a
// half-mutated state: the new sequence is validated on a detached copy and
// only then swapped in.
func (l *Layer) ReplaceSpans(spans []*Span) error {
	staged := l.emptyCopy()
	staged.spans = make([]*Span, len(spans))
	for i, s := range spans {
		staged.spans[i] = &Span{base: s.base, annotations: s.annotations, layer: staged}
	}
	if err := staged.CheckSpanConsistency(); err != nil {
		return err
	}
	for _, s := range staged.spans {
		s.layer = l
	}
	l.spans = staged.spans
	return nil
}

// NewSpan builds a detached span entry for use with ReplaceSpans.
// The annotations are validated when the replacement is audited.
func (l *Layer) NewSpan(base span.BaseSpan, values ...map[string]interface{}) *Span {
	anns := make([]*Annotation, len(values))
	for i, v := range values {
		anns[i] = newAnnotation(l.attributes, v, l.defaults)
	}
	return &Span{base: base, annotations: anns, layer: l}
}
