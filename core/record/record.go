// Package record implements the structural record form of layers and texts:
// the serialization boundary consumed by storage and interchange components.
//
// A record is a plain tree of maps, slices and scalars with a stable JSON
// encoding. Converting a record back into a layer re-validates every data
// model invariant; malformed input fails rather than being silently
// repaired. For any valid layer L, RecordToLayer(LayerToRecord(L)) equals L,
// and for any valid record r, LayerToRecord(RecordToLayer(r)) equals r.
package record

import (
	"encoding/json"
	"fmt"

	"github.com/strata-nlp/strata/core/errors"
	"github.com/strata-nlp/strata/core/layer"
	"github.com/strata-nlp/strata/core/span"
)

// BaseSpanRecord is the wire form of a span location: an elementary
// (start, end) pair or, for enveloping spans, the list of child pairs.
type BaseSpanRecord struct {
	Start    int
	End      int
	Children [][2]int // nil for elementary spans
}

// MarshalJSON encodes an elementary location as [start, end] and an
// enveloping one as [[s0, e0], [s1, e1], ...].
func (b BaseSpanRecord) MarshalJSON() ([]byte, error) {
	if b.Children == nil {
		return json.Marshal([2]int{b.Start, b.End})
	}
	return json.Marshal(b.Children)
}

// UnmarshalJSON decodes either wire form. A pair must hold exactly two
// integers; extra or missing elements are rejected, not discarded.
func (b *BaseSpanRecord) UnmarshalJSON(data []byte) error {
	var flat []int
	if err := json.Unmarshal(data, &flat); err == nil {
		if len(flat) != 2 {
			return errors.NewParse("base span", "",
				fmt.Sprintf("expected [start, end], got %d elements", len(flat)))
		}
		b.Start, b.End, b.Children = flat[0], flat[1], nil
		return nil
	}
	var nested [][]int
	if err := json.Unmarshal(data, &nested); err != nil {
		return errors.NewParse("base span", "", err.Error())
	}
	if len(nested) == 0 {
		return errors.NewParse("base span", "", "empty child span list")
	}
	children := make([][2]int, len(nested))
	for i, pair := range nested {
		if len(pair) != 2 {
			return errors.NewParse("base span", "",
				fmt.Sprintf("child %d: expected [start, end], got %d elements", i, len(pair)))
		}
		children[i] = [2]int{pair[0], pair[1]}
	}
	b.Children = children
	b.Start = children[0][0]
	b.End = children[len(children)-1][1]
	return nil
}

// toBaseSpan validates and converts a location record to a base span.
func (b BaseSpanRecord) toBaseSpan() (span.BaseSpan, error) {
	if b.Children == nil {
		return span.NewElementary(b.Start, b.End)
	}
	children := make([]span.Elementary, len(b.Children))
	for i, pair := range b.Children {
		c, err := span.NewElementary(pair[0], pair[1])
		if err != nil {
			return nil, err
		}
		children[i] = c
	}
	return span.NewEnveloping(children)
}

// baseSpanRecord converts a base span to its record form.
func baseSpanRecord(b span.BaseSpan) BaseSpanRecord {
	env, ok := b.(span.Enveloping)
	if !ok {
		return BaseSpanRecord{Start: b.Start(), End: b.End()}
	}
	children := make([][2]int, env.ChildCount())
	for i, c := range env.Children() {
		children[i] = [2]int{c.Start(), c.End()}
	}
	return BaseSpanRecord{Start: b.Start(), End: b.End(), Children: children}
}

// SpanRecord is the wire form of one span entry: its location and its
// annotations (length 1 when the layer is unambiguous).
type SpanRecord struct {
	Base        BaseSpanRecord           `json:"base_span"`
	Annotations []map[string]interface{} `json:"annotations"`
}

// LayerRecord is the wire form of a layer.
type LayerRecord struct {
	Name       string                 `json:"name"`
	Attributes []string               `json:"attributes"`
	Parent     string                 `json:"parent,omitempty"`
	Enveloping string                 `json:"enveloping,omitempty"`
	Fragment   string                 `json:"fragment,omitempty"`
	Ambiguous  bool                   `json:"ambiguous"`
	Defaults   map[string]interface{} `json:"defaults,omitempty"`
	Spans      []SpanRecord           `json:"spans"`
}

// LayerToRecord converts a layer to its structural record form. Spans appear
// in (start, end) order, annotations in their stored order.
func LayerToRecord(l *layer.Layer) *LayerRecord {
	r := &LayerRecord{
		Name:       l.Name(),
		Attributes: l.Attributes(),
		Ambiguous:  l.Ambiguous(),
		Spans:      make([]SpanRecord, 0, l.Len()),
	}
	def := l.Def()
	if len(def.Defaults) > 0 {
		r.Defaults = def.Defaults
	}
	switch t := l.Topology(); t.Kind {
	case layer.KindParent:
		r.Parent = t.Base
	case layer.KindEnveloping:
		r.Enveloping = t.Base
	case layer.KindFragment:
		r.Fragment = t.Base
	}
	for _, s := range l.Spans() {
		sr := SpanRecord{
			Base:        baseSpanRecord(s.Base()),
			Annotations: make([]map[string]interface{}, s.AnnotationCount()),
		}
		for i, a := range s.Annotations() {
			sr.Annotations[i] = a.Values()
		}
		r.Spans = append(r.Spans, sr)
	}
	return r
}

// RecordToLayer builds a layer from its record form, re-validating every
// invariant: topology exclusivity, span order and uniqueness, annotation
// counts and exact attribute coverage. Malformed input fails with a
// ConsistencyError (or a more specific construction error); nothing is
// repaired silently.
func RecordToLayer(r *LayerRecord) (*layer.Layer, error) {
	topology, err := recordTopology(r)
	if err != nil {
		return nil, err
	}
	l, err := layer.New(layer.Def{
		Name:       r.Name,
		Attributes: r.Attributes,
		Ambiguous:  r.Ambiguous,
		Topology:   topology,
		Defaults:   r.Defaults,
	})
	if err != nil {
		return nil, err
	}
	declared := make(map[string]bool, len(r.Attributes))
	for _, attr := range r.Attributes {
		declared[attr] = true
	}
	var prev span.BaseSpan
	for _, sr := range r.Spans {
		base, err := sr.Base.toBaseSpan()
		if err != nil {
			return nil, err
		}
		if prev != nil && span.Compare(prev, base) >= 0 {
			return nil, &errors.ConsistencyError{
				Layer: r.Name, Start: base.Start(), End: base.End(),
				Message: "span records out of order or duplicated",
			}
		}
		prev = base
		if len(sr.Annotations) == 0 {
			return nil, &errors.ConsistencyError{
				Layer: r.Name, Start: base.Start(), End: base.End(),
				Message: "span record has no annotations",
			}
		}
		if !r.Ambiguous && len(sr.Annotations) > 1 {
			return nil, &errors.ConsistencyError{
				Layer: r.Name, Start: base.Start(), End: base.End(),
				Message: fmt.Sprintf("unambiguous layer record holds %d annotations", len(sr.Annotations)),
			}
		}
		for _, values := range sr.Annotations {
			// The record form is strict: annotations carry exactly the
			// declared attributes, defaults are never filled in here.
			for _, attr := range r.Attributes {
				if _, ok := values[attr]; !ok {
					return nil, &errors.ConsistencyError{
						Layer: r.Name, Start: base.Start(), End: base.End(),
						Message: fmt.Sprintf("annotation record is missing attribute %q", attr),
					}
				}
			}
			for k := range values {
				if !declared[k] {
					return nil, &errors.ConsistencyError{
						Layer: r.Name, Start: base.Start(), End: base.End(),
						Message: fmt.Sprintf("annotation record has undeclared attribute %q", k),
					}
				}
			}
			if _, err := l.AddAnnotation(base, values); err != nil {
				return nil, err
			}
		}
	}
	if err := l.CheckSpanConsistency(); err != nil {
		return nil, err
	}
	return l, nil
}

// recordTopology derives the topology tag, rejecting records that set more
// than one of parent, enveloping and fragment.
func recordTopology(r *LayerRecord) (layer.Topology, error) {
	set := 0
	topology := layer.Independent()
	if r.Parent != "" {
		set++
		topology = layer.Parent(r.Parent)
	}
	if r.Enveloping != "" {
		set++
		topology = layer.Enveloping(r.Enveloping)
	}
	if r.Fragment != "" {
		set++
		topology = layer.Fragment(r.Fragment)
	}
	if set > 1 {
		return layer.Topology{}, &errors.ConsistencyError{
			Layer: r.Name, Start: -1, End: -1,
			Message: "record sets more than one of parent, enveloping and fragment",
		}
	}
	return topology, nil
}

// LayerToJSON encodes a layer's record form as JSON.
func LayerToJSON(l *layer.Layer) ([]byte, error) {
	return json.Marshal(LayerToRecord(l))
}

// LayerFromJSON decodes and validates a layer from record-form JSON.
func LayerFromJSON(data []byte) (*layer.Layer, error) {
	var r LayerRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.NewParse("layer record", "", err.Error())
	}
	return RecordToLayer(&r)
}
