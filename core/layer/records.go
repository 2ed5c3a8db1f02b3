package layer

import (
	"sort"

	"github.com/strata-nlp/strata/core/errors"
	"github.com/strata-nlp/strata/core/span"
)

// SpanRecord is the flat construction form of one annotation at an
// elementary location.
type SpanRecord struct {
	Start  int
	End    int
	Values map[string]interface{}
}

// FromRecords bulk-populates an empty layer from annotation records. It is
// equivalent to repeated AddSpan calls but sorts and validates once,
// O(n log n). On ambiguous layers, records sharing a location merge into one
// entry with multiple annotations in record order; on unambiguous layers a
// shared location fails with a DuplicateSpanError.
func (l *Layer) FromRecords(recs []SpanRecord) error {
	if len(l.spans) > 0 {
		return errors.Wrapf(errors.ErrInvalidInput, "layer %q is not empty", l.name)
	}
	if l.topology.Kind == KindEnveloping {
		return errors.Wrapf(errors.ErrInvalidInput,
			"layer %q is enveloping; use AddEnvelopingSpan", l.name)
	}

	type entry struct {
		base  span.Elementary
		order int
		rec   SpanRecord
	}
	entries := make([]entry, 0, len(recs))
	for i, rec := range recs {
		base, err := span.NewElementary(rec.Start, rec.End)
		if err != nil {
			return err
		}
		if err := l.checkValues(rec.Values); err != nil {
			return err
		}
		entries = append(entries, entry{base: base, order: i, rec: rec})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return span.Compare(entries[i].base, entries[j].base) < 0
	})

	spans := make([]*Span, 0, len(entries))
	for _, e := range entries {
		ann := newAnnotation(l.attributes, e.rec.Values, l.defaults)
		if n := len(spans); n > 0 && span.SameLocation(spans[n-1].base, e.base) {
			if !l.ambiguous {
				return &errors.DuplicateSpanError{Layer: l.name, Start: e.base.Start(), End: e.base.End()}
			}
			spans[n-1].addAnnotation(ann)
			continue
		}
		spans = append(spans, &Span{base: e.base, annotations: []*Annotation{ann}, layer: l})
	}

	if l.Bound() {
		for _, s := range spans {
			if err := l.checkAlignment(s.base); err != nil {
				return err
			}
		}
	}
	l.spans = spans
	return nil
}

// FromRecordGroups bulk-populates an empty ambiguous layer from groups of
// records, one group per span location. All records of a group must share
// the same (start, end).
func (l *Layer) FromRecordGroups(groups [][]SpanRecord) error {
	if !l.ambiguous {
		return errors.Wrapf(errors.ErrInvalidInput,
			"layer %q is unambiguous; use FromRecords", l.name)
	}
	flat := make([]SpanRecord, 0, len(groups))
	for _, group := range groups {
		for i, rec := range group {
			if i > 0 && (rec.Start != group[0].Start || rec.End != group[0].End) {
				return errors.Wrapf(errors.ErrInvalidInput,
					"layer %q: record group mixes locations [%d, %d) and [%d, %d)",
					l.name, group[0].Start, group[0].End, rec.Start, rec.End)
			}
			flat = append(flat, rec)
		}
	}
	return l.FromRecords(flat)
}

// ToRecords exports the layer's annotations as flat records in span order.
// Enveloping layers cannot be flattened this way; use core/record for the
// full structural form.
func (l *Layer) ToRecords() ([]SpanRecord, error) {
	if l.topology.Kind == KindEnveloping {
		return nil, errors.Wrapf(errors.ErrInvalidInput,
			"layer %q is enveloping; use core/record", l.name)
	}
	out := make([]SpanRecord, 0, len(l.spans))
	for _, s := range l.spans {
		for _, a := range s.annotations {
			out = append(out, SpanRecord{Start: s.Start(), End: s.End(), Values: a.Values()})
		}
	}
	return out, nil
}
