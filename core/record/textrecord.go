package record

import (
	"encoding/json"
	"sort"

	"github.com/strata-nlp/strata/core/errors"
	"github.com/strata-nlp/strata/core/text"
)

// TextRecord is the wire form of a Text: the raw string, metadata and the
// layer records in attachable (dependency-first) order.
type TextRecord struct {
	Text   string            `json:"text"`
	Meta   map[string]string `json:"meta,omitempty"`
	Layers []*LayerRecord    `json:"layers"`
}

// TextToRecord converts a text and all its layers to record form. Layers are
// emitted dependency-first so the record can be replayed by attaching layers
// in order; among independent choices the order is alphabetical, making the
// output deterministic.
func TextToRecord(t *text.Text) *TextRecord {
	r := &TextRecord{Text: t.Raw(), Layers: make([]*LayerRecord, 0, t.LayerCount())}
	if len(t.Meta) > 0 {
		r.Meta = make(map[string]string, len(t.Meta))
		for k, v := range t.Meta {
			r.Meta[k] = v
		}
	}
	emitted := make(map[string]bool, t.LayerCount())
	var emit func(name string)
	emit = func(name string) {
		if emitted[name] {
			return
		}
		l, ok := t.Layer(name)
		if !ok {
			return
		}
		if top := l.Topology(); top.Dependent() {
			emit(top.Base)
		}
		emitted[name] = true
		r.Layers = append(r.Layers, LayerToRecord(l))
	}
	for _, name := range t.LayerNames() {
		emit(name)
	}
	return r
}

// RecordToText rebuilds a text from record form, attaching each layer in
// record order. Attachment re-runs the full dependency and consistency
// validation, so a malformed record fails without producing a partial text.
func RecordToText(r *TextRecord) (*text.Text, error) {
	t := text.New(r.Text)
	for k, v := range r.Meta {
		t.Meta[k] = v
	}
	for _, lr := range r.Layers {
		l, err := RecordToLayer(lr)
		if err != nil {
			return nil, err
		}
		if err := t.AddLayer(l); err != nil {
			return nil, errors.Wrapf(err, "attach layer %q", lr.Name)
		}
	}
	return t, nil
}

// TextToJSON encodes a text's record form as JSON.
func TextToJSON(t *text.Text) ([]byte, error) {
	return json.Marshal(TextToRecord(t))
}

// TextFromJSON decodes and validates a text from record-form JSON.
func TextFromJSON(data []byte) (*text.Text, error) {
	var r TextRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.NewParse("text record", "", err.Error())
	}
	return RecordToText(&r)
}

// SortedLayerNames returns the layer names of a record in sorted order.
// Convenience for summaries and tests.
func (r *TextRecord) SortedLayerNames() []string {
	names := make([]string, len(r.Layers))
	for i, lr := range r.Layers {
		names[i] = lr.Name
	}
	sort.Strings(names)
	return names
}
