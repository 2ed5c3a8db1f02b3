// Package tagger defines the narrow interface between the core data model
// and annotation producers, plus the runner that enforces its contract:
// dependency layers are present and validated before a tagger is invoked,
// and the returned layer satisfies every invariant before attachment.
package tagger

import (
	"github.com/strata-nlp/strata/core/errors"
	"github.com/strata-nlp/strata/core/layer"
	"github.com/strata-nlp/strata/core/text"
)

// Tagger computes a new annotation layer for a text.
type Tagger interface {
	// OutputLayer is the name of the layer the tagger produces.
	OutputLayer() string
	// OutputAttributes is the attribute schema of the produced layer.
	OutputAttributes() []string
	// InputLayers names the dependency layers that must be attached before
	// MakeLayer is invoked.
	InputLayers() []string
	// MakeLayer builds the output layer. deps maps each declared input layer
	// name to the attached layer. The returned layer must be unbound and is
	// validated during attachment.
	MakeLayer(t *text.Text, deps map[string]*layer.Layer) (*layer.Layer, error)
}

// Retagger mutates an already attached layer in place. After ChangeLayer
// returns, the runner re-audits the layer with CheckSpanConsistency.
type Retagger interface {
	// OutputLayer is the name of the attached layer being changed.
	OutputLayer() string
	// InputLayers names additional dependency layers.
	InputLayers() []string
	// ChangeLayer rewrites the target layer, typically via ReplaceSpans.
	ChangeLayer(t *text.Text, target *layer.Layer, deps map[string]*layer.Layer) error
}

// Run invokes a tagger on a text and attaches the produced layer. It fails
// without invoking the tagger when any declared input layer is missing, and
// without mutating the text when the produced layer is invalid.
func Run(tg Tagger, t *text.Text) error {
	deps, err := gather(t, tg.OutputLayer(), tg.InputLayers())
	if err != nil {
		return err
	}
	l, err := tg.MakeLayer(t, deps)
	if err != nil {
		return errors.Wrapf(err, "tagger for layer %q", tg.OutputLayer())
	}
	if l.Name() != tg.OutputLayer() {
		return errors.Wrapf(errors.ErrInvalidInput,
			"tagger declared output layer %q but produced %q", tg.OutputLayer(), l.Name())
	}
	return t.AddLayer(l)
}

// Rerun invokes a retagger on a text's attached layer and re-audits it.
func Rerun(rt Retagger, t *text.Text) error {
	target, ok := t.Layer(rt.OutputLayer())
	if !ok {
		return &errors.MissingLayerError{Layer: rt.OutputLayer(), Requires: rt.OutputLayer(), Role: "output"}
	}
	deps, err := gather(t, rt.OutputLayer(), rt.InputLayers())
	if err != nil {
		return err
	}
	if err := rt.ChangeLayer(t, target, deps); err != nil {
		return errors.Wrapf(err, "retagger for layer %q", rt.OutputLayer())
	}
	return target.CheckSpanConsistency()
}

// gather collects the declared dependency layers, failing on the first
// missing one.
func gather(t *text.Text, output string, inputs []string) (map[string]*layer.Layer, error) {
	deps := make(map[string]*layer.Layer, len(inputs))
	for _, name := range inputs {
		l, ok := t.Layer(name)
		if !ok {
			return nil, &errors.MissingLayerError{Layer: output, Requires: name, Role: "input"}
		}
		deps[name] = l
	}
	return deps, nil
}
