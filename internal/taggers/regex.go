package taggers

import (
	"regexp"

	"github.com/strata-nlp/strata/core/errors"
	"github.com/strata-nlp/strata/core/layer"
	"github.com/strata-nlp/strata/core/resolve"
	"github.com/strata-nlp/strata/core/text"
)

// PriorityAttribute is the attribute the regex tagger records each rule's
// priority under, and the attribute conflict resolution ranks by.
const PriorityAttribute = "_priority_"

// RegexRule is one pattern of a RegexTagger. Every match of Pattern yields a
// candidate span annotated with the rule's Values plus its Priority.
type RegexRule struct {
	Pattern  *regexp.Regexp
	Priority int
	Values   map[string]interface{}
}

// RegexTagger produces a layer of pattern matches. Rules may overlap; when a
// conflict strategy is configured the candidates are post-processed with
// the conflict resolver, otherwise all candidates are kept on an ambiguous
// layer.
type RegexTagger struct {
	outputLayer string
	attributes  []string
	rules       []RegexRule
	strategy    resolve.Strategy // empty: keep all candidates
	keepEqual   bool
}

// NewRegexTagger creates a regex tagger. attributes lists the user
// attributes each rule's Values may set; the priority attribute is declared
// implicitly. With a non-empty strategy the output is conflict-resolved.
func NewRegexTagger(outputLayer string, attributes []string, rules []RegexRule, strategy resolve.Strategy, keepEqual bool) (*RegexTagger, error) {
	if strategy != "" && !strategy.IsValid() {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown conflict resolving strategy %q", strategy)
	}
	if len(rules) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "regex tagger for layer %q has no rules", outputLayer)
	}
	return &RegexTagger{
		outputLayer: outputLayer,
		attributes:  attributes,
		rules:       rules,
		strategy:    strategy,
		keepEqual:   keepEqual,
	}, nil
}

// OutputLayer implements tagger.Tagger.
func (rt *RegexTagger) OutputLayer() string { return rt.outputLayer }

// OutputAttributes implements tagger.Tagger.
func (rt *RegexTagger) OutputAttributes() []string {
	out := make([]string, 0, len(rt.attributes)+1)
	out = append(out, rt.attributes...)
	out = append(out, PriorityAttribute)
	return out
}

// InputLayers implements tagger.Tagger. Rules match the raw text directly.
func (rt *RegexTagger) InputLayers() []string { return nil }

// MakeLayer implements tagger.Tagger.
func (rt *RegexTagger) MakeLayer(t *text.Text, deps map[string]*layer.Layer) (*layer.Layer, error) {
	candidates, err := layer.New(layer.Def{
		Name:       rt.outputLayer,
		Attributes: rt.OutputAttributes(),
		Ambiguous:  true,
	})
	if err != nil {
		return nil, err
	}
	var recs []layer.SpanRecord
	for _, rule := range rt.rules {
		for _, m := range rule.Pattern.FindAllStringIndex(t.Raw(), -1) {
			values := make(map[string]interface{}, len(rule.Values)+1)
			for k, v := range rule.Values {
				values[k] = v
			}
			values[PriorityAttribute] = rule.Priority
			recs = append(recs, layer.SpanRecord{Start: m[0], End: m[1], Values: values})
		}
	}
	if err := candidates.FromRecords(recs); err != nil {
		return nil, err
	}
	if rt.strategy == "" {
		return candidates, nil
	}
	return resolve.ResolveConflicts(candidates, resolve.Options{
		Strategy:          rt.strategy,
		PriorityAttribute: PriorityAttribute,
		KeepEqual:         rt.keepEqual,
	})
}
