// Package taggers provides the generic, language-agnostic taggers shipped
// with Strata: a rune-class tokenizer, a sentence grouper over tokens and a
// rule-based regex tagger. They exist to exercise the tagging interface and
// the conflict resolver; linguistic analyzers proper are external
// collaborators and plug in through the same interface.
package taggers

import (
	"unicode"

	"github.com/strata-nlp/strata/core/layer"
	"github.com/strata-nlp/strata/core/text"
)

// Token kind attribute values produced by the Tokenizer.
const (
	TokenWord        = "word"
	TokenNumber      = "number"
	TokenPunctuation = "punctuation"
)

// Tokenizer splits the raw text into word, number and punctuation tokens by
// rune class. Whitespace separates tokens and is never covered by a span.
type Tokenizer struct {
	outputLayer string
}

// NewTokenizer creates a tokenizer producing the named independent layer
// with a single "kind" attribute.
func NewTokenizer(outputLayer string) *Tokenizer {
	return &Tokenizer{outputLayer: outputLayer}
}

// OutputLayer implements tagger.Tagger.
func (tk *Tokenizer) OutputLayer() string { return tk.outputLayer }

// OutputAttributes implements tagger.Tagger.
func (tk *Tokenizer) OutputAttributes() []string { return []string{"kind"} }

// InputLayers implements tagger.Tagger. The tokenizer has no dependencies.
func (tk *Tokenizer) InputLayers() []string { return nil }

// MakeLayer implements tagger.Tagger.
func (tk *Tokenizer) MakeLayer(t *text.Text, deps map[string]*layer.Layer) (*layer.Layer, error) {
	l, err := layer.New(layer.Def{
		Name:       tk.outputLayer,
		Attributes: tk.OutputAttributes(),
	})
	if err != nil {
		return nil, err
	}
	var recs []layer.SpanRecord
	raw := t.Raw()
	start := -1
	kind := ""
	flush := func(end int) {
		if start >= 0 {
			recs = append(recs, layer.SpanRecord{
				Start: start, End: end,
				Values: map[string]interface{}{"kind": kind},
			})
			start = -1
		}
	}
	for i, r := range raw {
		switch c := classify(r); c {
		case "":
			flush(i)
		case TokenPunctuation:
			// Each punctuation rune is its own token.
			flush(i)
			recs = append(recs, layer.SpanRecord{
				Start: i, End: i + len(string(r)),
				Values: map[string]interface{}{"kind": TokenPunctuation},
			})
		default:
			if start >= 0 && kind != c {
				flush(i)
			}
			if start < 0 {
				start = i
				kind = c
			}
		}
	}
	flush(len(raw))
	if err := l.FromRecords(recs); err != nil {
		return nil, err
	}
	return l, nil
}

// classify maps a rune to a token kind, or "" for whitespace.
func classify(r rune) string {
	switch {
	case unicode.IsSpace(r):
		return ""
	case unicode.IsDigit(r):
		return TokenNumber
	case unicode.IsLetter(r) || r == '\'' || r == '-':
		return TokenWord
	default:
		return TokenPunctuation
	}
}
