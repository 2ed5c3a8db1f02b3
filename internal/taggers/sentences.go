package taggers

import (
	"github.com/strata-nlp/strata/core/layer"
	"github.com/strata-nlp/strata/core/span"
	"github.com/strata-nlp/strata/core/text"
)

// sentence-final punctuation tokens
var sentenceEnders = map[string]bool{
	".": true,
	"!": true,
	"?": true,
}

// SentenceGrouper builds an enveloping layer over a token layer, closing a
// sentence after each sentence-final punctuation token.
type SentenceGrouper struct {
	outputLayer string
	tokenLayer  string
}

// NewSentenceGrouper creates a grouper enveloping the named token layer.
func NewSentenceGrouper(outputLayer, tokenLayer string) *SentenceGrouper {
	return &SentenceGrouper{outputLayer: outputLayer, tokenLayer: tokenLayer}
}

// OutputLayer implements tagger.Tagger.
func (sg *SentenceGrouper) OutputLayer() string { return sg.outputLayer }

// OutputAttributes implements tagger.Tagger.
func (sg *SentenceGrouper) OutputAttributes() []string { return []string{"token_count"} }

// InputLayers implements tagger.Tagger.
func (sg *SentenceGrouper) InputLayers() []string { return []string{sg.tokenLayer} }

// MakeLayer implements tagger.Tagger.
func (sg *SentenceGrouper) MakeLayer(t *text.Text, deps map[string]*layer.Layer) (*layer.Layer, error) {
	tokens := deps[sg.tokenLayer]
	l, err := layer.New(layer.Def{
		Name:       sg.outputLayer,
		Attributes: sg.OutputAttributes(),
		Topology:   layer.Enveloping(sg.tokenLayer),
	})
	if err != nil {
		return nil, err
	}
	var children []span.Elementary
	flush := func() error {
		if len(children) == 0 {
			return nil
		}
		_, err := l.AddEnvelopingSpan(children, map[string]interface{}{
			"token_count": len(children),
		})
		children = nil
		return err
	}
	raw := t.Raw()
	for _, s := range tokens.Spans() {
		child, err := span.NewElementary(s.Start(), s.End())
		if err != nil {
			return nil, err
		}
		children = append(children, child)
		if sentenceEnders[raw[s.Start():s.End()]] {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return l, nil
}
