package taggers

import (
	"github.com/strata-nlp/strata/core/tagger"
	"github.com/strata-nlp/strata/core/text"
)

// Chain runs a sequence of taggers in order, so later taggers can depend
// on the layers earlier ones attach.
type Chain struct {
	taggers []tagger.Tagger
}

// NewChain builds a chain from the given taggers.
func NewChain(tgs ...tagger.Tagger) *Chain {
	return &Chain{taggers: tgs}
}

// Apply runs every tagger against the text, stopping at the first error.
func (c *Chain) Apply(t *text.Text) error {
	for _, tg := range c.taggers {
		if err := tagger.Run(tg, t); err != nil {
			return err
		}
	}
	return nil
}

// Pipeline is the default tokenize-then-group pipeline.
func Pipeline(tokenLayer, sentenceLayer string) *Chain {
	return NewChain(
		NewTokenizer(tokenLayer),
		NewSentenceGrouper(sentenceLayer, tokenLayer),
	)
}
