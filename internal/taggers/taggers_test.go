package taggers

import (
	"regexp"
	"testing"

	"github.com/strata-nlp/strata/core/resolve"
	"github.com/strata-nlp/strata/core/tagger"
	"github.com/strata-nlp/strata/core/text"
)

func TestTokenizer(t *testing.T) {
	txt := text.New("He said 42 words, really!")
	if err := tagger.Run(NewTokenizer("tokens"), txt); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	tokens := txt.MustLayer("tokens")
	texts, err := tokens.Texts()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"He", "said", "42", "words", ",", "really", "!"}
	if len(texts) != len(want) {
		t.Fatalf("Texts() = %v, want %v", texts, want)
	}
	for i, w := range want {
		if texts[i] != w {
			t.Fatalf("Texts() = %v, want %v", texts, want)
		}
	}

	kinds, err := tokens.AttributeValues("kind")
	if err != nil {
		t.Fatal(err)
	}
	wantKinds := []string{
		TokenWord, TokenWord, TokenNumber, TokenWord,
		TokenPunctuation, TokenWord, TokenPunctuation,
	}
	for i, w := range wantKinds {
		if kinds[i] != w {
			t.Errorf("kind[%d] = %v, want %v", i, kinds[i], w)
		}
	}
}

func TestTokenizerApostropheAndHyphen(t *testing.T) {
	txt := text.New("it's a so-called test")
	if err := tagger.Run(NewTokenizer("tokens"), txt); err != nil {
		t.Fatal(err)
	}
	texts, err := txt.MustLayer("tokens").Texts()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"it's", "a", "so-called", "test"}
	if len(texts) != len(want) {
		t.Fatalf("Texts() = %v, want %v", texts, want)
	}
	for i, w := range want {
		if texts[i] != w {
			t.Fatalf("Texts() = %v, want %v", texts, want)
		}
	}
}

func TestTokenizerEmptyText(t *testing.T) {
	txt := text.New("   ")
	if err := tagger.Run(NewTokenizer("tokens"), txt); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := txt.MustLayer("tokens").Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
}

func TestSentenceGrouper(t *testing.T) {
	txt := text.New("One two. Three! Four")
	if err := Pipeline("tokens", "sentences").Apply(txt); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	sentences := txt.MustLayer("sentences")
	if got, want := sentences.Len(), 3; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}
	counts, err := sentences.AttributeValues("token_count")
	if err != nil {
		t.Fatal(err)
	}
	// "One two ." / "Three !" / "Four"
	wantCounts := []int{3, 2, 1}
	for i, w := range wantCounts {
		if counts[i] != w {
			t.Errorf("token_count[%d] = %v, want %d", i, counts[i], w)
		}
	}
	enclosing, err := sentences.At(0).EnclosingText()
	if err != nil {
		t.Fatal(err)
	}
	if want := "One two."; enclosing != want {
		t.Errorf("At(0).EnclosingText() = %q, want %q", enclosing, want)
	}
}

func TestSentenceGrouperRequiresTokenLayer(t *testing.T) {
	txt := text.New("One two.")
	if err := tagger.Run(NewSentenceGrouper("sentences", "tokens"), txt); err == nil {
		t.Error("Run() without token layer: error = nil, want error")
	}
}

func TestRegexTaggerKeepsAllCandidates(t *testing.T) {
	txt := text.New("see 12 and 345")
	rules := []RegexRule{
		{Pattern: regexp.MustCompile(`\d+`), Priority: 0,
			Values: map[string]interface{}{"kind": "number"}},
		{Pattern: regexp.MustCompile(`\d\d`), Priority: 1,
			Values: map[string]interface{}{"kind": "pair"}},
	}
	rt, err := NewRegexTagger("hits", []string{"kind"}, rules, "", false)
	if err != nil {
		t.Fatal(err)
	}
	if err := tagger.Run(rt, txt); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	hits := txt.MustLayer("hits")
	// \d+ matches "12" and "345"; \d\d matches "12" and "34".
	// "12" appears at the same location for both rules and merges into one
	// ambiguous entry.
	if got, want := hits.Len(), 3; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}
	first := hits.At(0)
	if got, want := first.AnnotationCount(), 2; got != want {
		t.Errorf("At(0).AnnotationCount() = %d, want %d", got, want)
	}
}

func TestRegexTaggerResolvesConflicts(t *testing.T) {
	txt := text.New("see 12 and 345")
	rules := []RegexRule{
		{Pattern: regexp.MustCompile(`\d+`), Priority: 0,
			Values: map[string]interface{}{"kind": "number"}},
		{Pattern: regexp.MustCompile(`\d\d`), Priority: 1,
			Values: map[string]interface{}{"kind": "pair"}},
	}
	rt, err := NewRegexTagger("hits", []string{"kind"}, rules, resolve.StrategyMax, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := tagger.Run(rt, txt); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	hits := txt.MustLayer("hits")
	texts, err := hits.Texts()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"12", "345"}
	if len(texts) != len(want) {
		t.Fatalf("Texts() = %v, want %v", texts, want)
	}
	for i, w := range want {
		if texts[i] != w {
			t.Fatalf("Texts() = %v, want %v", texts, want)
		}
	}
	for i := 0; i < hits.Len(); i++ {
		if v, _ := hits.At(i).Get("kind"); v != "number" {
			t.Errorf("At(%d).Get(kind) = %v, want number", i, v)
		}
	}
}

func TestNewRegexTaggerValidation(t *testing.T) {
	if _, err := NewRegexTagger("hits", nil, nil, "", false); err == nil {
		t.Error("no rules: error = nil, want error")
	}
	rules := []RegexRule{{Pattern: regexp.MustCompile(`x`)}}
	if _, err := NewRegexTagger("hits", nil, rules, "BEST", false); err == nil {
		t.Error("bad strategy: error = nil, want error")
	}
}
