package query

import (
	"testing"

	"github.com/strata-nlp/strata/core/layer"
	"github.com/strata-nlp/strata/core/text"
)

// tokenFixture builds a bound token layer over "hello world 42".
func tokenFixture(t *testing.T) *layer.Layer {
	t.Helper()
	txt := text.New("hello world 42")
	l := layer.MustNew(layer.Def{Name: "tokens", Attributes: []string{"kind", "weight"}})
	spans := []struct {
		start, end int
		kind       string
		weight     interface{}
	}{
		{0, 5, "word", 2},
		{6, 11, "word", 5},
		{12, 14, "number", nil},
	}
	for _, s := range spans {
		values := map[string]interface{}{"kind": s.kind, "weight": s.weight}
		if _, err := l.AddSpan(s.start, s.end, values); err != nil {
			t.Fatal(err)
		}
	}
	if err := txt.AddLayer(l); err != nil {
		t.Fatal(err)
	}
	return l
}

func TestCompileErrors(t *testing.T) {
	tests := []string{
		"",
		"kind ==",
		"== 3",
		"kind = 3",
		"(kind == 3",
	}
	for _, src := range tests {
		if _, err := Compile(src); err == nil {
			t.Errorf("Compile(%q) error = nil, want error", src)
		}
	}
}

func TestFilter(t *testing.T) {
	l := tokenFixture(t)
	tests := []struct {
		source string
		want   int
	}{
		{`kind == "word"`, 2},
		{`kind != "word"`, 1},
		{`weight > 3`, 1},
		{`weight >= 2`, 2},
		{`weight == null`, 1},
		{`weight != null`, 2},
		{`start >= 6`, 2},
		{`end <= 5`, 1},
		{`len == 5`, 2},
		{`len < 3`, 1},
		{`text == "hello"`, 1},
		{`kind == "word" and weight > 3`, 1},
		{`kind == "number" or weight == 2`, 2},
		{`not (kind == "word")`, 1},
		{`not kind == "word" or len == 5`, 3},
		{`kind == "verb"`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			q, err := Compile(tt.source)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			out, err := q.Filter(l)
			if err != nil {
				t.Fatalf("Filter() error = %v", err)
			}
			if got := out.Len(); got != tt.want {
				t.Errorf("Filter(%q).Len() = %d, want %d", tt.source, got, tt.want)
			}
		})
	}
}

func TestEvalUnknownAttribute(t *testing.T) {
	l := tokenFixture(t)
	q := MustCompile(`missing == 3`)
	if _, err := q.Eval(l.At(0)); err == nil {
		t.Error("Eval() with undeclared attribute: error = nil, want error")
	}
	if _, err := q.Filter(l); err == nil {
		t.Error("Filter() with undeclared attribute: error = nil, want error")
	}
}

func TestAmbiguousAnyAnnotationMatches(t *testing.T) {
	txt := text.New("hello")
	l := layer.MustNew(layer.Def{Name: "morph", Attributes: []string{"pos"}, Ambiguous: true})
	if _, err := l.AddSpan(0, 5, map[string]interface{}{"pos": "N"}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.AddSpan(0, 5, map[string]interface{}{"pos": "V"}); err != nil {
		t.Fatal(err)
	}
	if err := txt.AddLayer(l); err != nil {
		t.Fatal(err)
	}

	for _, tt := range []struct {
		source string
		want   bool
	}{
		{`pos == "V"`, true},
		{`pos == "N"`, true},
		{`pos == "A"`, false},
	} {
		got, err := MustCompile(tt.source).Eval(l.At(0))
		if err != nil {
			t.Fatalf("Eval(%q) error = %v", tt.source, err)
		}
		if got != tt.want {
			t.Errorf("Eval(%q) = %v, want %v", tt.source, got, tt.want)
		}
	}
}

func TestSource(t *testing.T) {
	src := `kind == "word"`
	if got := MustCompile(src).Source(); got != src {
		t.Errorf("Source() = %q, want %q", got, src)
	}
}
