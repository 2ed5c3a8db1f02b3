package resolve

import (
	"testing"

	"github.com/strata-nlp/strata/core/errors"
	"github.com/strata-nlp/strata/core/layer"
)

const priority = "_priority_"

// candidateLayer builds an ambiguous candidate layer from (start, end,
// priority) triples.
func candidateLayer(t *testing.T, triples ...[3]int) *layer.Layer {
	t.Helper()
	l := layer.MustNew(layer.Def{
		Name:       "candidates",
		Attributes: []string{priority},
		Ambiguous:  true,
	})
	recs := make([]layer.SpanRecord, len(triples))
	for i, tr := range triples {
		recs[i] = layer.SpanRecord{
			Start:  tr[0],
			End:    tr[1],
			Values: map[string]interface{}{priority: tr[2]},
		}
	}
	if err := l.FromRecords(recs); err != nil {
		t.Fatal(err)
	}
	return l
}

func locations(l *layer.Layer) [][2]int {
	out := make([][2]int, l.Len())
	for i := 0; i < l.Len(); i++ {
		out[i] = [2]int{l.At(i).Start(), l.At(i).End()}
	}
	return out
}

func checkLocations(t *testing.T, l *layer.Layer, want [][2]int) {
	t.Helper()
	got := locations(l)
	if len(got) != len(want) {
		t.Fatalf("kept spans = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("kept spans = %v, want %v", got, want)
		}
	}
}

func TestMaxKeepsLongestOnEqualPriority(t *testing.T) {
	l := candidateLayer(t, [3]int{1, 8, 0}, [3]int{2, 4, 0}, [3]int{3, 6, 0})
	out, err := ResolveConflicts(l, Options{Strategy: StrategyMax, PriorityAttribute: priority})
	if err != nil {
		t.Fatalf("ResolveConflicts() error = %v", err)
	}
	checkLocations(t, out, [][2]int{{1, 8}})
}

func TestMinKeepsShortestOnEqualPriority(t *testing.T) {
	l := candidateLayer(t, [3]int{1, 8, 0}, [3]int{2, 4, 0}, [3]int{3, 6, 0})
	out, err := ResolveConflicts(l, Options{Strategy: StrategyMin, PriorityAttribute: priority})
	if err != nil {
		t.Fatalf("ResolveConflicts() error = %v", err)
	}
	checkLocations(t, out, [][2]int{{2, 4}})
}

func TestAllKeepsEqualPriorityOverlaps(t *testing.T) {
	l := candidateLayer(t, [3]int{1, 8, 0}, [3]int{2, 4, 0}, [3]int{3, 6, 0})
	out, err := ResolveConflicts(l, Options{Strategy: StrategyAll, PriorityAttribute: priority})
	if err != nil {
		t.Fatalf("ResolveConflicts() error = %v", err)
	}
	checkLocations(t, out, [][2]int{{1, 8}, {2, 4}, {3, 6}})
}

func TestAllRemovesLowerPriorityOverlaps(t *testing.T) {
	l := candidateLayer(t, [3]int{1, 8, 1}, [3]int{2, 4, 0}, [3]int{3, 6, 1})
	out, err := ResolveConflicts(l, Options{Strategy: StrategyAll, PriorityAttribute: priority})
	if err != nil {
		t.Fatalf("ResolveConflicts() error = %v", err)
	}
	checkLocations(t, out, [][2]int{{2, 4}})
}

func TestPriorityBeatsLength(t *testing.T) {
	l := candidateLayer(t, [3]int{0, 10, 1}, [3]int{2, 4, 0})
	for _, strategy := range []Strategy{StrategyMax, StrategyMin, StrategyAll} {
		out, err := ResolveConflicts(l, Options{Strategy: strategy, PriorityAttribute: priority})
		if err != nil {
			t.Fatalf("%s: ResolveConflicts() error = %v", strategy, err)
		}
		checkLocations(t, out, [][2]int{{2, 4}})
	}
}

func TestGreedyTieFallsBackToOriginalOrder(t *testing.T) {
	// Same priority and length; the earlier span wins.
	l := candidateLayer(t, [3]int{0, 4, 0}, [3]int{2, 6, 0})
	out, err := ResolveConflicts(l, Options{Strategy: StrategyMax, PriorityAttribute: priority})
	if err != nil {
		t.Fatalf("ResolveConflicts() error = %v", err)
	}
	checkLocations(t, out, [][2]int{{0, 4}})
}

func TestDisjointSpansAllSurvive(t *testing.T) {
	triples := [][3]int{{0, 3, 2}, {4, 7, 0}, {8, 11, 1}}
	for _, strategy := range []Strategy{StrategyMax, StrategyMin, StrategyAll} {
		l := candidateLayer(t, triples...)
		out, err := ResolveConflicts(l, Options{Strategy: strategy, PriorityAttribute: priority})
		if err != nil {
			t.Fatalf("%s: ResolveConflicts() error = %v", strategy, err)
		}
		checkLocations(t, out, [][2]int{{0, 3}, {4, 7}, {8, 11}})
	}
}

func TestGreedyCascade(t *testing.T) {
	// Committing the winner frees a span that overlapped only the loser.
	l := candidateLayer(t, [3]int{0, 5, 0}, [3]int{4, 8, 1}, [3]int{7, 10, 2})
	out, err := ResolveConflicts(l, Options{Strategy: StrategyMax, PriorityAttribute: priority})
	if err != nil {
		t.Fatalf("ResolveConflicts() error = %v", err)
	}
	checkLocations(t, out, [][2]int{{0, 5}, {7, 10}})
}

func TestAmbiguousLocationPrunedToBestPriority(t *testing.T) {
	l := layer.MustNew(layer.Def{
		Name:       "candidates",
		Attributes: []string{priority, "form"},
		Ambiguous:  true,
	})
	recs := []layer.SpanRecord{
		{Start: 0, End: 4, Values: map[string]interface{}{priority: 1, "form": "a"}},
		{Start: 0, End: 4, Values: map[string]interface{}{priority: 0, "form": "b"}},
		{Start: 0, End: 4, Values: map[string]interface{}{priority: 0, "form": "c"}},
	}
	if err := l.FromRecords(recs); err != nil {
		t.Fatal(err)
	}

	out, err := ResolveConflicts(l, Options{
		Strategy: StrategyMax, PriorityAttribute: priority, KeepEqual: true,
	})
	if err != nil {
		t.Fatalf("ResolveConflicts() error = %v", err)
	}
	forms, err := out.At(0).GetAll("form")
	if err != nil {
		t.Fatal(err)
	}
	if len(forms) != 2 || forms[0] != "b" || forms[1] != "c" {
		t.Errorf("KeepEqual forms = %v, want [b c]", forms)
	}

	out, err = ResolveConflicts(l, Options{
		Strategy: StrategyMax, PriorityAttribute: priority,
	})
	if err != nil {
		t.Fatalf("ResolveConflicts() error = %v", err)
	}
	forms, err = out.At(0).GetAll("form")
	if err != nil {
		t.Fatal(err)
	}
	if len(forms) != 1 || forms[0] != "b" {
		t.Errorf("first-best forms = %v, want [b]", forms)
	}
}

func TestFloatPrioritiesFromRecords(t *testing.T) {
	// JSON decoding yields float64 priorities; integral values are accepted.
	l := layer.MustNew(layer.Def{Name: "candidates", Attributes: []string{priority}, Ambiguous: true})
	recs := []layer.SpanRecord{
		{Start: 0, End: 5, Values: map[string]interface{}{priority: float64(1)}},
		{Start: 3, End: 8, Values: map[string]interface{}{priority: float64(0)}},
	}
	if err := l.FromRecords(recs); err != nil {
		t.Fatal(err)
	}
	out, err := ResolveConflicts(l, Options{Strategy: StrategyMax, PriorityAttribute: priority})
	if err != nil {
		t.Fatalf("ResolveConflicts() error = %v", err)
	}
	checkLocations(t, out, [][2]int{{3, 8}})
}

func TestMissingPriorityFails(t *testing.T) {
	l := layer.MustNew(layer.Def{Name: "candidates", Attributes: []string{priority}})
	if _, err := l.AddSpan(0, 4, nil); err != nil {
		t.Fatal(err)
	}
	_, err := ResolveConflicts(l, Options{Strategy: StrategyMax, PriorityAttribute: priority})
	if !errors.Is(err, errors.ErrMissingPriority) {
		t.Errorf("ResolveConflicts() error = %v, want ErrMissingPriority", err)
	}
}

func TestUndeclaredPriorityAttributeFails(t *testing.T) {
	l := layer.MustNew(layer.Def{Name: "candidates", Attributes: []string{"kind"}})
	_, err := ResolveConflicts(l, Options{Strategy: StrategyMax, PriorityAttribute: priority})
	if !errors.Is(err, errors.ErrUnknownAttribute) {
		t.Errorf("ResolveConflicts() error = %v, want ErrUnknownAttribute", err)
	}
}

func TestUnknownStrategyFails(t *testing.T) {
	l := candidateLayer(t, [3]int{0, 4, 0})
	if _, err := ResolveConflicts(l, Options{Strategy: "BEST", PriorityAttribute: priority}); err == nil {
		t.Error("ResolveConflicts(BEST) error = nil, want error")
	}
}

func TestEnvelopingLayerRejected(t *testing.T) {
	l := layer.MustNew(layer.Def{
		Name: "groups", Attributes: []string{priority}, Topology: layer.Enveloping("tokens"),
	})
	if _, err := ResolveConflicts(l, Options{Strategy: StrategyMax, PriorityAttribute: priority}); err == nil {
		t.Error("ResolveConflicts() on enveloping layer: error = nil, want error")
	}
}

func TestInputLayerUnchanged(t *testing.T) {
	l := candidateLayer(t, [3]int{1, 8, 0}, [3]int{2, 4, 0})
	if _, err := ResolveConflicts(l, Options{Strategy: StrategyMax, PriorityAttribute: priority}); err != nil {
		t.Fatal(err)
	}
	checkLocations(t, l, [][2]int{{1, 8}, {2, 4}})
}

func TestEmptyInputYieldsEmptyLayer(t *testing.T) {
	for _, strategy := range []Strategy{StrategyMax, StrategyMin, StrategyAll} {
		out, err := ResolveConflicts(candidateLayer(t), Options{
			Strategy:          strategy,
			PriorityAttribute: priority,
		})
		if err != nil {
			t.Fatalf("ResolveConflicts(%s) on empty layer: error = %v", strategy, err)
		}
		if got, want := out.Len(), 0; got != want {
			t.Errorf("ResolveConflicts(%s) Len() = %d, want %d", strategy, got, want)
		}
		if err := out.CheckSpanConsistency(); err != nil {
			t.Errorf("ResolveConflicts(%s) output audit: error = %v", strategy, err)
		}
	}
}
