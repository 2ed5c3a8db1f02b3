// Package resolve implements conflict resolution over candidate span layers:
// selecting a non-overlapping-per-policy subset of spans by priority and
// strategy (MAX, MIN, ALL).
//
// Candidates carry a numeric priority attribute; lower value means higher
// precedence, 0 is the highest by convention. Resolution is a pure function:
// the input layer is never mutated and the result is a fresh, unbound layer
// with the same definition.
package resolve

import (
	"sort"

	"github.com/strata-nlp/strata/core/errors"
	"github.com/strata-nlp/strata/core/layer"
	"github.com/strata-nlp/strata/core/span"
)

// Strategy selects the conflict resolution policy.
type Strategy string

// Strategy constants.
const (
	// StrategyMax keeps, per overlapping group, the highest-priority span,
	// preferring the longest on priority ties.
	StrategyMax Strategy = "MAX"
	// StrategyMin keeps, per overlapping group, the highest-priority span,
	// preferring the shortest on priority ties.
	StrategyMin Strategy = "MIN"
	// StrategyAll keeps every span not overlapped by a surviving span of
	// strictly higher priority. Equal-priority overlaps are alternative
	// analyses, not conflicts, and are all kept.
	StrategyAll Strategy = "ALL"
)

// validStrategies is the set of valid strategies.
var validStrategies = map[Strategy]bool{
	StrategyMax: true,
	StrategyMin: true,
	StrategyAll: true,
}

// IsValid returns true if the strategy is valid.
func (s Strategy) IsValid() bool { return validStrategies[s] }

// Options configures a conflict resolution run.
type Options struct {
	// Strategy is the resolution policy. Required.
	Strategy Strategy
	// PriorityAttribute names the integer attribute ranking the candidates.
	// Resolution fails when a candidate annotation lacks it.
	PriorityAttribute string
	// KeepEqual keeps all equal-best annotations at an ambiguous location;
	// when false only the first-encountered best annotation survives.
	KeepEqual bool
}

// candidate is one span location with its surviving annotations and its
// effective (best) priority.
type candidate struct {
	start, end  int
	priority    int
	order       int // original span order, final deterministic tie-break
	annotations []*layer.Annotation
}

func (c *candidate) length() int { return c.end - c.start }

func (c *candidate) overlaps(d *candidate) bool {
	return c.start < d.end && d.start < c.end
}

// ResolveConflicts resolves overlapping spans of a layer into a coherent
// subsequence under the chosen strategy. Ambiguous locations are first
// pruned to their best-priority annotations (all equal-best ones when
// KeepEqual, the first otherwise); locations then compete by priority with
// ties broken by span length (descending for MAX, ascending for MIN) and
// finally by original span order. The layer's spans must be elementary.
func ResolveConflicts(l *layer.Layer, opts Options) (*layer.Layer, error) {
	if !opts.Strategy.IsValid() {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown conflict resolving strategy %q", opts.Strategy)
	}
	if !l.HasAttribute(opts.PriorityAttribute) {
		return nil, &errors.UnknownAttributeError{Layer: l.Name(), Attribute: opts.PriorityAttribute}
	}
	if l.Topology().Kind == layer.KindEnveloping {
		return nil, errors.Wrapf(errors.ErrInvalidInput,
			"layer %q is enveloping; conflict resolution needs elementary spans", l.Name())
	}

	candidates, err := collect(l, opts)
	if err != nil {
		return nil, err
	}

	var kept []*candidate
	switch opts.Strategy {
	case StrategyMax:
		kept = resolveGreedy(candidates, false)
	case StrategyMin:
		kept = resolveGreedy(candidates, true)
	case StrategyAll:
		kept = resolveAll(candidates)
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].start != kept[j].start {
			return kept[i].start < kept[j].start
		}
		return kept[i].end < kept[j].end
	})

	out, err := layer.New(l.Def())
	if err != nil {
		return nil, err
	}
	for _, c := range kept {
		base, err := span.NewElementary(c.start, c.end)
		if err != nil {
			return nil, err
		}
		for _, a := range c.annotations {
			if _, err := out.AddAnnotation(base, a.Values()); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// collect builds one candidate per span location, pruning ambiguous
// annotation lists down to the best priority.
func collect(l *layer.Layer, opts Options) ([]*candidate, error) {
	candidates := make([]*candidate, 0, l.Len())
	for i := 0; i < l.Len(); i++ {
		s := l.At(i)
		best := 0
		var keep []*layer.Annotation
		for j, a := range s.Annotations() {
			v, ok := a.Value(opts.PriorityAttribute)
			p, numeric := asInt(v)
			if !ok || !numeric {
				return nil, &errors.MissingPriorityError{
					Layer: l.Name(), Attribute: opts.PriorityAttribute,
					Start: s.Start(), End: s.End(),
				}
			}
			switch {
			case j == 0 || p < best:
				best = p
				keep = keep[:0]
				keep = append(keep, a)
			case p == best && opts.KeepEqual:
				keep = append(keep, a)
			}
		}
		candidates = append(candidates, &candidate{
			start: s.Start(), end: s.End(),
			priority: best, order: i, annotations: keep,
		})
	}
	return candidates, nil
}

// resolveGreedy implements MAX and MIN: repeatedly commit the strongest
// still-unresolved candidate and discard everything overlapping it. The
// strongest candidate has the lowest priority value; ties prefer the longest
// span for MAX and the shortest for MIN, then the earliest original order.
func resolveGreedy(candidates []*candidate, shortestWins bool) []*candidate {
	alive := make([]*candidate, len(candidates))
	copy(alive, candidates)
	var kept []*candidate
	for len(alive) > 0 {
		winner := alive[0]
		for _, c := range alive[1:] {
			if beats(c, winner, shortestWins) {
				winner = c
			}
		}
		kept = append(kept, winner)
		next := alive[:0]
		for _, c := range alive {
			if !c.overlaps(winner) {
				next = append(next, c)
			}
		}
		alive = next
	}
	return kept
}

// beats reports whether candidate a outranks candidate b.
func beats(a, b *candidate, shortestWins bool) bool {
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	if a.length() != b.length() {
		if shortestWins {
			return a.length() < b.length()
		}
		return a.length() > b.length()
	}
	return a.order < b.order
}

// resolveAll implements ALL: walking candidates from the highest priority
// down, each surviving candidate removes every strictly lower-priority
// candidate it overlaps. Equal-priority overlaps survive together.
func resolveAll(candidates []*candidate) []*candidate {
	ordered := make([]*candidate, len(candidates))
	copy(ordered, candidates)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].priority != ordered[j].priority {
			return ordered[i].priority < ordered[j].priority
		}
		return ordered[i].order < ordered[j].order
	})
	removed := make(map[*candidate]bool, len(ordered))
	var kept []*candidate
	for _, c := range ordered {
		if removed[c] {
			continue
		}
		kept = append(kept, c)
		for _, d := range ordered {
			if d.priority > c.priority && !removed[d] && c.overlaps(d) {
				removed[d] = true
			}
		}
	}
	return kept
}

// asInt coerces a priority value to int. JSON-decoded records carry float64.
func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	case float32:
		if n == float32(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}
