// Package span defines the base span types of the Strata data model: immutable
// half-open text intervals, either elementary (a single [start, end) slice) or
// enveloping (an ordered run of elementary child spans).
//
// Base spans carry no annotations and no layer reference; they are pure
// locations. Ordering and identity are lexicographic on (start, end) only.
package span

import (
	"fmt"

	"github.com/strata-nlp/strata/core/errors"
)

// BaseSpan is a location over a text: a half-open interval [Start, End).
type BaseSpan interface {
	// Start is the 0-indexed offset of the first covered position.
	Start() int
	// End is the offset one past the last covered position.
	End() int
	// Len is End - Start.
	Len() int
	// IsEnveloping reports whether the span is a composite over child spans.
	IsEnveloping() bool
}

// Elementary is a leaf interval [start, end) with 0 <= start < end.
// The zero value is invalid; construct with NewElementary.
type Elementary struct {
	start int
	end   int
}

// NewElementary creates an elementary span. It fails with a RangeError when
// either offset is negative or start >= end.
func NewElementary(start, end int) (Elementary, error) {
	if start < 0 || end < 0 || start >= end {
		return Elementary{}, &errors.RangeError{Start: start, End: end}
	}
	return Elementary{start: start, end: end}, nil
}

// MustElementary creates an elementary span and panics on an invalid range.
// Intended for literals in tests and initialization code.
func MustElementary(start, end int) Elementary {
	s, err := NewElementary(start, end)
	if err != nil {
		panic(err)
	}
	return s
}

// Start returns the start offset.
func (s Elementary) Start() int { return s.start }

// End returns the end offset.
func (s Elementary) End() int { return s.end }

// Len returns the covered length.
func (s Elementary) Len() int { return s.end - s.start }

// IsEnveloping returns false for elementary spans.
func (s Elementary) IsEnveloping() bool { return false }

func (s Elementary) String() string {
	return fmt.Sprintf("[%d, %d)", s.start, s.end)
}

// Enveloping is a composite span over an ordered, non-overlapping run of
// elementary child spans. Its extent is [children[0].Start, children[last].End).
// The zero value is invalid; construct with NewEnveloping.
type Enveloping struct {
	children []Elementary
}

// NewEnveloping creates an enveloping span over the given children. It fails
// with a ChildOrderError when the child list is empty or any child starts
// before the previous child ends. Gaps between children are allowed.
func NewEnveloping(children []Elementary) (Enveloping, error) {
	if len(children) == 0 {
		return Enveloping{}, &errors.ChildOrderError{Index: -1, Message: "at least one child span is required"}
	}
	for i := 1; i < len(children); i++ {
		if children[i].Start() < children[i-1].End() {
			return Enveloping{}, &errors.ChildOrderError{
				Index: i,
				Message: fmt.Sprintf("child %v starts before previous child %v ends",
					children[i], children[i-1]),
			}
		}
	}
	owned := make([]Elementary, len(children))
	copy(owned, children)
	return Enveloping{children: owned}, nil
}

// MustEnveloping creates an enveloping span and panics on invalid children.
func MustEnveloping(children ...Elementary) Enveloping {
	s, err := NewEnveloping(children)
	if err != nil {
		panic(err)
	}
	return s
}

// Start returns the start of the first child.
func (s Enveloping) Start() int { return s.children[0].Start() }

// End returns the end of the last child.
func (s Enveloping) End() int { return s.children[len(s.children)-1].End() }

// Len returns End - Start, including any gaps between children.
func (s Enveloping) Len() int { return s.End() - s.Start() }

// IsEnveloping returns true for enveloping spans.
func (s Enveloping) IsEnveloping() bool { return true }

// Children returns the child spans in order. The returned slice is a copy.
func (s Enveloping) Children() []Elementary {
	out := make([]Elementary, len(s.children))
	copy(out, s.children)
	return out
}

// ChildCount returns the number of child spans.
func (s Enveloping) ChildCount() int { return len(s.children) }

// Child returns the i-th child span.
func (s Enveloping) Child(i int) Elementary { return s.children[i] }

func (s Enveloping) String() string {
	return fmt.Sprintf("[%d, %d)/%d children", s.Start(), s.End(), len(s.children))
}

// Compare orders two base spans lexicographically by (start, end).
// It returns -1, 0 or +1. Annotation content never participates in ordering.
func Compare(a, b BaseSpan) int {
	switch {
	case a.Start() < b.Start():
		return -1
	case a.Start() > b.Start():
		return 1
	case a.End() < b.End():
		return -1
	case a.End() > b.End():
		return 1
	}
	return 0
}

// SameLocation reports whether two base spans share identical (start, end)
// boundaries. This is span identity for layer uniqueness purposes.
func SameLocation(a, b BaseSpan) bool {
	return a.Start() == b.Start() && a.End() == b.End()
}

// Overlaps reports whether two base spans share at least one text position.
func Overlaps(a, b BaseSpan) bool {
	return a.Start() < b.End() && b.Start() < a.End()
}
