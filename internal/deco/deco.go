// Package deco holds editor decorations and the immutable, sorted range
// collection they live in.
package deco

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"aquascope/internal/source"
)

var (
	// ErrInvalidRange is returned for a range whose start lies after its end.
	ErrInvalidRange = errors.New("invalid decoration range")
	// ErrUnsorted is returned when unsorted ranges are passed without asking for sorting.
	ErrUnsorted = errors.New("decoration ranges not sorted")
)

// Kind distinguishes inline marks from whole-line decorations.
type Kind uint8

const (
	// KindMark styles a span of text and renders as its own element.
	KindMark Kind = iota
	// KindLine styles the line that starts at the range's position.
	KindLine
)

func (k Kind) String() string {
	switch k {
	case KindMark:
		return "mark"
	case KindLine:
		return "line"
	default:
		return "unknown"
	}
}

// Decoration is what a range renders as. TagName, when set, becomes the
// element name of the rendered node so it can be found again later.
type Decoration struct {
	Kind    Kind
	Class   string
	TagName string
}

// Mark returns a mark decoration.
func Mark(class, tagName string) Decoration {
	return Decoration{Kind: KindMark, Class: class, TagName: tagName}
}

// Line returns a line decoration.
func Line(class string) Decoration {
	return Decoration{Kind: KindLine, Class: class}
}

// Range places a decoration at [From, To). Line decorations are points (From == To).
func (d Decoration) Range(from, to uint32) Range {
	return Range{From: from, To: to, Value: d}
}

// At places a line decoration at pos.
func (d Decoration) At(pos uint32) Range {
	return Range{From: pos, To: pos, Value: d}
}

// Range is a decoration attached to document offsets.
type Range struct {
	From  uint32
	To    uint32
	Value Decoration
}

func (r Range) Span() source.Span {
	return source.Span{Start: r.From, End: r.To}
}

func (r Range) String() string {
	name := r.Value.TagName
	if name == "" {
		name = r.Value.Class
	}
	return fmt.Sprintf("%s %s@%d-%d", r.Value.Kind, name, r.From, r.To)
}

// compare orders ranges by start, line decorations first, then wider ranges
// first so enclosing marks come before the marks they contain.
func compare(a, b Range) int {
	switch {
	case a.From != b.From:
		if a.From < b.From {
			return -1
		}
		return 1
	case a.Value.Kind != b.Value.Kind:
		if a.Value.Kind == KindLine {
			return -1
		}
		return 1
	case a.To != b.To:
		if a.To > b.To {
			return -1
		}
		return 1
	}
	return 0
}

// Set is an immutable collection of ranges in ascending start order.
// The zero value is the empty set.
type Set struct {
	ranges []Range
}

// None is the empty set.
var None = Set{}

// Of builds a set. With sort == false the ranges must already be in order.
func Of(ranges []Range, sort bool) (Set, error) {
	for _, r := range ranges {
		if r.From > r.To {
			return Set{}, fmt.Errorf("%w: %s", ErrInvalidRange, r)
		}
	}
	out := slices.Clone(ranges)
	if sort {
		slices.SortStableFunc(out, compare)
	} else {
		for i := 1; i < len(out); i++ {
			if out[i-1].From > out[i].From {
				return Set{}, fmt.Errorf("%w: %s before %s", ErrUnsorted, out[i-1], out[i])
			}
		}
	}
	return Set{ranges: out}, nil
}

// Len returns the number of ranges.
func (s Set) Len() int {
	return len(s.ranges)
}

// Ranges returns a copy of the ranges in order.
func (s Set) Ranges() []Range {
	return slices.Clone(s.ranges)
}

// All iterates the ranges in order.
func (s Set) All() iter.Seq[Range] {
	return func(yield func(Range) bool) {
		for _, r := range s.ranges {
			if !yield(r) {
				return
			}
		}
	}
}

// Between returns the ranges overlapping [from, to). Empty ranges count when
// they sit inside [from, to]; an empty query matches ranges covering from.
func (s Set) Between(from, to uint32) []Range {
	var out []Range
	for _, r := range s.ranges {
		if r.From > to {
			break
		}
		switch {
		case r.From == r.To:
			if r.From >= from {
				out = append(out, r)
			}
		case from == to:
			if r.From <= from && from < r.To {
				out = append(out, r)
			}
		case r.From < to && r.To > from:
			out = append(out, r)
		}
	}
	return out
}

// MaxTo returns the largest end offset in the set.
func (s Set) MaxTo() uint32 {
	var m uint32
	for _, r := range s.ranges {
		if r.To > m {
			m = r.To
		}
	}
	return m
}

// Map moves every range through a change set. Marks keep text inserted at
// their edges outside; a non-empty mark whose text is deleted entirely is
// dropped. Line decorations stick to the start of their line.
func (s Set) Map(changes *source.ChangeSet) Set {
	if changes.Empty() || len(s.ranges) == 0 {
		return s
	}
	out := make([]Range, 0, len(s.ranges))
	for _, r := range s.ranges {
		switch r.Value.Kind {
		case KindLine:
			pos := changes.MapPos(r.From, -1)
			out = append(out, Range{From: pos, To: pos, Value: r.Value})
		default:
			if r.From == r.To {
				pos := changes.MapPos(r.From, 1)
				out = append(out, Range{From: pos, To: pos, Value: r.Value})
				continue
			}
			from := changes.MapPos(r.From, 1)
			to := changes.MapPos(r.To, -1)
			if from >= to {
				continue
			}
			out = append(out, Range{From: from, To: to, Value: r.Value})
		}
	}
	slices.SortStableFunc(out, compare)
	return Set{ranges: out}
}

// Update returns a set with the given ranges merged in.
func (s Set) Update(add ...Range) (Set, error) {
	if len(add) == 0 {
		return s, nil
	}
	merged := make([]Range, 0, len(s.ranges)+len(add))
	merged = append(merged, s.ranges...)
	merged = append(merged, add...)
	return Of(merged, true)
}

// Filter returns the ranges for which keep reports true.
func (s Set) Filter(keep func(Range) bool) Set {
	out := make([]Range, 0, len(s.ranges))
	for _, r := range s.ranges {
		if keep(r) {
			out = append(out, r)
		}
	}
	return Set{ranges: out}
}
