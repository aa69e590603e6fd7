package source

import (
	"fmt"
)

// Span is a half-open character range [Start, End) in a document.
type Span struct {
	Start uint32 // в символах включительно
	End   uint32 // в символах не включительно
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d-%d", s.Start, s.End)
}

// Contains reports whether off lies inside the span. An empty span contains nothing.
func (s Span) Contains(off uint32) bool {
	return off >= s.Start && off < s.End
}

// Intersects reports whether both spans share at least one character.
func (s Span) Intersects(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}

func (s Span) Cover(other Span) Span {
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}

// Clamp restricts the span to [0, limit].
func (s Span) Clamp(limit uint32) Span {
	if s.Start > limit {
		s.Start = limit
	}
	if s.End > limit {
		s.End = limit
	}
	return s
}
