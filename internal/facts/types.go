package facts

import (
	"fmt"
	"strings"

	"aquascope/internal/source"
)

type (
	// LoanKey identifies a borrow within one analysis run.
	LoanKey string
	// MoveKey identifies a move within one analysis run.
	MoveKey string
)

// Namespace separates loan facts from move facts.
type Namespace uint8

const (
	NamespaceLoan Namespace = iota + 1
	NamespaceMove
)

func (ns Namespace) String() string {
	switch ns {
	case NamespaceLoan:
		return "loan"
	case NamespaceMove:
		return "move"
	default:
		return "unknown"
	}
}

// ParseNamespace converts "loan" or "move" into a Namespace.
func ParseNamespace(s string) (Namespace, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "loan", "loans":
		return NamespaceLoan, nil
	case "move", "moves":
		return NamespaceMove, nil
	default:
		return 0, fmt.Errorf("invalid namespace: %q (expected: loan|move)", s)
	}
}

// MarshalText encodes the namespace by name.
func (ns Namespace) MarshalText() ([]byte, error) {
	return []byte(ns.String()), nil
}

// UnmarshalText decodes a namespace name.
func (ns *Namespace) UnmarshalText(b []byte) error {
	v, err := ParseNamespace(string(b))
	if err != nil {
		return err
	}
	*ns = v
	return nil
}

// CharRange is a half-open character range as reported by the analysis.
type CharRange struct {
	CharStart uint32 `json:"char_start" msgpack:"s"`
	CharEnd   uint32 `json:"char_end" msgpack:"e"`
}

// Span converts the range into a document span.
func (r CharRange) Span() source.Span {
	return source.Span{Start: r.CharStart, End: r.CharEnd}
}

// Empty reports a zero-width range.
func (r CharRange) Empty() bool {
	return r.CharStart == r.CharEnd
}

// Region is the ordered list of ranges over which a loan or move is active.
type Region struct {
	RefinedRanges []CharRange `json:"refined_ranges" msgpack:"r"`
}

// Visible returns the sub-ranges that have a width. Zero-width entries carry
// no visual meaning.
func (r Region) Visible() []CharRange {
	out := make([]CharRange, 0, len(r.RefinedRanges))
	for _, rng := range r.RefinedRanges {
		if rng.CharStart != rng.CharEnd {
			out = append(out, rng)
		}
	}
	return out
}
