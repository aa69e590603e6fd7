package source

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// ErrInvalidChange is returned for changes that overlap or leave the document.
var ErrInvalidChange = errors.New("invalid change")

// Change replaces the characters [From, To) of the original document with Insert.
type Change struct {
	From   uint32
	To     uint32
	Insert string
}

// ChangeSet is a batch of non-overlapping changes expressed in the
// coordinates of the document they apply to.
type ChangeSet struct {
	changes   []Change
	insertLen []uint32
	docLen    uint32
	newLen    uint32
}

// NewChangeSet validates and orders changes against a document of docLen characters.
func NewChangeSet(docLen uint32, changes ...Change) (*ChangeSet, error) {
	sorted := slices.Clone(changes)
	slices.SortStableFunc(sorted, func(a, b Change) int {
		switch {
		case a.From < b.From:
			return -1
		case a.From > b.From:
			return 1
		}
		return 0
	})

	cs := &ChangeSet{
		changes:   sorted,
		insertLen: make([]uint32, len(sorted)),
		docLen:    docLen,
	}
	newLen := int64(docLen)
	var prevTo uint32
	for i, c := range sorted {
		if c.From > c.To {
			return nil, fmt.Errorf("%w: from %d > to %d", ErrInvalidChange, c.From, c.To)
		}
		if c.To > docLen {
			return nil, fmt.Errorf("%w: %d-%d past document end %d", ErrInvalidChange, c.From, c.To, docLen)
		}
		if i > 0 && c.From < prevTo {
			return nil, fmt.Errorf("%w: %d-%d overlaps previous change ending at %d", ErrInvalidChange, c.From, c.To, prevTo)
		}
		prevTo = c.To
		n := mustUint32(utf8.RuneCountInString(c.Insert))
		cs.insertLen[i] = n
		newLen += int64(n) - int64(c.To-c.From)
	}
	cs.newLen = mustUint32(int(newLen))
	return cs, nil
}

// Empty reports whether the set changes nothing.
func (cs *ChangeSet) Empty() bool {
	return cs == nil || len(cs.changes) == 0
}

// Changes returns a copy of the ordered changes.
func (cs *ChangeSet) Changes() []Change {
	if cs == nil {
		return nil
	}
	return slices.Clone(cs.changes)
}

// DocLen is the length of the document the set applies to.
func (cs *ChangeSet) DocLen() uint32 {
	if cs == nil {
		return 0
	}
	return cs.docLen
}

// NewLen is the length of the document after applying the set.
func (cs *ChangeSet) NewLen() uint32 {
	if cs == nil {
		return 0
	}
	return cs.newLen
}

// MapPos maps a position in the original document to the changed one.
//
// Positions before a change are untouched. A position at the start of a
// replaced range stays at its start, one at its end follows the inserted
// text. Positions strictly inside a replaced range, or exactly at a pure
// insertion, go before the inserted text when assoc < 0 and after it otherwise.
func (cs *ChangeSet) MapPos(pos uint32, assoc int) uint32 {
	if cs.Empty() {
		return pos
	}
	var delta int64
	for i, c := range cs.changes {
		ins := int64(cs.insertLen[i])
		switch {
		case pos < c.From:
			return shift(pos, delta)
		case c.From == c.To && pos == c.From:
			if assoc < 0 {
				return shift(pos, delta)
			}
			delta += ins
		case pos > c.To:
			delta += ins - int64(c.To-c.From)
		case pos == c.From:
			return shift(c.From, delta)
		case pos == c.To:
			return shift(c.From, delta+ins)
		default:
			if assoc < 0 {
				return shift(c.From, delta)
			}
			return shift(c.From, delta+ins)
		}
	}
	return shift(pos, delta)
}

// Touches reports whether any change replaces or inserts text within [from, to].
func (cs *ChangeSet) Touches(from, to uint32) bool {
	if cs.Empty() {
		return false
	}
	for _, c := range cs.changes {
		if c.From <= to && c.To >= from {
			return true
		}
	}
	return false
}

// Apply returns a new document with the changes applied.
func (cs *ChangeSet) Apply(t *Text) *Text {
	if cs.Empty() {
		return t
	}
	var b strings.Builder
	b.Grow(len(t.content))
	var last uint32
	for _, c := range cs.changes {
		b.WriteString(t.Slice(last, c.From))
		b.WriteString(c.Insert)
		last = c.To
	}
	b.WriteString(t.Slice(last, t.chars))
	return newText(t.Path, b.String(), t.Flags)
}

func shift(pos uint32, delta int64) uint32 {
	v := int64(pos) + delta
	if v < 0 {
		return 0
	}
	return mustUint32(int(v))
}
