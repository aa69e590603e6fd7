package editor

import (
	"errors"
	"fmt"

	"aquascope/internal/deco"
	"aquascope/internal/source"
)

var (
	// ErrOutOfRange is returned when a decoration points past the document end.
	ErrOutOfRange = errors.New("decoration out of document range")
	// ErrDocMismatch is returned when a change set was built for another document length.
	ErrDocMismatch = errors.New("change set does not match document")
	// ErrUnknownField is returned when a field is not part of the state.
	ErrUnknownField = errors.New("field not in state")
)

// Transaction describes one dispatch: an optional edit plus effects.
type Transaction struct {
	Changes *source.ChangeSet
	Effects []Effect
}

// DocChanged reports whether the transaction edits the document.
func (tr Transaction) DocChanged() bool {
	return !tr.Changes.Empty()
}

// Update is what a field sees while a transaction is applied.
type Update struct {
	Transaction
	// Start is the state before the transaction.
	Start *State
	// Doc is the document after the transaction's changes.
	Doc *source.Text
}

// FieldSpec is implemented by *Field values; it lets a State hold fields of
// different value types.
type FieldSpec interface {
	FieldName() string
	initial(doc *source.Text) any
	step(value any, u *Update) (any, error)
	decorations(value any) (deco.Set, bool)
}

// Field is a piece of state with a typed value.
type Field[V any] struct {
	name    string
	create  func(doc *source.Text) V
	update  func(value V, u *Update) (V, error)
	provide func(value V) deco.Set
}

// DefineField creates a field definition.
func DefineField[V any](name string, create func(doc *source.Text) V, update func(value V, u *Update) (V, error)) *Field[V] {
	return &Field[V]{name: name, create: create, update: update}
}

// ProvideDecorations marks the field as a decoration source.
func (f *Field[V]) ProvideDecorations(fn func(value V) deco.Set) *Field[V] {
	f.provide = fn
	return f
}

func (f *Field[V]) FieldName() string { return f.name }

func (f *Field[V]) initial(doc *source.Text) any { return f.create(doc) }

func (f *Field[V]) step(value any, u *Update) (any, error) {
	return f.update(value.(V), u)
}

func (f *Field[V]) decorations(value any) (deco.Set, bool) {
	if f.provide == nil {
		return deco.None, false
	}
	return f.provide(value.(V)), true
}

// State is an immutable editor state.
type State struct {
	doc    *source.Text
	fields []FieldSpec
	values []any
	index  map[FieldSpec]int
}

// NewState creates a state for doc holding the given fields at their initial values.
func NewState(doc *source.Text, fields ...FieldSpec) *State {
	if doc == nil {
		doc = source.NewText("")
	}
	s := &State{
		doc:    doc,
		fields: fields,
		values: make([]any, len(fields)),
		index:  make(map[FieldSpec]int, len(fields)),
	}
	for i, f := range fields {
		s.index[f] = i
		s.values[i] = f.initial(doc)
	}
	return s
}

// Doc returns the document.
func (s *State) Doc() *source.Text {
	return s.doc
}

// Fields returns the field definitions in order.
func (s *State) Fields() []FieldSpec {
	out := make([]FieldSpec, len(s.fields))
	copy(out, s.fields)
	return out
}

// Get returns the value of a field.
func Get[V any](s *State, f *Field[V]) (V, error) {
	i, ok := s.index[f]
	if !ok {
		var zero V
		return zero, fmt.Errorf("%w: %s", ErrUnknownField, f.name)
	}
	return s.values[i].(V), nil
}

// Dispatch applies a transaction and returns the new state. The receiver is
// never modified.
func (s *State) Dispatch(tr Transaction) (*State, error) {
	if tr.DocChanged() && tr.Changes.DocLen() != s.doc.Len() {
		return nil, fmt.Errorf("%w: built for length %d, document has %d", ErrDocMismatch, tr.Changes.DocLen(), s.doc.Len())
	}
	next := &State{
		doc:    tr.Changes.Apply(s.doc),
		fields: s.fields,
		values: make([]any, len(s.values)),
		index:  s.index,
	}
	u := &Update{Transaction: tr, Start: s, Doc: next.doc}
	for i, f := range s.fields {
		v, err := f.step(s.values[i], u)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.FieldName(), err)
		}
		next.values[i] = v
	}
	return next, nil
}

// Decorations returns the sets of all decoration-providing fields in field order.
func Decorations(s *State) []deco.Set {
	out := make([]deco.Set, 0, len(s.fields))
	for i, f := range s.fields {
		if set, ok := f.decorations(s.values[i]); ok {
			out = append(out, set)
		}
	}
	return out
}

// CheckBounds verifies that every range of set fits a document of docLen characters.
func CheckBounds(set deco.Set, docLen uint32) error {
	for r := range set.All() {
		if r.To > docLen {
			return fmt.Errorf("%w: %s, document length %d", ErrOutOfRange, r, docLen)
		}
	}
	return nil
}
