package editor

import (
	"errors"
	"fmt"
	"testing"

	"aquascope/internal/deco"
	"aquascope/internal/source"
)

func mustChanges(t *testing.T, docLen uint32, changes ...source.Change) *source.ChangeSet {
	t.Helper()
	cs, err := source.NewChangeSet(docLen, changes...)
	if err != nil {
		t.Fatalf("NewChangeSet: %v", err)
	}
	return cs
}

func mustSet(t *testing.T, s *State, f *Field[deco.Set]) deco.Set {
	t.Helper()
	v, err := Get(s, f)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return v
}

func TestDecorationFieldRemapsOnEdit(t *testing.T) {
	doc := source.NewText("0123456789abcdefghijklmnopqrstuvwxyz")
	df := NewDecorationField("widgets")
	s := NewState(doc, df.Field)

	const n = 6
	ranges := make([]deco.Range, 0, n)
	for i := 0; i < n; i++ {
		from := uint32(2 + 5*i)
		ranges = append(ranges, deco.Mark(fmt.Sprintf("w%d", i), "").Range(from, from+3))
	}
	s, err := s.Dispatch(Transaction{Effects: []Effect{df.Set(ranges...)}})
	if err != nil {
		t.Fatalf("dispatch set: %v", err)
	}
	before := mustSet(t, s, df.Field).Ranges()
	if len(before) != n {
		t.Fatalf("expected %d ranges, got %d", n, len(before))
	}

	s, err = s.Dispatch(Transaction{Changes: mustChanges(t, doc.Len(), source.Change{From: 0, To: 0, Insert: "+++++"})})
	if err != nil {
		t.Fatalf("dispatch edit: %v", err)
	}
	after := mustSet(t, s, df.Field).Ranges()
	if len(after) != n {
		t.Fatalf("edit changed range count: %d -> %d", n, len(after))
	}
	for i := range after {
		if after[i].From != before[i].From+5 || after[i].To != before[i].To+5 {
			t.Errorf("range %d: %d-%d -> %d-%d, want +5", i, before[i].From, before[i].To, after[i].From, after[i].To)
		}
	}
}

func TestDecorationFieldSortsReplacement(t *testing.T) {
	df := NewDecorationField("widgets")
	s := NewState(source.NewText("some text here"), df.Field)
	s, err := s.Dispatch(Transaction{Effects: []Effect{df.Set(
		deco.Mark("late", "").Range(8, 12),
		deco.Mark("early", "").Range(0, 4),
	)}})
	if err != nil {
		t.Fatal(err)
	}
	rs := mustSet(t, s, df.Field).Ranges()
	if rs[0].Value.Class != "early" || rs[1].Value.Class != "late" {
		t.Fatalf("expected sorted ranges, got %v", rs)
	}
}

func TestReplaceIsInterpretedAfterEdit(t *testing.T) {
	doc := source.NewText("abc")
	df := NewDecorationField("widgets")
	s := NewState(doc, df.Field)

	// диапазон 3-6 существует только в документе после вставки
	s, err := s.Dispatch(Transaction{
		Changes: mustChanges(t, doc.Len(), source.Change{From: 3, To: 3, Insert: "def"}),
		Effects: []Effect{df.Set(deco.Mark("new", "").Range(3, 6))},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	rs := mustSet(t, s, df.Field).Ranges()
	if len(rs) != 1 || rs[0].From != 3 || rs[0].To != 6 {
		t.Fatalf("unexpected ranges %v", rs)
	}
	if s.Doc().String() != "abcdef" {
		t.Fatalf("doc = %q", s.Doc().String())
	}
}

func TestDispatchErrorsKeepState(t *testing.T) {
	doc := source.NewText("short")
	df := NewDecorationField("widgets")
	s := NewState(doc, df.Field)

	_, err := s.Dispatch(Transaction{Effects: []Effect{df.Set(deco.Mark("x", "").Range(2, 40))}})
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	_, err = s.Dispatch(Transaction{Effects: []Effect{df.Set(deco.Mark("x", "").Range(4, 1))}})
	if !errors.Is(err, deco.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if mustSet(t, s, df.Field).Len() != 0 {
		t.Fatal("failed dispatches must not alter the original state")
	}

	stale := mustChanges(t, 99, source.Change{From: 0, To: 1})
	if _, err := s.Dispatch(Transaction{Changes: stale}); !errors.Is(err, ErrDocMismatch) {
		t.Fatalf("expected ErrDocMismatch, got %v", err)
	}
}

func TestIndependentFieldsDoNotShareEffects(t *testing.T) {
	a := NewDecorationField("a")
	b := NewDecorationField("b")
	s := NewState(source.NewText("0123456789"), a.Field, b.Field)
	s, err := s.Dispatch(Transaction{Effects: []Effect{a.Set(deco.Mark("only-a", "").Range(1, 2))}})
	if err != nil {
		t.Fatal(err)
	}
	if mustSet(t, s, a.Field).Len() != 1 || mustSet(t, s, b.Field).Len() != 0 {
		t.Fatal("effect leaked into the other field")
	}
	sets := Decorations(s)
	if len(sets) != 2 || sets[0].Len() != 1 || sets[1].Len() != 0 {
		t.Fatalf("Decorations = %v", sets)
	}
}

func TestGetUnknownField(t *testing.T) {
	s := NewState(source.NewText(""))
	other := NewDecorationField("other")
	if _, err := Get(s, other.Field); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestEffectTypeMatch(t *testing.T) {
	one := DefineEffect[int]("one")
	two := DefineEffect[int]("two")
	e := one.Of(7)
	if v, ok := one.Match(e); !ok || v != 7 {
		t.Fatalf("Match = %v %v", v, ok)
	}
	if _, ok := two.Match(e); ok {
		t.Fatal("effect types with the same payload must not match each other")
	}
	if !one.Is(e) || two.Is(e) {
		t.Fatal("Is disagrees with Match")
	}
	if e.EffectName() != "one" {
		t.Fatalf("EffectName = %q", e.EffectName())
	}
}
