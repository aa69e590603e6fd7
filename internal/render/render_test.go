package render

import (
	"errors"
	"strings"
	"testing"

	"aquascope/internal/deco"
	"aquascope/internal/editor"
	"aquascope/internal/facts"
	"aquascope/internal/source"
	"aquascope/internal/tag"
)

func record(point facts.CharRange, ranges ...facts.CharRange) facts.ActionFacts {
	return facts.ActionFacts{
		Namespace:    facts.NamespaceLoan,
		Key:          "L0",
		RefinerTag:   "tagPOINT",
		RegionTag:    "tagREGION",
		RefinerPoint: point,
		Region:       facts.Region{RefinedRanges: ranges},
	}
}

func TestToDecorationsDropsZeroWidthSubRanges(t *testing.T) {
	rec := record(facts.CharRange{CharStart: 1, CharEnd: 4},
		facts.CharRange{CharStart: 5, CharEnd: 5},
		facts.CharRange{CharStart: 10, CharEnd: 20},
		facts.CharRange{CharStart: 20, CharEnd: 20},
	)
	got := ToDecorations(rec)
	if len(got) != 2 {
		t.Fatalf("expected point + one highlight, got %v", got)
	}
	hl := got[1]
	if hl.From != 10 || hl.To != 20 {
		t.Fatalf("highlight spans %d-%d, want 10-20", hl.From, hl.To)
	}
	if hl.Value.TagName != "tagREGION" || hl.Value.Class != LiveRegionClass {
		t.Fatalf("highlight decoration = %+v", hl.Value)
	}
}

func TestToDecorationsKeepsZeroWidthPoint(t *testing.T) {
	got := ToDecorations(record(facts.CharRange{CharStart: 3, CharEnd: 3}))
	if len(got) != 1 {
		t.Fatalf("expected only the point marker, got %v", got)
	}
	p := got[0]
	if p.From != 3 || p.To != 3 || p.Value.TagName != "tagPOINT" || p.Value.Class != LoanClass {
		t.Fatalf("point marker = %v %+v", p, p.Value)
	}
}

func TestCustomClasses(t *testing.T) {
	r := New(Classes{Loan: "borrow"})
	got := r.ToDecorations(record(facts.CharRange{CharStart: 0, CharEnd: 1}, facts.CharRange{CharStart: 2, CharEnd: 3}))
	if got[0].Value.Class != "borrow" {
		t.Fatalf("custom loan class ignored: %q", got[0].Value.Class)
	}
	if got[1].Value.Class != LiveRegionClass {
		t.Fatalf("empty class should fall back to default, got %q", got[1].Value.Class)
	}
}

func newFactsState(t *testing.T, r *Renderer, text string, out *facts.AnalysisOutput) (*editor.State, []facts.ActionFacts) {
	t.Helper()
	_, records, err := facts.Generate(out, tag.NewSession(tag.NewSeeded(5), 0))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	s := editor.NewState(source.NewText(text), r.Fields()...)
	s, err = s.Dispatch(editor.Transaction{Effects: []editor.Effect{r.SetFacts(records)}})
	if err != nil {
		t.Fatalf("dispatch facts: %v", err)
	}
	return s, records
}

func loanSet(t *testing.T, s *editor.State, r *Renderer) deco.Set {
	t.Helper()
	set, err := editor.Get(s, r.LoanFactsField)
	if err != nil {
		t.Fatal(err)
	}
	return set
}

func TestLoanFactsFieldBatchesAllRecords(t *testing.T) {
	r := New(DefaultClasses())
	out := &facts.AnalysisOutput{}
	// записи намеренно идут не по возрастанию смещений
	out.AddLoan("late", facts.CharRange{CharStart: 20, CharEnd: 22}, facts.Region{
		RefinedRanges: []facts.CharRange{{CharStart: 22, CharEnd: 30}},
	})
	out.AddMove("early", facts.CharRange{CharStart: 2, CharEnd: 3}, facts.Region{
		RefinedRanges: []facts.CharRange{{CharStart: 3, CharEnd: 9}, {CharStart: 12, CharEnd: 12}},
	})
	s, records := newFactsState(t, r, strings.Repeat("x", 40), out)

	set := loanSet(t, s, r)
	if set.Len() != 4 {
		t.Fatalf("expected 4 decorations, got %d", set.Len())
	}
	var prev uint32
	for rng := range set.All() {
		if rng.From < prev {
			t.Fatalf("set not sorted: %v", set.Ranges())
		}
		prev = rng.From
	}
	first := set.Ranges()[0]
	if first.Value.TagName != records[1].RefinerTag {
		t.Fatalf("first decoration should be the move point, got %v", first)
	}
}

func TestLoanFactsFieldRemapsAndClears(t *testing.T) {
	r := New(DefaultClasses())
	out := &facts.AnalysisOutput{}
	out.AddLoan("L", facts.CharRange{CharStart: 4, CharEnd: 6}, facts.Region{
		RefinedRanges: []facts.CharRange{{CharStart: 6, CharEnd: 10}},
	})
	s, _ := newFactsState(t, r, "0123456789abcdef", out)

	cs, err := source.NewChangeSet(s.Doc().Len(), source.Change{From: 0, To: 0, Insert: "ab"})
	if err != nil {
		t.Fatal(err)
	}
	s, err = s.Dispatch(editor.Transaction{Changes: cs})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	rs := loanSet(t, s, r).Ranges()
	if len(rs) != 2 || rs[0].From != 6 || rs[1].From != 8 || rs[1].To != 12 {
		t.Fatalf("unexpected remapped ranges %v", rs)
	}

	s, err = s.Dispatch(editor.Transaction{Effects: []editor.Effect{r.ClearFacts()}})
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if loanSet(t, s, r).Len() != 0 {
		t.Fatal("ClearFacts should empty the collection")
	}
}

func TestLoanFactsFieldPropagatesRangeErrors(t *testing.T) {
	r := New(DefaultClasses())
	s := editor.NewState(source.NewText("tiny"), r.Fields()...)
	bad := []facts.ActionFacts{record(facts.CharRange{CharStart: 1, CharEnd: 2}, facts.CharRange{CharStart: 2, CharEnd: 50})}
	if _, err := s.Dispatch(editor.Transaction{Effects: []editor.Effect{r.SetFacts(bad)}}); !errors.Is(err, editor.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	inverted := []facts.ActionFacts{record(facts.CharRange{CharStart: 3, CharEnd: 1})}
	if _, err := s.Dispatch(editor.Transaction{Effects: []editor.Effect{r.SetFacts(inverted)}}); !errors.Is(err, deco.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestHiddenLinesFollowEdits(t *testing.T) {
	r := New(DefaultClasses())
	s := editor.NewState(source.NewText("one\ntwo\nthree"), r.Fields()...)
	s, err := s.Dispatch(editor.Transaction{Effects: []editor.Effect{r.Hide(2), r.Hide(2)}})
	if err != nil {
		t.Fatalf("hide: %v", err)
	}
	hidden, err := editor.Get(s, r.HiddenLines)
	if err != nil {
		t.Fatal(err)
	}
	if hidden.Len() != 1 || hidden.Ranges()[0].From != 4 {
		t.Fatalf("expected one line marker at 4, got %v", hidden.Ranges())
	}

	cs, err := source.NewChangeSet(s.Doc().Len(), source.Change{From: 0, To: 0, Insert: "zero\n"})
	if err != nil {
		t.Fatal(err)
	}
	// в той же транзакции строка 4 это уже бывшая третья
	s, err = s.Dispatch(editor.Transaction{Changes: cs, Effects: []editor.Effect{r.Hide(4)}})
	if err != nil {
		t.Fatalf("edit+hide: %v", err)
	}
	hidden, _ = editor.Get(s, r.HiddenLines)
	rs := hidden.Ranges()
	if len(rs) != 2 || rs[0].From != 9 || rs[1].From != 13 {
		t.Fatalf("expected markers at 9 and 13, got %v", rs)
	}
	for _, rng := range rs {
		if line := s.Doc().LineAt(rng.From); line.From != rng.From {
			t.Fatalf("marker %d is not at a line start", rng.From)
		}
	}
}

func TestHideLineOutOfRange(t *testing.T) {
	r := New(DefaultClasses())
	s := editor.NewState(source.NewText("only"), r.Fields()...)
	if _, err := s.Dispatch(editor.Transaction{Effects: []editor.Effect{r.Hide(3)}}); !errors.Is(err, source.ErrLineOutOfRange) {
		t.Fatalf("expected ErrLineOutOfRange, got %v", err)
	}
}

func TestRenderersAreIndependent(t *testing.T) {
	a, b := New(DefaultClasses()), New(DefaultClasses())
	s := editor.NewState(source.NewText("abcdef"), a.Fields()...)
	s, err := s.Dispatch(editor.Transaction{Effects: []editor.Effect{b.SetFacts([]facts.ActionFacts{record(facts.CharRange{CharStart: 0, CharEnd: 1})})}})
	if err != nil {
		t.Fatal(err)
	}
	if loanSet(t, s, a).Len() != 0 {
		t.Fatal("renderer a reacted to renderer b's effect")
	}
}
