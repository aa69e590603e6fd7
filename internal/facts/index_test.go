package facts_test

import (
	"errors"
	"fmt"
	"testing"

	"aquascope/internal/facts"
	"aquascope/internal/tag"
	"aquascope/internal/testkit"
)

func sampleOutput() *facts.AnalysisOutput {
	out := &facts.AnalysisOutput{}
	out.AddLoan("L2", facts.CharRange{CharStart: 10, CharEnd: 12}, facts.Region{
		RefinedRanges: []facts.CharRange{{CharStart: 12, CharEnd: 30}},
	})
	out.AddLoan("L0", facts.CharRange{CharStart: 3, CharEnd: 3}, facts.Region{})
	out.AddMove("M7", facts.CharRange{CharStart: 40, CharEnd: 41}, facts.Region{
		RefinedRanges: []facts.CharRange{{CharStart: 5, CharEnd: 5}, {CharStart: 41, CharEnd: 50}},
	})
	return out
}

func TestGenerateCountsAndIndex(t *testing.T) {
	out := sampleOutput()
	af, records, err := facts.Generate(out, tag.NewSession(tag.NewSeeded(1), 0))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if err := testkit.CheckFactInvariants(out, af, records); err != nil {
		t.Fatal(err)
	}
	if af.Session == "" {
		t.Error("expected a session id")
	}
}

func TestGenerateKeepsInputOrder(t *testing.T) {
	af, records, err := facts.Generate(sampleOutput(), tag.NewSession(tag.NewSeeded(2), 0))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	got := make([]string, 0, len(records))
	for _, r := range records {
		got = append(got, r.Namespace.String()+"/"+r.Key)
	}
	want := []string{"loan/L2", "loan/L0", "move/M7"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("order: got %v, want %v", got, want)
	}
	if keys := af.Keys(facts.NamespaceLoan); fmt.Sprint(keys) != "[L0 L2]" {
		t.Fatalf("Keys(loan) = %v", keys)
	}
}

func TestGenerateDeterministicWithSeed(t *testing.T) {
	_, a, err := facts.Generate(sampleOutput(), tag.NewSession(tag.NewSeeded(9), 0))
	if err != nil {
		t.Fatal(err)
	}
	_, b, err := facts.Generate(sampleOutput(), tag.NewSession(tag.NewSeeded(9), 0))
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i].RefinerTag != b[i].RefinerTag || a[i].RegionTag != b[i].RegionTag {
			t.Fatalf("record %d differs between seeded runs", i)
		}
	}
}

func TestGenerateEmpty(t *testing.T) {
	out := &facts.AnalysisOutput{}
	af, records, err := facts.Generate(out, tag.NewSession(tag.NewSeeded(1), 0))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(records) != 0 || af.Len() != 0 {
		t.Fatalf("expected empty result, got %d records, %d indexed", len(records), af.Len())
	}
	if af.LoanPoints == nil || af.MoveRegions == nil {
		t.Fatal("empty namespaces should still have non-nil sub-indexes")
	}
}

func TestGenerateMissingPoint(t *testing.T) {
	out := &facts.AnalysisOutput{}
	out.LoanRegions.Set("L1", facts.Region{})
	if _, _, err := facts.Generate(out, tag.NewSession(tag.NewSeeded(1), 0)); !errors.Is(err, facts.ErrMissingPoint) {
		t.Fatalf("expected ErrMissingPoint, got %v", err)
	}
}

func TestGeneratePointWithoutRegion(t *testing.T) {
	out, err := facts.Decode([]byte(`{
  "loan_points": {"a": {"char_start": 1, "char_end": 2}, "b": {"char_start": 4, "char_end": 5}},
  "loan_regions": {"a": {"refined_ranges": [{"char_start": 2, "char_end": 8}]}},
  "move_points": {"m": {"char_start": 6, "char_end": 7}},
  "move_regions": {}
}`))
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != 3 {
		t.Fatalf("Len = %d, want 3", out.Len())
	}
	af, records, err := facts.Generate(out, tag.NewSession(tag.NewSeeded(3), 0))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := testkit.CheckFactInvariants(out, af, records); err != nil {
		t.Fatal(err)
	}
	got := make([]string, 0, len(records))
	for _, r := range records {
		got = append(got, r.Namespace.String()+"/"+r.Key)
	}
	if fmt.Sprint(got) != "[loan/a loan/b move/m]" {
		t.Fatalf("records = %v", got)
	}
	if len(records[1].Region.RefinedRanges) != 0 {
		t.Fatalf("point-only loan should get an empty region, got %v", records[1].Region)
	}
	if _, r, ok := af.Tags(facts.NamespaceLoan, "b"); !ok || r == "" {
		t.Fatalf("loan b should be indexed with a region tag, got %q %v", r, ok)
	}
}

func TestGenerateManyKeysDistinctTags(t *testing.T) {
	for run := uint64(0); run < 10; run++ {
		out := &facts.AnalysisOutput{}
		for i := 0; i < 250; i++ {
			out.AddLoan(facts.LoanKey(fmt.Sprintf("bw%d", i)), facts.CharRange{CharStart: 1, CharEnd: 2}, facts.Region{})
			out.AddMove(facts.MoveKey(fmt.Sprintf("mv%d", i)), facts.CharRange{CharStart: 1, CharEnd: 2}, facts.Region{})
		}
		// генератор без сессии: проверяем, что сами теги не совпадают
		g := tag.NewSeeded(run)
		af, records, err := facts.Generate(out, rawTags{g})
		if err != nil {
			t.Fatal(err)
		}
		if err := testkit.CheckFactInvariants(out, af, records); err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
	}
}

type rawTags struct{ g *tag.Generator }

func (r rawTags) Next() string { return r.g.Make(tag.DefaultLength) }

func TestTagsLookup(t *testing.T) {
	af, records, err := facts.Generate(sampleOutput(), tag.NewSession(tag.NewSeeded(4), 0))
	if err != nil {
		t.Fatal(err)
	}
	p, r, ok := af.Tags(facts.NamespaceMove, "M7")
	if !ok || p != records[2].RefinerTag || r != records[2].RegionTag {
		t.Fatalf("Tags(move, M7) = %q %q %v", p, r, ok)
	}
	if _, _, ok := af.Tags(facts.NamespaceLoan, "M7"); ok {
		t.Fatal("move key must not resolve in the loan namespace")
	}
	var nilFacts *facts.AnalysisFacts
	if _, _, ok := nilFacts.Tags(facts.NamespaceLoan, "L0"); ok {
		t.Fatal("nil index resolves nothing")
	}
}
