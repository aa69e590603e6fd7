package markup

import (
	"strings"
	"testing"

	"aquascope/internal/deco"
	"aquascope/internal/editor"
	"aquascope/internal/facts"
	"aquascope/internal/source"
	"aquascope/internal/view"
	"aquascope/internal/visibility"
)

const export = `<div class="aquascope">
<div class="line">let b = <tagP1 class="aquascope-loan">&amp;a</tagP1>;</div>
<div class="line"><tagR1 class="aquascope-live-region">f(b)</tagR1> <tagR1 class="aquascope-live-region">g(b)</tagR1></div>
</div>
`

func TestByTagFindsEveryElement(t *testing.T) {
	doc, err := ParseString(export)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tests := []struct {
		name string
		want int
	}{
		{"tagP1", 1},
		{"tagR1", 2},
		{"tagNone", 0},
		{"div", 0},
		{"tag bad", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := len(doc.ByTag(tt.name)); got != tt.want {
			t.Errorf("ByTag(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestClassToggleRoundTrip(t *testing.T) {
	doc, err := ParseString(export)
	if err != nil {
		t.Fatal(err)
	}
	for _, el := range doc.ByTag("tagR1") {
		el.AddClass(visibility.RevealedClass, "aquascope-live-region")
	}
	if got := strings.Join(doc.Classes("tagR1"), " "); got != "aquascope-live-region show-hidden" {
		t.Fatalf("classes after add %q", got)
	}
	for _, el := range doc.ByTag("tagR1") {
		el.RemoveClass(visibility.RevealedClass)
	}
	if doc.Session() != "" {
		t.Fatalf("export without session attribute reports %q", doc.Session())
	}
	if got := doc.String(); got != export {
		t.Fatalf("document changed after add/remove:\n%s", got)
	}

	el := doc.ByTag("tagP1")[0]
	el.RemoveClass("aquascope-loan")
	if strings.Contains(doc.String(), "<tagP1 class") {
		t.Fatalf("empty class attribute should be dropped: %s", doc.String())
	}
}

func TestControllerOverStaticExport(t *testing.T) {
	text := "let b = &a;\nf(b);"
	out := &facts.AnalysisOutput{}
	out.AddLoan("L", facts.CharRange{CharStart: 8, CharEnd: 10}, facts.Region{
		RefinedRanges: []facts.CharRange{{CharStart: 12, CharEnd: 16}},
	})
	af, records, err := facts.Generate(out, &fixedTags{tags: []string{"tagPoint", "tagRegion"}})
	if err != nil {
		t.Fatal(err)
	}
	df := editor.NewDecorationField("facts")
	s := editor.NewState(source.NewText(text), df.Field)
	var ranges []deco.Range
	for _, rec := range records {
		ranges = append(ranges, deco.Mark("aquascope-loan", rec.RefinerTag).Range(rec.RefinerPoint.CharStart, rec.RefinerPoint.CharEnd))
		for _, r := range rec.Region.Visible() {
			ranges = append(ranges, deco.Mark("aquascope-live-region", rec.RegionTag).Range(r.CharStart, r.CharEnd))
		}
	}
	s, err = s.Dispatch(editor.Transaction{Effects: []editor.Effect{df.Set(ranges...)}})
	if err != nil {
		t.Fatal(err)
	}

	tree := view.Render(s)
	tree.Session = af.Session
	doc, err := ParseString(tree.String())
	if err != nil {
		t.Fatalf("rendered markup does not parse: %v", err)
	}
	if doc.Session() != af.Session {
		t.Fatalf("session %q, want %q", doc.Session(), af.Session)
	}
	c := visibility.NewController(af, doc)
	key := facts.LoanKey("L")
	c.ShowLoanRegion(&key)
	for _, name := range []string{"tagPoint", "tagRegion"} {
		if got := doc.Classes(name); len(got) != 2 || got[1] != visibility.RevealedClass {
			t.Fatalf("%s classes %v", name, got)
		}
	}
	c.HideLoanRegion(&key)
	if got := doc.Classes("tagRegion"); len(got) != 1 {
		t.Fatalf("hide left %v", got)
	}
}

func TestExportWithControlCharactersParses(t *testing.T) {
	text := "let s = \"\f\";\nprint(\"\x1b[0m\", s);"
	df := editor.NewDecorationField("facts")
	s := editor.NewState(source.NewText(text), df.Field)
	s, err := s.Dispatch(editor.Transaction{Effects: []editor.Effect{
		df.Set(deco.Mark("aquascope-loan", "tagCtl").Range(8, 11)),
	}})
	if err != nil {
		t.Fatal(err)
	}
	doc, err := ParseString(view.Render(s).String())
	if err != nil {
		t.Fatalf("rendered markup does not parse: %v", err)
	}
	els := doc.ByTag("tagCtl")
	if len(els) != 1 {
		t.Fatalf("ByTag(tagCtl) = %d elements", len(els))
	}
	if got := els[0].(element).n.InnerText(); got != "\"\uFFFD\"" {
		t.Fatalf("mark text %q", got)
	}
	if !strings.Contains(doc.String(), "print(&#34;\uFFFD[0m&#34;, s);") {
		t.Fatalf("escape character not replaced: %s", doc.String())
	}
}

type fixedTags struct {
	tags []string
	next int
}

func (f *fixedTags) Next() string {
	t := f.tags[f.next]
	f.next++
	return t
}
