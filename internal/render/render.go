// Package render turns indexed analysis facts into editor decorations.
package render

import (
	"aquascope/internal/deco"
	"aquascope/internal/editor"
	"aquascope/internal/facts"
)

// Default class names.
const (
	LoanClass       = "aquascope-loan"
	LiveRegionClass = "aquascope-live-region"
	HiddenLineClass = "hidden-line"
)

// Classes names the styling classes decorations are rendered with.
type Classes struct {
	Loan       string
	LiveRegion string
	HiddenLine string
}

// DefaultClasses returns the stock class names.
func DefaultClasses() Classes {
	return Classes{Loan: LoanClass, LiveRegion: LiveRegionClass, HiddenLine: HiddenLineClass}
}

func (c Classes) withDefaults() Classes {
	d := DefaultClasses()
	if c.Loan == "" {
		c.Loan = d.Loan
	}
	if c.LiveRegion == "" {
		c.LiveRegion = d.LiveRegion
	}
	if c.HiddenLine == "" {
		c.HiddenLine = d.HiddenLine
	}
	return c
}

// LineRequest asks for a line, by 1-based number, to be marked hidden.
type LineRequest struct {
	Line int
}

// Renderer owns the effect types and fields for one editor configuration.
// Two renderers never react to each other's effects.
type Renderer struct {
	classes Classes

	LoanFacts      *editor.EffectType[[]facts.ActionFacts]
	LoanFactsField *editor.Field[deco.Set]
	HideLine       *editor.EffectType[LineRequest]
	HiddenLines    *editor.Field[deco.Set]
}

// New creates a renderer; empty class names fall back to the defaults.
func New(classes Classes) *Renderer {
	r := &Renderer{classes: classes.withDefaults()}
	r.LoanFacts = editor.DefineEffect[[]facts.ActionFacts]("loanFacts")
	r.LoanFactsField = editor.GenDecorationField("loanFacts", r.LoanFacts, r.allDecorations)
	r.HideLine = editor.DefineEffect[LineRequest]("hideLine")
	r.HiddenLines = r.hiddenLinesField()
	return r
}

// Classes returns the class names in use.
func (r *Renderer) Classes() Classes {
	return r.classes
}

// Fields returns the renderer's fields in the order they should be installed.
func (r *Renderer) Fields() []editor.FieldSpec {
	return []editor.FieldSpec{r.HiddenLines, r.LoanFactsField}
}

// SetFacts replaces all fact decorations.
func (r *Renderer) SetFacts(records []facts.ActionFacts) editor.Effect {
	return r.LoanFacts.Of(records)
}

// ClearFacts removes all fact decorations, e.g. when an edit invalidates them.
func (r *Renderer) ClearFacts() editor.Effect {
	return r.LoanFacts.Of(nil)
}

// Hide marks a line as hidden.
func (r *Renderer) Hide(line int) editor.Effect {
	return r.HideLine.Of(LineRequest{Line: line})
}

// ToDecorations renders one record: a mark over the triggering point named
// after the point tag, and one mark per non-empty region sub-range named
// after the region tag. Zero-width sub-ranges are dropped; a zero-width
// point is kept.
func (r *Renderer) ToDecorations(rec facts.ActionFacts) []deco.Range {
	out := make([]deco.Range, 0, 1+len(rec.Region.RefinedRanges))
	out = append(out, deco.Mark(r.classes.Loan, rec.RefinerTag).
		Range(rec.RefinerPoint.CharStart, rec.RefinerPoint.CharEnd))
	for _, rng := range rec.Region.Visible() {
		out = append(out, deco.Mark(r.classes.LiveRegion, rec.RegionTag).
			Range(rng.CharStart, rng.CharEnd))
	}
	return out
}

func (r *Renderer) allDecorations(records []facts.ActionFacts) []deco.Range {
	out := make([]deco.Range, 0, 2*len(records))
	for _, rec := range records {
		out = append(out, r.ToDecorations(rec)...)
	}
	return out
}

var defaultRenderer = New(DefaultClasses())

// ToDecorations renders a record with the default class names.
func ToDecorations(rec facts.ActionFacts) []deco.Range {
	return defaultRenderer.ToDecorations(rec)
}
