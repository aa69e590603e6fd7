package render

import (
	"fmt"

	"aquascope/internal/deco"
	"aquascope/internal/editor"
	"aquascope/internal/source"
)

// hiddenLinesField keeps line decorations that follow their lines through
// edits. Line numbers in HideLine effects are resolved against the document
// after the transaction's changes.
func (r *Renderer) hiddenLinesField() *editor.Field[deco.Set] {
	class := r.classes.HiddenLine
	return editor.DefineField("hiddenLines",
		func(*source.Text) deco.Set { return deco.None },
		func(current deco.Set, u *editor.Update) (deco.Set, error) {
			current = current.Map(u.Changes)
			var add []deco.Range
			for _, e := range u.Effects {
				req, ok := r.HideLine.Match(e)
				if !ok {
					continue
				}
				line, err := u.Doc.Line(req.Line)
				if err != nil {
					return current, fmt.Errorf("hide line: %w", err)
				}
				if hasLine(current, add, line.From) {
					continue
				}
				add = append(add, deco.Line(class).At(line.From))
			}
			return current.Update(add...)
		},
	).ProvideDecorations(func(s deco.Set) deco.Set { return s })
}

func hasLine(current deco.Set, pending []deco.Range, pos uint32) bool {
	for r := range current.All() {
		if r.Value.Kind == deco.KindLine && r.From == pos {
			return true
		}
	}
	for _, r := range pending {
		if r.From == pos {
			return true
		}
	}
	return false
}
