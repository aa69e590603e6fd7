package view

import (
	"cmp"
	"slices"

	"aquascope/internal/deco"
	"aquascope/internal/editor"
	"aquascope/internal/source"
)

// LineClass is carried by every line element.
const LineClass = "line"

// Render builds the tree for the document and decorations of s.
func Render(s *editor.State) *Tree {
	doc := s.Doc()
	var marks []deco.Range
	lineClasses := make(map[uint32][]string)
	for _, set := range editor.Decorations(s) {
		for r := range set.All() {
			if r.Value.Kind == deco.KindLine {
				start := doc.LineAt(r.From).From
				if !slices.Contains(lineClasses[start], r.Value.Class) {
					lineClasses[start] = append(lineClasses[start], r.Value.Class)
				}
				continue
			}
			marks = append(marks, r)
		}
	}
	// внешние метки раньше вложенных
	slices.SortStableFunc(marks, func(a, b deco.Range) int {
		if a.From != b.From {
			return cmp.Compare(a.From, b.From)
		}
		return cmp.Compare(b.To, a.To)
	})

	t := &Tree{byTag: make(map[string][]*Node)}
	for _, line := range doc.Lines() {
		ln := &Node{
			Kind: KindLine,
			Name: LineElement,
			Span: source.Span{Start: line.From, End: line.To},
			base: append([]string{LineClass}, lineClasses[line.From]...),
		}
		b := lineBuilder{tree: t, doc: doc, line: ln}
		b.build(line, marks)
		t.Lines = append(t.Lines, ln)
	}
	return t
}

type piece struct {
	from, to uint32
	mark     deco.Range
}

type open struct {
	piece int
	node  *Node
}

type lineBuilder struct {
	tree  *Tree
	doc   *source.Text
	line  *Node
	stack []open
}

func (b *lineBuilder) parent() *Node {
	if len(b.stack) == 0 {
		return b.line
	}
	return b.stack[len(b.stack)-1].node
}

func (b *lineBuilder) build(line source.LineInfo, marks []deco.Range) {
	var pieces []piece
	bounds := []uint32{line.From, line.To}
	for _, m := range marks {
		if m.From > line.To {
			break
		}
		from, to := max(m.From, line.From), min(m.To, line.To)
		switch {
		case m.From == m.To:
			if m.From < line.From {
				continue
			}
		case from >= to:
			continue
		}
		pieces = append(pieces, piece{from: from, to: to, mark: m})
		bounds = append(bounds, from, to)
	}
	slices.Sort(bounds)
	bounds = slices.Compact(bounds)

	for k, p := range bounds {
		var active []int
		end := p
		if k+1 < len(bounds) {
			end = bounds[k+1]
			for i, pc := range pieces {
				if pc.from < pc.to && pc.from <= p && pc.to >= end {
					active = append(active, i)
				}
			}
		}
		keep := 0
		for keep < len(b.stack) && keep < len(active) && b.stack[keep].piece == active[keep] {
			keep++
		}
		b.stack = b.stack[:keep]

		for _, pc := range pieces {
			if pc.from == pc.to && pc.from == p {
				el := b.element(pc.mark, p)
				b.parent().Children = append(b.parent().Children, el)
			}
		}
		if end == p {
			continue
		}
		for _, i := range active[keep:] {
			el := b.element(pieces[i].mark, p)
			b.parent().Children = append(b.parent().Children, el)
			b.stack = append(b.stack, open{piece: i, node: el})
		}
		leaf := &Node{Kind: KindText, Span: source.Span{Start: p, End: end}, Text: b.doc.Slice(p, end)}
		b.parent().Children = append(b.parent().Children, leaf)
		for _, o := range b.stack {
			o.node.Span.End = end
		}
	}
}

func (b *lineBuilder) element(m deco.Range, at uint32) *Node {
	el := &Node{
		Kind: KindMark,
		Name: m.Value.TagName,
		Span: source.Span{Start: at, End: at},
	}
	if m.Value.Class != "" {
		el.base = []string{m.Value.Class}
	}
	if el.Name == "" {
		el.Name = "span"
		return el
	}
	b.tree.register(el)
	return el
}
