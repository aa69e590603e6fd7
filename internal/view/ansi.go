package view

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"aquascope/internal/render"
	"aquascope/internal/visibility"
)

// Theme styles a tree for terminal output.
type Theme struct {
	// Styles by class name. A text leaf takes the styles of its enclosing
	// marks, the innermost winning where they disagree.
	Styles map[string]lipgloss.Style
	// Gated classes are styled only on nodes that also carry Revealed.
	Gated    []string
	Revealed string
	// Lines carrying HiddenLine are left out.
	HiddenLine  string
	LineNumbers bool
}

// Original palette.
const (
	SoftRed    = "#FF4244"
	SoftGreen  = "#5DCA36"
	SoftBlue   = "#4EBEEF"
	SoftYellow = "#EEEE9B"
	SoftOrange = "#F5CA7B"
)

// DefaultTheme colours loan points and revealed live regions.
func DefaultTheme() Theme {
	return Theme{
		Styles: map[string]lipgloss.Style{
			render.LoanClass:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(SoftBlue)),
			render.LiveRegionClass: lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color(SoftGreen)),
		},
		Gated:      []string{render.LiveRegionClass},
		Revealed:   visibility.RevealedClass,
		HiddenLine: render.HiddenLineClass,
	}
}

// WithColor returns a copy of th where class is drawn in color.
func (th Theme) WithColor(class, color string) Theme {
	styles := make(map[string]lipgloss.Style, len(th.Styles)+1)
	for k, v := range th.Styles {
		styles[k] = v
	}
	st, ok := styles[class]
	if !ok {
		st = lipgloss.NewStyle()
	}
	styles[class] = st.Foreground(lipgloss.Color(color))
	th.Styles = styles
	return th
}

// ANSI renders the tree for a terminal.
func (t *Tree) ANSI(th Theme) string {
	var sb strings.Builder
	width := len(fmt.Sprint(len(t.Lines)))
	gutter := lipgloss.NewStyle().Faint(true)
	for i, ln := range t.Lines {
		if th.HiddenLine != "" && ln.HasClass(th.HiddenLine) {
			continue
		}
		if th.LineNumbers {
			sb.WriteString(gutter.Render(fmt.Sprintf("%*d ", width, i+1)))
		}
		th.write(&sb, ln, nil)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (th Theme) write(sb *strings.Builder, n *Node, outer []lipgloss.Style) {
	if n.Kind == KindText {
		if len(outer) == 0 {
			sb.WriteString(n.Text)
			return
		}
		st := outer[len(outer)-1]
		for i := len(outer) - 2; i >= 0; i-- {
			st = st.Inherit(outer[i])
		}
		sb.WriteString(st.Render(n.Text))
		return
	}
	inner := outer
	if n.Kind == KindMark {
		for _, c := range n.Classes() {
			st, ok := th.Styles[c]
			if !ok {
				continue
			}
			if slices.Contains(th.Gated, c) && !n.HasClass(th.Revealed) {
				continue
			}
			inner = append(slices.Clip(inner), st)
		}
	}
	for _, c := range n.Children {
		th.write(sb, c, inner)
	}
}
