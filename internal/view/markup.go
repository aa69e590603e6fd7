package view

import (
	"bufio"
	"html"
	"io"
	"strings"
	"unicode/utf8"
)

// RootClass is carried by the element wrapping a rendered document.
const RootClass = "aquascope"

// SessionAttr names the root attribute holding Tree.Session.
const SessionAttr = "data-session"

// Markup writes the tree as an HTML fragment. The output is also well-formed
// XML, so it can be read back for static toggling. Characters XML cannot
// carry are written as U+FFFD; each still counts as one character.
func (t *Tree) Markup(w io.Writer) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(`<div class="` + RootClass + `"`)
	if t.Session != "" {
		bw.WriteString(" " + SessionAttr + `="` + html.EscapeString(t.Session) + `"`)
	}
	bw.WriteString(">\n")
	for _, ln := range t.Lines {
		writeNode(bw, ln)
		bw.WriteByte('\n')
	}
	bw.WriteString("</div>\n")
	return bw.Flush()
}

// String returns the markup of the tree.
func (t *Tree) String() string {
	var sb strings.Builder
	_ = t.Markup(&sb)
	return sb.String()
}

func writeNode(w *bufio.Writer, n *Node) {
	if n.Kind == KindText {
		w.WriteString(escapeText(n.Text))
		return
	}
	w.WriteByte('<')
	w.WriteString(n.Name)
	if classes := n.Classes(); len(classes) > 0 {
		w.WriteString(` class="`)
		w.WriteString(escapeText(strings.Join(classes, " ")))
		w.WriteByte('"')
	}
	w.WriteByte('>')
	for _, c := range n.Children {
		writeNode(w, c)
	}
	w.WriteString("</")
	w.WriteString(n.Name)
	w.WriteByte('>')
}

func escapeText(s string) string {
	return html.EscapeString(strings.Map(xmlChar, s))
}

// xmlChar maps runes outside the XML 1.0 Char production to U+FFFD.
func xmlChar(r rune) rune {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return r
	case r >= 0x20 && r <= 0xD7FF:
		return r
	case r >= 0xE000 && r <= 0xFFFD:
		return r
	case r >= 0x10000 && r <= 0x10FFFF:
		return r
	}
	return utf8.RuneError
}
