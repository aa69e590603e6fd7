// Package view projects an editor state onto a tree of nodes.
//
// Every document line becomes a line element; mark decorations become
// elements named after their tag, split at line boundaries and nested where
// they overlap. Nodes are registered by tag name while the tree is built, so
// callers never search the tree to find what a tag rendered to.
package view

import (
	"slices"
	"strings"

	"aquascope/internal/source"
	"aquascope/internal/visibility"
)

// Kind classifies a node.
type Kind uint8

const (
	KindLine Kind = iota
	KindMark
	KindText
)

// LineElement is the element name used for document lines.
const LineElement = "div"

// Node is one element or text leaf of the rendered tree.
type Node struct {
	Kind     Kind
	Name     string
	Span     source.Span
	Text     string
	Children []*Node

	base  []string
	extra []string
}

// Classes returns the node's base classes followed by the ones added later.
func (n *Node) Classes() []string {
	out := make([]string, 0, len(n.base)+len(n.extra))
	out = append(out, n.base...)
	return append(out, n.extra...)
}

// HasClass reports whether the node carries name.
func (n *Node) HasClass(name string) bool {
	return slices.Contains(n.base, name) || slices.Contains(n.extra, name)
}

// AddClass appends names not yet present.
func (n *Node) AddClass(names ...string) {
	for _, name := range names {
		if name == "" || n.HasClass(name) {
			continue
		}
		n.extra = append(n.extra, name)
	}
}

// RemoveClass drops names added with AddClass. Classes that came from
// decorations stay.
func (n *Node) RemoveClass(names ...string) {
	n.extra = slices.DeleteFunc(n.extra, func(c string) bool {
		return slices.Contains(names, c)
	})
}

// Content returns the concatenated text under the node.
func (n *Node) Content() string {
	if n.Kind == KindText {
		return n.Text
	}
	var sb strings.Builder
	n.walk(func(c *Node) {
		if c.Kind == KindText {
			sb.WriteString(c.Text)
		}
	})
	return sb.String()
}

func (n *Node) walk(fn func(*Node)) {
	for _, c := range n.Children {
		fn(c)
		c.walk(fn)
	}
}

// Tree is a rendered document.
type Tree struct {
	Lines []*Node
	// Session is written to the markup so an export can be matched with its
	// cached index.
	Session string

	byTag map[string][]*Node
}

// ByTag returns every node rendered for tag, in document order.
func (t *Tree) ByTag(tag string) []visibility.Element {
	nodes := t.byTag[tag]
	if len(nodes) == 0 {
		return nil
	}
	out := make([]visibility.Element, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out
}

// Nodes returns the nodes registered for tag.
func (t *Tree) Nodes(tag string) []*Node {
	return slices.Clone(t.byTag[tag])
}

// Tags returns every registered tag name, sorted.
func (t *Tree) Tags() []string {
	out := make([]string, 0, len(t.byTag))
	for tag := range t.byTag {
		out = append(out, tag)
	}
	slices.Sort(out)
	return out
}

func (t *Tree) register(n *Node) {
	if t.byTag == nil {
		t.byTag = make(map[string][]*Node)
	}
	t.byTag[n.Name] = append(t.byTag[n.Name], n)
}

var _ visibility.Nodes = (*Tree)(nil)
