// Package markup toggles classes inside an exported HTML document, for hosts
// that only have the static markup and the fact index.
package markup

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"aquascope/internal/tag"
	"aquascope/internal/view"
	"aquascope/internal/visibility"
)

// Document is a parsed export.
type Document struct {
	root  *xmlquery.Node
	exprs map[string]*xpath.Expr
}

// Parse reads an exported document. The export must be well-formed XML.
func Parse(r io.Reader) (*Document, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing markup: %w", err)
	}
	return &Document{root: root, exprs: make(map[string]*xpath.Expr)}, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// ByTag returns every element named tag in document order. Names that are
// not tags resolve to nothing.
func (d *Document) ByTag(name string) []visibility.Element {
	expr, err := d.expr(name)
	if err != nil || expr == nil {
		return nil
	}
	nodes := xmlquery.QuerySelectorAll(d.root, expr)
	if len(nodes) == 0 {
		return nil
	}
	out := make([]visibility.Element, len(nodes))
	for i, n := range nodes {
		out[i] = element{n}
	}
	return out
}

func (d *Document) expr(name string) (*xpath.Expr, error) {
	if !tag.Valid(name) {
		return nil, nil
	}
	if e, ok := d.exprs[name]; ok {
		return e, nil
	}
	e, err := xpath.Compile("//" + name)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath for %q: %w", name, err)
	}
	d.exprs[name] = e
	return e, nil
}

// Session returns the session id recorded on the root element, if any.
func (d *Document) Session() string {
	root := xmlquery.FindOne(d.root, "/*")
	if root == nil {
		return ""
	}
	return root.SelectAttr(view.SessionAttr)
}

// Classes returns the class list of the first element named name.
func (d *Document) Classes(name string) []string {
	els := d.ByTag(name)
	if len(els) == 0 {
		return nil
	}
	return els[0].(element).classes()
}

// WriteTo writes the document back out.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, d.root.OutputXML(false))
	return int64(n), err
}

// String returns the serialised document.
func (d *Document) String() string {
	var sb strings.Builder
	_, _ = d.WriteTo(&sb)
	return sb.String()
}

type element struct {
	n *xmlquery.Node
}

func (e element) classes() []string {
	return strings.Fields(e.n.SelectAttr("class"))
}

func (e element) AddClass(names ...string) {
	cls := e.classes()
	for _, name := range names {
		if name != "" && !slices.Contains(cls, name) {
			cls = append(cls, name)
		}
	}
	e.n.SetAttr("class", strings.Join(cls, " "))
}

func (e element) RemoveClass(names ...string) {
	cls := slices.DeleteFunc(e.classes(), func(c string) bool {
		return slices.Contains(names, c)
	})
	if len(cls) == 0 {
		e.n.RemoveAttr("class")
		return
	}
	e.n.SetAttr("class", strings.Join(cls, " "))
}

var _ visibility.Nodes = (*Document)(nil)
