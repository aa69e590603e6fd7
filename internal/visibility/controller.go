package visibility

import (
	"aquascope/internal/facts"
)

// Element is a rendered node whose class list can be changed.
type Element interface {
	AddClass(names ...string)
	RemoveClass(names ...string)
}

// Nodes resolves a tag to every node rendered for it.
type Nodes interface {
	ByTag(tag string) []Element
}

// Controller applies visibility transitions to a rendered tree.
type Controller struct {
	facts    *facts.AnalysisFacts
	nodes    Nodes
	state    State
	revealed string
}

// NewController binds an index to the nodes rendered from the same records.
// Either may be nil, which turns every call into a state-only transition.
func NewController(af *facts.AnalysisFacts, nodes Nodes) *Controller {
	return &Controller{facts: af, nodes: nodes, revealed: RevealedClass}
}

// WithRevealedClass replaces the class used to mark revealed nodes.
func (c *Controller) WithRevealedClass(name string) *Controller {
	if name != "" {
		c.revealed = name
	}
	return c
}

// State returns the current visibility state.
func (c *Controller) State() State {
	return c.state
}

// ShowLoanRegion reveals the point and region of a loan. A nil key is a no-op.
func (c *Controller) ShowLoanRegion(key *facts.LoanKey, names ...string) {
	if key == nil {
		return
	}
	c.Show(facts.NamespaceLoan, (*string)(key), names...)
}

// HideLoanRegion undoes ShowLoanRegion.
func (c *Controller) HideLoanRegion(key *facts.LoanKey, names ...string) {
	if key == nil {
		return
	}
	c.Hide(facts.NamespaceLoan, (*string)(key), names...)
}

// ShowMoveRegion reveals the point and region of a move. A nil key is a no-op.
func (c *Controller) ShowMoveRegion(key *facts.MoveKey, names ...string) {
	if key == nil {
		return
	}
	c.Show(facts.NamespaceMove, (*string)(key), names...)
}

// HideMoveRegion undoes ShowMoveRegion.
func (c *Controller) HideMoveRegion(key *facts.MoveKey, names ...string) {
	if key == nil {
		return
	}
	c.Hide(facts.NamespaceMove, (*string)(key), names...)
}

// Show reveals the entity under key in namespace ns.
func (c *Controller) Show(ns facts.Namespace, key *string, names ...string) {
	if key == nil {
		return
	}
	ref := Ref{Namespace: ns, Key: *key}
	c.transition(ref, c.state.Show(ref, names...))
}

// Hide conceals the entity under key in namespace ns.
func (c *Controller) Hide(ns facts.Namespace, key *string, names ...string) {
	if key == nil {
		return
	}
	ref := Ref{Namespace: ns, Key: *key}
	c.transition(ref, c.state.Hide(ref, names...))
}

// Rebind switches to a freshly rendered tree and, when af is non-nil, a new
// index. The whole state is projected onto the new nodes, which are assumed
// to carry no classes from earlier projections.
func (c *Controller) Rebind(af *facts.AnalysisFacts, nodes Nodes) {
	if af != nil {
		c.facts = af
	}
	c.nodes = nodes
	for _, ref := range c.state.Refs() {
		c.project(ref, c.state.Get(ref).Projected(c.revealed), nil)
	}
}

func (c *Controller) transition(ref Ref, next State) {
	old := c.state.Get(ref).Projected(c.revealed)
	c.state = next
	add, remove := diff(old, next.Get(ref).Projected(c.revealed))
	c.project(ref, add, remove)
}

func (c *Controller) project(ref Ref, add, remove []string) {
	if c.facts == nil || c.nodes == nil || (len(add) == 0 && len(remove) == 0) {
		return
	}
	point, region, ok := c.facts.Tags(ref.Namespace, ref.Key)
	if !ok {
		return
	}
	for _, tag := range [...]string{point, region} {
		for _, el := range c.nodes.ByTag(tag) {
			if len(remove) > 0 {
				el.RemoveClass(remove...)
			}
			if len(add) > 0 {
				el.AddClass(add...)
			}
		}
	}
}
