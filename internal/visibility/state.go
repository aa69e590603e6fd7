// Package visibility reveals and conceals the rendered regions of an entity.
//
// What is revealed is kept as an explicit, immutable State. Show and Hide are
// pure transitions; a Controller projects the difference between two states
// onto node class lists.
package visibility

import (
	"maps"
	"slices"

	"aquascope/internal/facts"
)

// RevealedClass is added to every node of a revealed entity.
const RevealedClass = "show-hidden"

// Ref names an entity.
type Ref struct {
	Namespace facts.Namespace
	Key       string
}

func (r Ref) String() string {
	return r.Namespace.String() + ":" + r.Key
}

// Entry is the visibility of one entity.
type Entry struct {
	Revealed bool
	Classes  map[string]struct{}
}

// Projected returns the class names the entity's nodes should carry, sorted.
// The revealed class follows Revealed only.
func (e Entry) Projected(revealed string) []string {
	out := make([]string, 0, len(e.Classes)+1)
	if e.Revealed {
		out = append(out, revealed)
	}
	for c := range e.Classes {
		if c != revealed {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (e Entry) zero() bool {
	return !e.Revealed && len(e.Classes) == 0
}

// State maps entities to their visibility. The zero value hides everything.
type State struct {
	entries map[Ref]Entry
}

// Get returns the entry of ref.
func (s State) Get(ref Ref) Entry {
	return s.entries[ref]
}

// Len returns the number of entities with a non-default entry.
func (s State) Len() int {
	return len(s.entries)
}

// Refs returns the entities with a non-default entry in a stable order.
func (s State) Refs() []Ref {
	out := slices.Collect(maps.Keys(s.entries))
	slices.SortFunc(out, func(a, b Ref) int {
		if a.Namespace != b.Namespace {
			return int(a.Namespace) - int(b.Namespace)
		}
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	return out
}

// Show reveals ref and attaches the given classes.
func (s State) Show(ref Ref, classes ...string) State {
	e := s.entries[ref]
	next := Entry{Revealed: true, Classes: maps.Clone(e.Classes)}
	if next.Classes == nil && len(classes) > 0 {
		next.Classes = make(map[string]struct{}, len(classes))
	}
	for _, c := range classes {
		next.Classes[c] = struct{}{}
	}
	return s.with(ref, next)
}

// Hide conceals ref and detaches the given classes.
func (s State) Hide(ref Ref, classes ...string) State {
	e := s.entries[ref]
	next := Entry{Classes: maps.Clone(e.Classes)}
	for _, c := range classes {
		delete(next.Classes, c)
	}
	return s.with(ref, next)
}

func (s State) with(ref Ref, e Entry) State {
	entries := maps.Clone(s.entries)
	if entries == nil {
		entries = make(map[Ref]Entry)
	}
	if e.zero() {
		delete(entries, ref)
	} else {
		entries[ref] = e
	}
	return State{entries: entries}
}

// diff reports which classes to add and remove to move from old to next.
func diff(old, next []string) (add, remove []string) {
	for _, c := range next {
		if !slices.Contains(old, c) {
			add = append(add, c)
		}
	}
	for _, c := range old {
		if !slices.Contains(next, c) {
			remove = append(remove, c)
		}
	}
	return add, remove
}
