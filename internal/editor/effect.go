package editor

import "sync/atomic"

var effectSeq atomic.Uint64

// Effect is one typed payload attached to a transaction.
type Effect interface {
	// EffectName returns the name of the effect's type.
	EffectName() string
	typeID() uint64
}

// EffectType defines a family of effects carrying values of type T.
type EffectType[T any] struct {
	name string
	id   uint64
}

// DefineEffect creates a new effect type. Two calls never yield matching types.
func DefineEffect[T any](name string) *EffectType[T] {
	return &EffectType[T]{name: name, id: effectSeq.Add(1)}
}

// Name returns the effect type's name.
func (et *EffectType[T]) Name() string {
	return et.name
}

// Of creates an effect of this type.
func (et *EffectType[T]) Of(v T) Effect {
	return effect[T]{typ: et, value: v}
}

// Match returns the payload if e is of this type.
func (et *EffectType[T]) Match(e Effect) (T, bool) {
	if typed, ok := e.(effect[T]); ok && typed.typ == et {
		return typed.value, true
	}
	var zero T
	return zero, false
}

// Is reports whether e is of this type.
func (et *EffectType[T]) Is(e Effect) bool {
	return e != nil && e.typeID() == et.id
}

type effect[T any] struct {
	typ   *EffectType[T]
	value T
}

func (e effect[T]) EffectName() string { return e.typ.name }
func (e effect[T]) typeID() uint64     { return e.typ.id }
