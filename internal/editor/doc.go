// Package editor models the editor state the decorations live in.
//
// # Model
//
// A State is an immutable pair of a document (source.Text) and the values of
// a fixed list of fields. A Transaction carries an optional change set and
// any number of typed effects. State.Dispatch applies the change set to the
// document first and only then runs every field's update against the
// post-edit state, so effects are always interpreted in the coordinates of
// the new document.
//
// # Decoration fields
//
// DecorationField and GenDecorationField build the common field shape used
// for every kind of decoration: remap the current set through the edit, then
// replace it wholesale when the transaction carries the field's effect.
// Fields that provide decorations are collected, in field order, by
// Decorations.
//
// Dispatch is synchronous and has no side effects; a failed field update
// leaves the previous state untouched and returns the error.
package editor
