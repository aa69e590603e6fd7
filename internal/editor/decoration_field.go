package editor

import (
	"aquascope/internal/deco"
	"aquascope/internal/source"
)

// DecorationField is a field holding an arbitrary decoration set together
// with the effect that replaces it.
type DecorationField struct {
	SetEffect *EffectType[[]deco.Range]
	Field     *Field[deco.Set]
}

// NewDecorationField defines a fresh, independent decoration field.
func NewDecorationField(name string) DecorationField {
	set := DefineEffect[[]deco.Range](name + ".set")
	return DecorationField{
		SetEffect: set,
		Field:     GenDecorationField(name, set, func(rs []deco.Range) []deco.Range { return rs }),
	}
}

// Set is shorthand for a transaction effect replacing the field's ranges.
func (df DecorationField) Set(ranges ...deco.Range) Effect {
	return df.SetEffect.Of(ranges)
}

// GenDecorationField defines a decoration field driven by effects of type T.
// On every transaction the current set is first mapped through the edit;
// each matching effect then replaces it with the sorted ranges produced by
// transform. Ranges are checked against the post-edit document.
func GenDecorationField[T any](name string, effect *EffectType[T], transform func(T) []deco.Range) *Field[deco.Set] {
	return DefineField(name,
		func(*source.Text) deco.Set { return deco.None },
		func(current deco.Set, u *Update) (deco.Set, error) {
			current = current.Map(u.Changes)
			for _, e := range u.Effects {
				payload, ok := effect.Match(e)
				if !ok {
					continue
				}
				next, err := deco.Of(transform(payload), true)
				if err != nil {
					return current, err
				}
				if err := CheckBounds(next, u.Doc.Len()); err != nil {
					return current, err
				}
				current = next
			}
			return current, nil
		},
	).ProvideDecorations(func(s deco.Set) deco.Set { return s })
}
