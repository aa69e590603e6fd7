package facts

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// OrderedMap is a string-keyed map that remembers insertion order.
// JSON objects decode in document order, which Go maps do not preserve.
type OrderedMap[K ~string, V any] struct {
	keys   []K
	values map[K]V
}

// NewOrderedMap returns an empty map.
func NewOrderedMap[K ~string, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{values: make(map[K]V)}
}

// Set inserts or replaces a value. Replacing keeps the original position.
func (m *OrderedMap[K, V]) Set(k K, v V) {
	if m.values == nil {
		m.values = make(map[K]V)
	}
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
}

// Get looks a key up.
func (m *OrderedMap[K, V]) Get(k K) (V, bool) {
	if m == nil {
		var zero V
		return zero, false
	}
	v, ok := m.values[k]
	return v, ok
}

// Len returns the number of entries; a nil map is empty.
func (m *OrderedMap[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *OrderedMap[K, V]) Keys() []K {
	if m == nil {
		return nil
	}
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}

// UnmarshalJSON decodes a JSON object keeping its key order.
func (m *OrderedMap[K, V]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*m = OrderedMap[K, V]{values: make(map[K]V)}
		return nil
	}
	if !gjson.ValidBytes(trimmed) {
		return fmt.Errorf("invalid JSON object")
	}
	res := gjson.ParseBytes(trimmed)
	if !res.IsObject() {
		return fmt.Errorf("expected JSON object, got %s", res.Type)
	}
	out := OrderedMap[K, V]{values: make(map[K]V)}
	var decodeErr error
	res.ForEach(func(key, value gjson.Result) bool {
		var v V
		if err := json.Unmarshal([]byte(value.Raw), &v); err != nil {
			decodeErr = fmt.Errorf("key %q: %w", key.String(), err)
			return false
		}
		out.Set(K(key.String()), v)
		return true
	})
	if decodeErr != nil {
		return decodeErr
	}
	*m = out
	return nil
}

// MarshalJSON encodes the map as an object in insertion order.
func (m OrderedMap[K, V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(string(k))
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
