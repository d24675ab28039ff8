package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Value is one node of a raw video record: either a Scalar or a nested Map.
type Value interface {
	isValue()
}

// Scalar wraps any non-mapping value. Lists and unknown types are kept opaque.
type Scalar struct {
	V any
}

// Map is a nested key/value mapping as returned by the platform.
type Map map[string]Value

func (Scalar) isValue() {}
func (Map) isValue()    {}

// FromAny converts decoded JSON (map[string]any trees) into the Value variant.
func FromAny(v any) Value {
	switch x := v.(type) {
	case Map:
		return x
	case Scalar:
		return x
	case map[string]any:
		m := make(Map, len(x))
		for k, child := range x {
			m[k] = FromAny(child)
		}
		return m
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Scalar{V: i}
		}
		if f, err := x.Float64(); err == nil {
			return Scalar{V: f}
		}
		return Scalar{V: x.String()}
	default:
		return Scalar{V: x}
	}
}

// Decode parses one JSON object into a Map. Numbers keep integer precision.
func Decode(data []byte) (Map, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("decode record: not an object")
	}
	return FromAny(obj).(Map), nil
}

// Get returns the scalar stored at key, if any.
func (m Map) Get(key string) (any, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	s, ok := v.(Scalar)
	if !ok {
		return nil, false
	}
	return s.V, true
}

// Set stores a scalar at key.
func (m Map) Set(key string, v any) {
	m[key] = Scalar{V: v}
}

// LeafCount returns the number of scalar leaves reachable from m.
func (m Map) LeafCount() int {
	n := 0
	for _, v := range m {
		switch x := v.(type) {
		case Map:
			n += x.LeafCount()
		default:
			n++
		}
	}
	return n
}
