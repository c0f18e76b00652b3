package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Entity is an ordered field → value mapping.
type Entity struct {
	fields *orderedmap.OrderedMap[string, any]
}

// New returns an empty entity.
func New() *Entity {
	return &Entity{fields: orderedmap.New[string, any]()}
}

// FromMap builds an entity from a plain map. Go maps carry no order, so
// keys are inserted in sorted order. Nested maps and slices are converted.
func FromMap(m map[string]any) *Entity {
	e := New()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.Set(k, normalize(m[k]))
	}
	return e
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return FromMap(t)
	case []map[string]any:
		out := make([]*Entity, len(t))
		for i, m := range t {
			out[i] = FromMap(m)
		}
		return out
	case []any:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = normalize(item)
		}
		return listOf(items)
	case int:
		return json.Number(fmt.Sprint(t))
	case int64:
		return json.Number(fmt.Sprint(t))
	case float64:
		return json.Number(fmt.Sprint(t))
	default:
		return v
	}
}

// Set stores v under key, keeping the key's original position when it
// already exists. It returns the entity for chaining.
func (e *Entity) Set(key string, v any) *Entity {
	e.fields.Set(key, v)
	return e
}

// Get returns the value stored under key.
func (e *Entity) Get(key string) (any, bool) {
	if e == nil {
		return nil, false
	}
	return e.fields.Get(key)
}

// Delete removes key.
func (e *Entity) Delete(key string) {
	e.fields.Delete(key)
}

// Len returns the number of fields.
func (e *Entity) Len() int {
	if e == nil {
		return 0
	}
	return e.fields.Len()
}

// Keys returns the field names in order.
func (e *Entity) Keys() []string {
	keys := make([]string, 0, e.Len())
	e.Range(func(k string, _ any) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Range calls fn for each field in order until fn returns false.
func (e *Entity) Range(fn func(key string, v any) bool) {
	if e == nil {
		return
	}
	for pair := e.fields.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// Clone returns a deep copy. Relations and nested entities are copied,
// scalars are shared.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := New()
	e.Range(func(k string, v any) bool {
		c.Set(k, cloneValue(v))
		return true
	})
	return c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Entity:
		return t.Clone()
	case []*Entity:
		out := make([]*Entity, len(t))
		for i, child := range t {
			out[i] = child.Clone()
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON encodes the entity as a JSON object in field order.
func (e *Entity) MarshalJSON() ([]byte, error) {
	if e == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	var err error
	e.Range(func(k string, v any) bool {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		var kb, vb []byte
		if kb, err = json.Marshal(k); err != nil {
			return false
		}
		if vb, err = json.Marshal(v); err != nil {
			err = fmt.Errorf("field %s: %w", k, err)
			return false
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return true
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping field order.
func (e *Entity) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	e.fields = decoded.fields
	return nil
}

// String returns the JSON form of the entity.
func (e *Entity) String() string {
	b, err := e.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<entity: %v>", err)
	}
	return string(b)
}
