package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Decode parses a JSON object into an Entity, keeping field order.
// Numbers are kept as json.Number so identifiers never lose precision.
func Decode(raw []byte) (*Entity, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	e, ok := v.(*Entity)
	if !ok {
		return nil, fmt.Errorf("entity: expected JSON object, got %T", v)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("entity: trailing data after JSON object")
	}
	return e, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("entity: %w", err)
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return nil, fmt.Errorf("entity: unexpected delimiter %q", t)
	default:
		return t, nil
	}
}

func decodeObject(dec *json.Decoder) (*Entity, error) {
	e := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("entity: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("entity: unexpected object key %v", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		e.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("entity: %w", err)
	}
	return e, nil
}

func decodeArray(dec *json.Decoder) (any, error) {
	items := []any{}
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("entity: %w", err)
	}
	return listOf(items), nil
}

// listOf returns a relation when every item is an entity, the scalar list
// otherwise. An empty list stays a scalar list until Flatten sees it.
func listOf(items []any) any {
	if len(items) == 0 {
		return items
	}
	rel := make([]*Entity, len(items))
	for i, item := range items {
		child, ok := item.(*Entity)
		if !ok {
			return items
		}
		rel[i] = child
	}
	return rel
}

// Flatten hoists GraphQL connections into plain relations, recursively:
// a field holding {edges: [{node: {...}}, ...]} is replaced by the list of
// flattened nodes. The entity is modified in place and returned.
func Flatten(e *Entity) *Entity {
	if e == nil {
		return nil
	}
	e.Range(func(k string, v any) bool {
		e.Set(k, flattenValue(v))
		return true
	})
	return e
}

func flattenValue(v any) any {
	switch t := v.(type) {
	case *Entity:
		if nodes, ok := connectionNodes(t); ok {
			return nodes
		}
		return Flatten(t)
	case []*Entity:
		for _, child := range t {
			Flatten(child)
		}
		return t
	default:
		return v
	}
}

// connectionNodes returns the flattened nodes of a {edges: [...]} object.
func connectionNodes(e *Entity) ([]*Entity, bool) {
	raw, ok := e.Get("edges")
	if !ok {
		return nil, false
	}
	var edges []*Entity
	switch t := raw.(type) {
	case []*Entity:
		edges = t
	case []any:
		if len(t) != 0 {
			return nil, false
		}
	default:
		return nil, false
	}
	nodes := make([]*Entity, 0, len(edges))
	for _, edge := range edges {
		node, _ := edge.Get("node")
		child, ok := node.(*Entity)
		if !ok {
			continue
		}
		nodes = append(nodes, Flatten(child))
	}
	return nodes, true
}
