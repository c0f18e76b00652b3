package entity

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a Path: a field name or a list index.
type Segment struct {
	Field   string
	Index   int
	IsIndex bool
}

// Path addresses a value in an entity's relation tree.
type Path []Segment

// ParsePath parses a dotted path such as "parent.[0].child".
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, fmt.Errorf("entity: empty path")
	}
	parts := strings.Split(s, ".")
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		switch {
		case part == "":
			return nil, fmt.Errorf("entity: empty segment in path %q", s)
		case strings.HasPrefix(part, "[") && strings.HasSuffix(part, "]"):
			idx, err := strconv.Atoi(part[1 : len(part)-1])
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("entity: invalid index %s in path %q", part, s)
			}
			p = append(p, Segment{Index: idx, IsIndex: true})
		default:
			p = append(p, Segment{Field: part})
		}
	}
	return p, nil
}

// MustParsePath is like ParsePath but panics on error.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the dotted form of the path.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		if seg.IsIndex {
			parts[i] = "[" + strconv.Itoa(seg.Index) + "]"
		} else {
			parts[i] = seg.Field
		}
	}
	return strings.Join(parts, ".")
}

// Resolve walks p starting at v and returns the value found, or nil.
//
// A field segment applied to a relation holding exactly one child descends
// into that child, since most registry relations are single-valued.
func Resolve(v any, p Path) any {
	cur := v
	for _, seg := range p {
		if cur == nil {
			return nil
		}
		if seg.IsIndex {
			cur = index(cur, seg.Index)
			continue
		}
		cur = field(cur, seg.Field)
	}
	return cur
}

func index(v any, i int) any {
	switch t := v.(type) {
	case []*Entity:
		if i < len(t) {
			if t[i] == nil {
				return nil
			}
			return t[i]
		}
	case []any:
		if i < len(t) {
			return t[i]
		}
	}
	return nil
}

func field(v any, name string) any {
	switch t := v.(type) {
	case *Entity:
		if t == nil {
			return nil
		}
		got, _ := t.Get(name)
		if child, ok := got.(*Entity); ok && child == nil {
			return nil
		}
		return got
	case []*Entity:
		if len(t) == 1 {
			return field(t[0], name)
		}
	}
	return nil
}

// Lookup resolves a dotted path against the entity. A malformed path
// resolves to nil like any other missing value.
func (e *Entity) Lookup(path string) any {
	p, err := ParsePath(path)
	if err != nil {
		return nil
	}
	return Resolve(e, p)
}

// IsEmpty reports whether v counts as empty: nil, "", an empty list or an
// entity without fields.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case *Entity:
		return t.Len() == 0
	case []*Entity:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	default:
		return false
	}
}
