package sorter

import (
	"github.com/kbukum/gobexport/entity"
)

// Sorter ranks candidates by the value found at Key.
type Sorter struct {
	// Key is the path of the compared value, e.g. "ligtInBuurt.code".
	Key string
	// Outranks reports whether x is strictly better than y.
	Outranks func(x, y any) bool
}

// Box returns every combination of e holding exactly one child per
// multi-valued relation. Without relations all multi-valued relations of
// e are boxed. An entity without multi-valued relations boxes to itself.
func Box(e *entity.Entity, relations ...string) []*entity.Entity {
	if e == nil {
		return nil
	}
	if len(relations) == 0 {
		e.Range(func(k string, v any) bool {
			if children, ok := v.([]*entity.Entity); ok && len(children) > 1 {
				relations = append(relations, k)
			}
			return true
		})
	}
	return box([]*entity.Entity{e}, relations)
}

func box(boxes []*entity.Entity, relations []string) []*entity.Entity {
	if len(relations) == 0 {
		return boxes
	}
	name := relations[0]
	var out []*entity.Entity
	for _, b := range boxes {
		v, _ := b.Get(name)
		children, ok := v.([]*entity.Entity)
		if !ok || len(children) <= 1 {
			out = append(out, b)
			continue
		}
		for _, child := range children {
			out = append(out, withRelation(b, name, child))
		}
	}
	return box(out, relations[1:])
}

// withRelation copies e with relation name narrowed to child. Other
// values are shared with e.
func withRelation(e *entity.Entity, name string, child *entity.Entity) *entity.Entity {
	c := entity.New()
	e.Range(func(k string, v any) bool {
		if k == name {
			v = []*entity.Entity{child}
		}
		c.Set(k, v)
		return true
	})
	return c
}

// Select boxes e on every multi-valued relation, eliminates candidates
// per sorter and returns the first survivor. Every relation of the result
// holds at most one child. Without sorters e is returned unchanged.
func Select(e *entity.Entity, sorters ...Sorter) *entity.Entity {
	if e == nil || len(sorters) == 0 {
		return e
	}
	candidates := Box(e)
	for _, s := range sorters {
		if len(candidates) <= 1 {
			break
		}
		candidates = eliminate(candidates, s)
	}
	return candidates[0]
}

// eliminate keeps the candidates whose value ties for best under s.
func eliminate(candidates []*entity.Entity, s Sorter) []*entity.Entity {
	values := make([]any, len(candidates))
	best := 0
	for i, c := range candidates {
		values[i] = c.Lookup(s.Key)
		if s.Outranks(values[i], values[best]) {
			best = i
		}
	}
	kept := candidates[:0:0]
	for i, c := range candidates {
		if !s.Outranks(values[best], values[i]) {
			kept = append(kept, c)
		}
	}
	return kept
}

// RowFormatter returns a row formatter applying Select to every entity.
func RowFormatter(sorters ...Sorter) func(*entity.Entity) (*entity.Entity, error) {
	return func(e *entity.Entity) (*entity.Entity, error) {
		return Select(e, sorters...), nil
	}
}
