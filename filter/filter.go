// Package filter drops or deduplicates entities before they are formatted.
package filter

import (
	"github.com/kbukum/gobexport/entity"
)

// Filter decides per entity whether it is written. Reset clears any state
// kept between calls; exports call it once per run.
type Filter interface {
	Filter(e *entity.Entity) bool
	Reset()
}

// NotEmptyFilter passes entities whose fields all hold a value.
type NotEmptyFilter struct {
	fields []string
}

// NotEmpty passes iff every field path resolves to a non-empty value.
func NotEmpty(fields ...string) *NotEmptyFilter {
	return &NotEmptyFilter{fields: fields}
}

func (f *NotEmptyFilter) Filter(e *entity.Entity) bool {
	for _, field := range f.fields {
		if entity.IsEmpty(e.Lookup(field)) {
			return false
		}
	}
	return true
}

func (f *NotEmptyFilter) Reset() {}

// UniqueFilter passes the first entity per distinct value of a field.
type UniqueFilter struct {
	field string
	seen  map[string]struct{}
}

// Unique passes the first occurrence of each value at field since the
// last Reset.
func Unique(field string) *UniqueFilter {
	return &UniqueFilter{field: field, seen: make(map[string]struct{})}
}

func (f *UniqueFilter) Filter(e *entity.Entity) bool {
	key := entity.Canonical(e.Lookup(f.field))
	if _, dup := f.seen[key]; dup {
		return false
	}
	f.seen[key] = struct{}{}
	return true
}

func (f *UniqueFilter) Reset() {
	clear(f.seen)
}

// GroupFilter combines filters with a logical AND.
type GroupFilter struct {
	filters []Filter
}

// Group passes iff all filters pass. Evaluation stops at the first
// filter that rejects, so later stateful filters do not record the entity.
func Group(filters ...Filter) *GroupFilter {
	return &GroupFilter{filters: filters}
}

func (f *GroupFilter) Filter(e *entity.Entity) bool {
	for _, child := range f.filters {
		if !child.Filter(e) {
			return false
		}
	}
	return true
}

func (f *GroupFilter) Reset() {
	for _, child := range f.filters {
		child.Reset()
	}
}

// Func adapts f for pipeline.Filter.
func Func(f Filter) func(*entity.Entity) bool {
	if f == nil {
		return func(*entity.Entity) bool { return true }
	}
	return f.Filter
}
