package sorter

import (
	"slices"

	"github.com/kbukum/gobexport/entity"
)

// Latest prefers the greatest value at key. Dates in ISO form compare
// correctly as text. Empty values lose.
func Latest(key string) Sorter {
	return Sorter{Key: key, Outranks: func(x, y any) bool {
		if entity.IsEmpty(x) {
			return false
		}
		return entity.IsEmpty(y) || entity.Text(x) > entity.Text(y)
	}}
}

// Earliest prefers the smallest non-empty value at key.
func Earliest(key string) Sorter {
	return Sorter{Key: key, Outranks: func(x, y any) bool {
		if entity.IsEmpty(x) {
			return false
		}
		return entity.IsEmpty(y) || entity.Text(x) < entity.Text(y)
	}}
}

// Prefer ranks the value at key by its position in values. Values not
// listed lose to every listed one.
func Prefer(key string, values ...string) Sorter {
	rank := func(v any) int {
		if i := slices.Index(values, entity.Text(v)); i >= 0 && v != nil {
			return i
		}
		return len(values)
	}
	return Sorter{Key: key, Outranks: func(x, y any) bool {
		return rank(x) < rank(y)
	}}
}

// NonEmpty prefers candidates that have a value at key.
func NonEmpty(key string) Sorter {
	return Sorter{Key: key, Outranks: func(x, y any) bool {
		return !entity.IsEmpty(x) && entity.IsEmpty(y)
	}}
}
