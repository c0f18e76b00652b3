package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Text renders a resolved value as output text. Nil is the empty string,
// scalars use their natural form and structured values are JSON.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		if e, ok := t.(*Entity); ok && e == nil {
			return ""
		}
		return t.String()
	case int, int64, float64:
		return fmt.Sprint(t)
	default:
		return Canonical(v)
	}
}

// Canonical returns a stable string form of v suitable as a set key. Two
// values with equal content, including field order, map to the same key.
func Canonical(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(b)
}
