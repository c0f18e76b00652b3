package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"

	"github.com/kbukum/gobexport/entity"
)

// Output layouts of the date formatters.
const (
	DateLayout     = "2006-01-02"
	DatetimeLayout = "2006-01-02T15:04:05"
)

var timeInputs = []string{
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	DateLayout,
}

func registerBuiltins(r *Registry) {
	r.RegisterFunc("upper", text(strings.ToUpper))
	r.RegisterFunc("lower", text(strings.ToLower))
	r.RegisterFunc("trim", text(strings.TrimSpace))
	r.Register("date", timeFormatter(DateLayout))
	r.Register("datetime", timeFormatter(DatetimeLayout))
	r.RegisterFunc("boolean_jn", booleanJN)
	r.RegisterFunc("geometry_wkt", geometryWKT)
	r.Register("join", join)
}

// text lifts a string transform. Nil stays nil.
func text(fn func(string) string) Func {
	return func(v any) (any, error) {
		if v == nil {
			return nil, nil
		}
		return fn(entity.Text(v)), nil
	}
}

// timeFormatter renders a date or datetime with the layout given as the
// single argument, or with def.
func timeFormatter(def string) Factory {
	return func(args ...string) (Func, error) {
		layout := def
		switch len(args) {
		case 0:
		case 1:
			layout = args[0]
		default:
			return nil, fmt.Errorf("expected at most one layout argument, got %d", len(args))
		}
		return func(v any) (any, error) {
			s, ok := v.(string)
			if v == nil || (ok && s == "") {
				return nil, nil
			}
			if !ok {
				return nil, fmt.Errorf("expected a date string, got %T", v)
			}
			for _, in := range timeInputs {
				if t, err := time.Parse(in, s); err == nil {
					return t.Format(layout), nil
				}
			}
			return nil, fmt.Errorf("%q is not a date or datetime", s)
		}, nil
	}
}

// booleanJN renders booleans as J or N.
func booleanJN(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool:
		if t {
			return "J", nil
		}
		return "N", nil
	case string:
		switch strings.ToLower(t) {
		case "":
			return nil, nil
		case "true", "j":
			return "J", nil
		case "false", "n":
			return "N", nil
		}
	}
	return nil, fmt.Errorf("expected a boolean, got %v", v)
}

// join concatenates list items with the separator argument, "|" by default.
func join(args ...string) (Func, error) {
	sep := "|"
	switch len(args) {
	case 0:
	case 1:
		sep = args[0]
	default:
		return nil, fmt.Errorf("expected at most one separator argument, got %d", len(args))
	}
	return func(v any) (any, error) {
		var parts []string
		switch t := v.(type) {
		case nil:
			return nil, nil
		case []any:
			for _, item := range t {
				parts = append(parts, entity.Text(item))
			}
		case []*entity.Entity:
			for _, item := range t {
				parts = append(parts, entity.Text(item))
			}
		case []string:
			parts = t
		default:
			return entity.Text(v), nil
		}
		return strings.Join(parts, sep), nil
	}, nil
}

// geometryWKT renders a GeoJSON geometry as WKT. Strings that are not
// GeoJSON objects are taken to be WKT already.
func geometryWKT(v any) (any, error) {
	var raw []byte
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *entity.Entity:
		var err error
		if raw, err = t.MarshalJSON(); err != nil {
			return nil, err
		}
	case string:
		if !strings.HasPrefix(strings.TrimSpace(t), "{") {
			return t, nil
		}
		raw = []byte(t)
	default:
		return nil, fmt.Errorf("expected a GeoJSON geometry, got %T", v)
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("geojson: %w", err)
	}
	return wkt.MarshalString(g.Geometry()), nil
}
