package filter

import (
	"github.com/kbukum/gobexport/entity"
	"github.com/kbukum/gobexport/errors"
)

// Filter types accepted in declarative definitions.
const (
	TypeNotEmpty = "notempty"
	TypeUnique   = "unique"
	TypeGroup    = "group"
)

// Definition is the declarative form of a filter.
type Definition struct {
	Type    string       `yaml:"type" mapstructure:"type"`
	Fields  []string     `yaml:"fields,omitempty" mapstructure:"fields"`
	Field   string       `yaml:"field,omitempty" mapstructure:"field"`
	Filters []Definition `yaml:"filters,omitempty" mapstructure:"filters"`
}

// FromConfig builds the filter for defs. Several definitions are grouped;
// none yields a nil filter.
func FromConfig(defs ...Definition) (Filter, error) {
	switch len(defs) {
	case 0:
		return nil, nil
	case 1:
		return build(defs[0])
	default:
		return build(Definition{Type: TypeGroup, Filters: defs})
	}
}

func build(def Definition) (Filter, error) {
	switch def.Type {
	case TypeNotEmpty:
		if len(def.Fields) == 0 && def.Field != "" {
			def.Fields = []string{def.Field}
		}
		if len(def.Fields) == 0 {
			return nil, errors.ConfigurationError("filter %s: no fields", def.Type)
		}
		if err := checkPaths(def.Type, def.Fields...); err != nil {
			return nil, err
		}
		return NotEmpty(def.Fields...), nil
	case TypeUnique:
		if def.Field == "" {
			return nil, errors.ConfigurationError("filter %s: no field", def.Type)
		}
		if err := checkPaths(def.Type, def.Field); err != nil {
			return nil, err
		}
		return Unique(def.Field), nil
	case TypeGroup:
		children := make([]Filter, 0, len(def.Filters))
		for _, d := range def.Filters {
			f, err := build(d)
			if err != nil {
				return nil, err
			}
			children = append(children, f)
		}
		return Group(children...), nil
	default:
		return nil, errors.ConfigurationError("unknown filter type %q", def.Type)
	}
}

func checkPaths(kind string, paths ...string) error {
	for _, p := range paths {
		if _, err := entity.ParsePath(p); err != nil {
			return errors.ConfigurationError("filter %s: %v", kind, err)
		}
	}
	return nil
}
