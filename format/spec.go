package format

import (
	"slices"

	"github.com/kbukum/gobexport/entity"
	"github.com/kbukum/gobexport/errors"
)

// Column is one named output column.
type Column struct {
	Name  string
	Value Value
}

// Spec resolves entities into rows. Its column order is fixed when it is
// built and never changes afterwards.
type Spec struct {
	names     []string
	resolvers []resolver
}

// NewSpec builds a spec from columns, looking up formatter names in reg.
// A nil reg uses the default registry.
func NewSpec(reg *Registry, columns ...Column) (*Spec, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	if len(columns) == 0 {
		return nil, errors.ConfigurationError("format has no columns")
	}
	s := &Spec{
		names:     make([]string, 0, len(columns)),
		resolvers: make([]resolver, 0, len(columns)),
	}
	for _, c := range columns {
		if c.Name == "" {
			return nil, errors.ConfigurationError("format column without name")
		}
		if slices.Contains(s.names, c.Name) {
			return nil, errors.ConfigurationError("duplicate column %s", c.Name)
		}
		r, err := compile(c.Name, c.Value, reg)
		if err != nil {
			return nil, err
		}
		s.names = append(s.names, c.Name)
		s.resolvers = append(s.resolvers, r)
	}
	return s, nil
}

// Fieldnames returns the column names in output order.
func (s *Spec) Fieldnames() []string {
	return slices.Clone(s.names)
}

// Row resolves e into one value per column.
func (s *Spec) Row(e *entity.Entity) ([]any, error) {
	row := make([]any, len(s.resolvers))
	for i, r := range s.resolvers {
		v, err := r(e)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

// Map resolves e into an entity keyed by column name, in column order.
func (s *Spec) Map(e *entity.Entity) (*entity.Entity, error) {
	row, err := s.Row(e)
	if err != nil {
		return nil, err
	}
	out := entity.New()
	for i, name := range s.names {
		out.Set(name, row[i])
	}
	return out, nil
}
