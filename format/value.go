package format

import (
	"github.com/kbukum/gobexport/entity"
	"github.com/kbukum/gobexport/errors"
)

// Value is the definition of one output column value. The implementations
// are FieldRef, Literal, Format and Conditional.
type Value interface {
	value()
}

// FieldRef projects the value at Path.
type FieldRef struct {
	Path string
}

// Literal is a constant that ignores the entity.
type Literal struct {
	Value any
}

// Format passes the value at Path through a formatter. Fn takes
// precedence over a Formatter name looked up in the registry.
type Format struct {
	Path      string
	Formatter string
	Args      []string
	Fn        Func
}

// Conditional resolves True when the value at Reference is empty and
// False otherwise. Negate swaps the test.
type Conditional struct {
	Reference string
	Negate    bool
	True      Value
	False     Value
}

func (FieldRef) value()    {}
func (Literal) value()     {}
func (Format) value()      {}
func (Conditional) value() {}

// Ref is shorthand for a FieldRef.
func Ref(path string) FieldRef { return FieldRef{Path: path} }

// resolver computes one column value.
type resolver func(e *entity.Entity) (any, error)

// compile checks v and turns it into a resolver with parsed paths.
func compile(column string, v Value, reg *Registry) (resolver, error) {
	switch t := v.(type) {
	case FieldRef:
		p, err := path(column, t.Path)
		if err != nil {
			return nil, err
		}
		return func(e *entity.Entity) (any, error) {
			return entity.Resolve(e, p), nil
		}, nil

	case Literal:
		return func(*entity.Entity) (any, error) { return t.Value, nil }, nil

	case Format:
		p, err := path(column, t.Path)
		if err != nil {
			return nil, err
		}
		fn := t.Fn
		if fn == nil {
			if fn, err = reg.Lookup(t.Formatter, t.Args...); err != nil {
				return nil, errors.ConfigurationError("column %s: %v", column, err)
			}
		}
		return func(e *entity.Entity) (any, error) {
			in := entity.Resolve(e, p)
			out, err := fn(in)
			if err != nil {
				return nil, errors.ConversionError(column, entity.Text(in), err)
			}
			return out, nil
		}, nil

	case Conditional:
		p, err := path(column, t.Reference)
		if err != nil {
			return nil, err
		}
		whenTrue, err := compileBranch(column, t.True, reg)
		if err != nil {
			return nil, err
		}
		whenFalse, err := compileBranch(column, t.False, reg)
		if err != nil {
			return nil, err
		}
		return func(e *entity.Entity) (any, error) {
			if entity.IsEmpty(entity.Resolve(e, p)) != t.Negate {
				return whenTrue(e)
			}
			return whenFalse(e)
		}, nil

	case nil:
		return nil, errors.ConfigurationError("column %s: no value", column)

	default:
		return nil, errors.ConfigurationError("column %s: unsupported value %T", column, v)
	}
}

// compileBranch compiles a conditional branch; a missing branch is nil.
func compileBranch(column string, v Value, reg *Registry) (resolver, error) {
	if v == nil {
		v = Literal{}
	}
	return compile(column, v, reg)
}

func path(column, s string) (entity.Path, error) {
	p, err := entity.ParsePath(s)
	if err != nil {
		return nil, errors.ConfigurationError("column %s: %v", column, err)
	}
	return p, nil
}
