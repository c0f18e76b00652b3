package format

import (
	"fmt"
	"os"

	"github.com/kbukum/gobexport/errors"
	"gopkg.in/yaml.v3"
)

// Keywords of the declarative format.
const (
	ActionLiteral    = "literal"
	ActionFormat     = "format"
	ConditionIsEmpty = "isempty"
)

// entryKeys lists the keys a mapping entry may hold.
var entryKeys = map[string]bool{
	"action": true, "condition": true, "value": true, "formatter": true,
	"args": true, "reference": true, "negate": true, "trueval": true, "falseval": true,
}

type entryDef struct {
	Action    string    `yaml:"action"`
	Condition string    `yaml:"condition"`
	Value     yaml.Node `yaml:"value"`
	Formatter string    `yaml:"formatter"`
	Args      []string  `yaml:"args"`
	Reference string    `yaml:"reference"`
	Negate    bool      `yaml:"negate"`
	TrueVal   yaml.Node `yaml:"trueval"`
	FalseVal  yaml.Node `yaml:"falseval"`
}

// Parse builds a spec from a YAML mapping of column name to value entry.
func Parse(data []byte, reg *Registry) (*Spec, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.ConfigurationError("format: %v", err)
	}
	return FromNode(&doc, reg)
}

// ParseFile reads and parses a YAML format file.
func ParseFile(path string, reg *Registry) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigurationError("format: %v", err)
	}
	return Parse(data, reg)
}

// FromNode builds a spec from a decoded YAML mapping node.
func FromNode(node *yaml.Node, reg *Registry) (*Spec, error) {
	cols, err := Columns(node)
	if err != nil {
		return nil, err
	}
	return NewSpec(reg, cols...)
}

// Columns decodes the column definitions of a YAML mapping node without
// compiling them.
func Columns(node *yaml.Node) ([]Column, error) {
	if node == nil {
		return nil, errors.ConfigurationError("format: empty document")
	}
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil, errors.ConfigurationError("format: empty document")
		}
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil, errors.ConfigurationError("format: line %d: expected a mapping of columns", node.Line)
	}
	cols := make([]Column, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		v, err := valueOf(name, node.Content[i+1])
		if err != nil {
			return nil, err
		}
		cols = append(cols, Column{Name: name, Value: v})
	}
	return cols, nil
}

// valueOf decodes one value entry: a path string or an entry mapping.
func valueOf(column string, node *yaml.Node) (Value, error) {
	switch node.Kind {
	case 0:
		return nil, nil
	case yaml.ScalarNode:
		if node.Tag != "!!str" {
			return nil, lineError(column, node, "expected a path, got %s", node.Value)
		}
		return FieldRef{Path: node.Value}, nil
	case yaml.MappingNode:
	default:
		return nil, lineError(column, node, "expected a path or a mapping")
	}

	for i := 0; i < len(node.Content); i += 2 {
		if key := node.Content[i].Value; !entryKeys[key] {
			return nil, lineError(column, node.Content[i], "unknown key %q", key)
		}
	}
	var def entryDef
	if err := node.Decode(&def); err != nil {
		return nil, lineError(column, node, "%v", err)
	}

	switch {
	case def.Action != "" && def.Condition != "":
		return nil, lineError(column, node, "both action and condition given")
	case def.Action == ActionLiteral:
		var lit any
		if def.Value.Kind != 0 {
			if err := def.Value.Decode(&lit); err != nil {
				return nil, lineError(column, &def.Value, "%v", err)
			}
		}
		return Literal{Value: lit}, nil
	case def.Action == ActionFormat:
		if def.Value.Kind != yaml.ScalarNode {
			return nil, lineError(column, node, "format needs a path value")
		}
		if def.Formatter == "" {
			return nil, lineError(column, node, "format needs a formatter")
		}
		return Format{Path: def.Value.Value, Formatter: def.Formatter, Args: def.Args}, nil
	case def.Action != "":
		return nil, lineError(column, node, "unknown action %q", def.Action)
	case def.Condition == ConditionIsEmpty:
		whenTrue, err := valueOf(column, &def.TrueVal)
		if err != nil {
			return nil, err
		}
		whenFalse, err := valueOf(column, &def.FalseVal)
		if err != nil {
			return nil, err
		}
		return Conditional{Reference: def.Reference, Negate: def.Negate, True: whenTrue, False: whenFalse}, nil
	case def.Condition != "":
		return nil, lineError(column, node, "unknown condition %q", def.Condition)
	default:
		return nil, lineError(column, node, "entry needs an action or a condition")
	}
}

func lineError(column string, node *yaml.Node, format string, args ...any) error {
	return errors.ConfigurationError("format: line %d: column %s: %s", node.Line, column, fmt.Sprintf(format, args...))
}
