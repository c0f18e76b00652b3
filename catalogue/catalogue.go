package catalogue

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kbukum/gobexport/errors"
	"github.com/kbukum/gobexport/filter"
	"github.com/kbukum/gobexport/format"
	"github.com/kbukum/gobexport/validation"
)

// Source types.
const (
	TypeREST      = "rest"
	TypeGraphQL   = "graphql"
	TypeStreaming = "streaming"
)

// Sink names.
const (
	SinkCSV    = "csv"
	SinkNDJSON = "ndjson"
)

// Sorter ranks.
const (
	RankLatest   = "latest"
	RankEarliest = "earliest"
	RankNonEmpty = "nonempty"
	RankPrefer   = "prefer"
)

// Catalogue holds the source and product definitions in file order.
type Catalogue struct {
	Sources  []SourceDef
	Products []ProductDef

	// dir resolves relative format files.
	dir string
}

// SourceDef describes one remote query.
type SourceDef struct {
	Name string `yaml:"-"`
	Type string `yaml:"type"`
	// Path is the REST path.
	Path string `yaml:"path"`
	// Query is the GraphQL query text.
	Query string `yaml:"query"`
	// Endpoint overrides the default GraphQL or streaming path.
	Endpoint string `yaml:"endpoint"`
	// BatchSize overrides the configured page size; 0 streams all at once.
	BatchSize *int `yaml:"batch_size"`
	// Secure requests credentials for Identity, or the default identity.
	Secure   bool   `yaml:"secure"`
	Identity string `yaml:"identity"`
}

// ProductDef describes one output file.
type ProductDef struct {
	Name      string              `yaml:"-"`
	Source    string              `yaml:"source"`
	Format    yaml.Node           `yaml:"format"`
	Filters   []filter.Definition `yaml:"filters"`
	History   *HistoryDef         `yaml:"history"`
	Sorters   []SorterDef         `yaml:"sorters"`
	Sink      string              `yaml:"sink"`
	Delimiter string              `yaml:"delimiter"`
	Output    string              `yaml:"output"`
	Append    bool                `yaml:"append"`
}

// HistoryDef configures history expansion.
type HistoryDef struct {
	Begin      string   `yaml:"begin"`
	End        string   `yaml:"end"`
	References []string `yaml:"references"`
}

// SorterDef configures one result sorter.
type SorterDef struct {
	Key    string   `yaml:"key"`
	Rank   string   `yaml:"rank"`
	Values []string `yaml:"values"`
}

// document is the raw file layout; mappings are kept as nodes so their
// order survives decoding.
type document struct {
	Sources  yaml.Node `yaml:"sources"`
	Products yaml.Node `yaml:"products"`
}

// Load reads and validates the catalogue at path.
func Load(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigurationError("catalogue: %v", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	c.dir = filepath.Dir(path)
	return c, nil
}

// Parse decodes and validates a catalogue. Relative format files resolve
// against the working directory.
func Parse(data []byte) (*Catalogue, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.ConfigurationError("catalogue: %v", err)
	}

	c := &Catalogue{dir: "."}
	sources, err := decodeMapping[SourceDef]("sources", &doc.Sources)
	if err != nil {
		return nil, err
	}
	for _, s := range sources {
		s.value.Name = s.name
		c.Sources = append(c.Sources, s.value)
	}
	products, err := decodeMapping[ProductDef]("products", &doc.Products)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		p.value.Name = p.name
		c.Products = append(c.Products, p.value)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

type entry[T any] struct {
	name  string
	value T
}

// decodeMapping decodes every value of a mapping node in order.
func decodeMapping[T any](section string, node *yaml.Node) ([]entry[T], error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, errors.ConfigurationError("catalogue line %d: %s must be a mapping", node.Line, section)
	}
	out := make([]entry[T], 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		var v T
		if err := val.Decode(&v); err != nil {
			return nil, errors.ConfigurationError("catalogue line %d: %s.%s: %v", val.Line, section, key.Value, err)
		}
		out = append(out, entry[T]{name: key.Value, value: v})
	}
	return out, nil
}

// Source returns the source definition called name.
func (c *Catalogue) Source(name string) (SourceDef, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceDef{}, false
}

// Product returns the product definition called name.
func (c *Catalogue) Product(name string) (ProductDef, bool) {
	for _, p := range c.Products {
		if p.Name == name {
			return p, true
		}
	}
	return ProductDef{}, false
}

// Validate checks the definitions without contacting any remote.
func (c *Catalogue) Validate() error {
	v := validation.New()
	seen := make(map[string]bool)
	for _, s := range c.Sources {
		field := "sources." + s.Name
		if seen[field] {
			v.AddError(field, "is defined twice")
		}
		seen[field] = true
		s.validate(field, v)
	}
	for _, p := range c.Products {
		field := "products." + p.Name
		if seen[field] {
			v.AddError(field, "is defined twice")
		}
		seen[field] = true
		p.validate(field, c, v)
	}
	if len(c.Products) == 0 {
		v.AddError("products", "is empty")
	}
	return v.Err()
}

func (s SourceDef) validate(field string, v *validation.Validator) {
	v.OneOf(field+".type", s.Type, []string{TypeREST, TypeGraphQL, TypeStreaming})
	switch s.Type {
	case TypeREST:
		v.Required(field+".path", s.Path).
			Custom(s.BatchSize == nil, field+".batch_size", "is not supported by rest sources")
	case TypeGraphQL, TypeStreaming:
		v.Required(field+".query", s.Query)
		if s.BatchSize != nil {
			v.Min(field+".batch_size", *s.BatchSize, 0)
		}
	}
	v.Custom(s.Secure || s.Identity == "", field+".identity", "requires secure")
}

func (p ProductDef) validate(field string, c *Catalogue, v *validation.Validator) {
	v.Required(field+".source", p.Source).
		Required(field+".output", p.Output).
		Custom(p.Format.Kind != 0, field+".format", "is required")
	if _, ok := c.Source(p.Source); p.Source != "" && !ok {
		v.AddError(field+".source", "is not defined")
	}
	if p.Sink != "" {
		v.OneOf(field+".sink", p.Sink, []string{SinkCSV, SinkNDJSON})
	}
	v.Custom(len([]rune(p.Delimiter)) <= 1, field+".delimiter", "must be a single character")
	if _, err := filter.FromConfig(p.Filters...); err != nil {
		v.Merge(field+".filters", err)
	}
	if p.History != nil {
		v.Path(field+".history.begin", p.History.Begin).
			Path(field+".history.end", p.History.End)
		for _, r := range p.History.References {
			v.Path(field+".history.references", r)
		}
	}
	for _, s := range p.Sorters {
		v.Required(field+".sorters.key", s.Key).
			Path(field+".sorters.key", s.Key).
			OneOf(field+".sorters.rank", s.Rank, []string{RankLatest, RankEarliest, RankNonEmpty, RankPrefer}).
			Custom(s.Rank != RankPrefer || len(s.Values) > 0, field+".sorters.values", "are required for prefer")
	}
}

// CheckFormats compiles the format of every product against reg.
func (c *Catalogue) CheckFormats(reg *format.Registry) error {
	v := validation.New()
	for _, p := range c.Products {
		if _, err := c.buildFormat(p, reg); err != nil {
			v.Merge("products."+p.Name+".format", err)
		}
	}
	return v.Err()
}
