package catalogue

import (
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kbukum/gobexport/auth/oidc"
	"github.com/kbukum/gobexport/buffer"
	"github.com/kbukum/gobexport/errors"
	"github.com/kbukum/gobexport/export"
	"github.com/kbukum/gobexport/filter"
	"github.com/kbukum/gobexport/format"
	"github.com/kbukum/gobexport/history"
	"github.com/kbukum/gobexport/httpclient"
	"github.com/kbukum/gobexport/logger"
	"github.com/kbukum/gobexport/observability"
	"github.com/kbukum/gobexport/sorter"
	"github.com/kbukum/gobexport/source"
)

// Deps are the collaborators products are wired to.
type Deps struct {
	// Client performs all API calls.
	Client *httpclient.Client
	// Credentials hands out lifecycles for secure sources.
	Credentials *oidc.Cache
	// Identity is used by secure sources that name none.
	Identity string
	// Buffer memoizes sources shared by several selected products. Optional.
	Buffer *buffer.Cache
	// Registry resolves formatter names; nil uses the default registry.
	Registry *format.Registry
	// GraphQLBatch and StreamingBatch are the default batch sizes.
	GraphQLBatch   int
	StreamingBatch int

	Logger  *logger.Logger
	Metrics *observability.ExportMetrics
}

// Build returns the products called names in catalogue order, or all
// products when no name is given.
func (c *Catalogue) Build(deps Deps, names ...string) ([]export.Product, error) {
	if deps.Client == nil {
		return nil, errors.ConfigurationError("catalogue: no HTTP client")
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}

	selected, err := c.selectProducts(names)
	if err != nil {
		return nil, err
	}

	uses := make(map[string]int)
	for _, p := range selected {
		uses[p.Source]++
	}

	sources := make(map[string]source.Source)
	products := make([]export.Product, 0, len(selected))
	for _, def := range selected {
		src, ok := sources[def.Source]
		if !ok {
			sd, _ := c.Source(def.Source)
			if src, err = buildSource(sd, deps); err != nil {
				return nil, err
			}
			if deps.Buffer != nil && uses[def.Source] > 1 {
				src = deps.Buffer.Wrap(src)
			}
			sources[def.Source] = src
		}
		p, err := c.buildProduct(def, src, deps)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (c *Catalogue) selectProducts(names []string) ([]ProductDef, error) {
	if len(names) == 0 {
		return c.Products, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := c.Product(n); !ok {
			return nil, errors.ConfigurationError("catalogue: unknown product %q", n)
		}
		want[n] = true
	}
	var out []ProductDef
	for _, p := range c.Products {
		if want[p.Name] {
			out = append(out, p)
		}
	}
	return out, nil
}

func buildSource(def SourceDef, deps Deps) (source.Source, error) {
	opts := source.Options{
		Client:   deps.Client,
		Endpoint: def.Endpoint,
		Logger:   deps.Logger,
		Metrics:  deps.Metrics,
	}
	if def.Secure {
		identity := def.Identity
		if identity == "" {
			identity = deps.Identity
		}
		if deps.Credentials == nil || identity == "" {
			return nil, errors.ConfigurationError("source %s: secure but no credentials are configured", def.Name)
		}
		l, err := deps.Credentials.Get(identity)
		if err != nil {
			return nil, err
		}
		opts.Credentials = l
	}

	switch def.Type {
	case TypeREST:
		return source.NewREST(def.Path, opts)
	case TypeGraphQL:
		opts.BatchSize = batchSize(def.BatchSize, deps.GraphQLBatch)
		return source.NewGraphQL(def.Query, opts)
	case TypeStreaming:
		opts.BatchSize = batchSize(def.BatchSize, deps.StreamingBatch)
		return source.NewStreaming(def.Query, opts)
	default:
		return nil, errors.ConfigurationError("source %s: unknown type %q", def.Name, def.Type)
	}
}

func batchSize(override *int, def int) int {
	if override != nil {
		return *override
	}
	return def
}

func (c *Catalogue) buildProduct(def ProductDef, src source.Source, deps Deps) (export.Product, error) {
	spec, err := c.buildFormat(def, deps.Registry)
	if err != nil {
		return export.Product{}, errors.ConfigurationError("product %s: format", def.Name).WithCause(err)
	}
	f, err := filter.FromConfig(def.Filters...)
	if err != nil {
		return export.Product{}, err
	}

	p := export.Product{
		Name:   def.Name,
		Source: src,
		Spec:   spec,
		Filter: f,
		Output: def.Output,
		Append: def.Append,
	}
	if def.History != nil {
		p.History = &history.Expander{
			Begin:      def.History.Begin,
			End:        def.History.End,
			References: def.History.References,
			Logger:     deps.Logger.WithFields(logger.Fields(logger.FieldProduct, def.Name)),
		}
	}
	for _, s := range def.Sorters {
		p.Sorters = append(p.Sorters, buildSorter(s))
	}

	switch def.Sink {
	case SinkNDJSON:
		p.Sink = export.NDJSONSink{}
	default:
		sink := &export.CSVSink{}
		if r := []rune(def.Delimiter); len(r) == 1 {
			sink.Delimiter = r[0]
		}
		p.Sink = sink
	}
	return p, nil
}

// buildFormat parses an inline format or the format file it names.
func (c *Catalogue) buildFormat(def ProductDef, reg *format.Registry) (*format.Spec, error) {
	if def.Format.Kind == yaml.ScalarNode {
		path := def.Format.Value
		if !filepath.IsAbs(path) {
			path = filepath.Join(c.dir, path)
		}
		return format.ParseFile(path, reg)
	}
	return format.FromNode(&def.Format, reg)
}

func buildSorter(def SorterDef) sorter.Sorter {
	switch def.Rank {
	case RankEarliest:
		return sorter.Earliest(def.Key)
	case RankNonEmpty:
		return sorter.NonEmpty(def.Key)
	case RankPrefer:
		return sorter.Prefer(def.Key, def.Values...)
	default:
		return sorter.Latest(def.Key)
	}
}
