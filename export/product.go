package export

import (
	"context"

	"github.com/kbukum/gobexport/entity"
	"github.com/kbukum/gobexport/errors"
	"github.com/kbukum/gobexport/filter"
	"github.com/kbukum/gobexport/format"
	"github.com/kbukum/gobexport/history"
	"github.com/kbukum/gobexport/pipeline"
	"github.com/kbukum/gobexport/sorter"
	"github.com/kbukum/gobexport/source"
	"github.com/kbukum/gobexport/validation"
)

// Product is one output file derived from one source.
type Product struct {
	// Name identifies the product in logs, metrics and the CLI.
	Name string
	// Source yields the entities of the product.
	Source source.Source
	// Spec maps every entity to a row.
	Spec *format.Spec
	// Filter drops entities before they are formatted. Optional.
	Filter filter.Filter
	// History expands every entity into one row per timeslot. Optional.
	History *history.Expander
	// Sorters reduce multi-valued relations to their best child. Optional.
	Sorters []sorter.Sorter
	// Sink encodes the rows.
	Sink Sink
	// Output is the file path relative to the output storage.
	Output string
	// Append continues an existing output instead of replacing it.
	Append bool
}

// Validate checks that the product can run.
func (p *Product) Validate() error {
	v := validation.New()
	v.Required("name", p.Name).
		Required("output", p.Output).
		Custom(p.Source != nil, "source", "is required").
		Custom(p.Spec != nil, "format", "is required").
		Custom(p.Sink != nil, "sink", "is required")
	if _, ok := p.Sink.(AppendSink); p.Sink != nil && p.Append && !ok {
		v.AddError("append", "is not supported by the sink")
	}
	if v.HasErrors() {
		return errors.ConfigurationError("product %q: %v", p.Name, v.Errors()).WithDetail("fields", v.Errors())
	}
	return nil
}

// rows extends the source entities of the product into its row pipeline:
// sorted, then expanded into timeslots. Filtering and formatting are left
// to the sink.
func (p *Product) rows(rows *pipeline.Pipeline[*entity.Entity]) *pipeline.Pipeline[*entity.Entity] {
	if len(p.Sorters) > 0 {
		rows = pipeline.Map(rows, func(_ context.Context, e *entity.Entity) (*entity.Entity, error) {
			return sorter.Select(e, p.Sorters...), nil
		})
	}
	if p.History != nil {
		rows = p.History.Pipeline(rows)
	}
	return rows
}
