package export

import (
	"context"
	"io"

	"github.com/kbukum/gobexport/entity"
	"github.com/kbukum/gobexport/filter"
	"github.com/kbukum/gobexport/format"
	"github.com/kbukum/gobexport/pipeline"
)

// Sink writes formatted rows to an output.
type Sink interface {
	// Write consumes rows until exhausted, resolves every entity passing f
	// through spec and writes it to out. It returns the number of rows
	// written. A nil f passes everything.
	Write(ctx context.Context, rows pipeline.Iterator[*entity.Entity], out io.Writer, spec *format.Spec, f filter.Filter) (int, error)
}

// AppendSink is a Sink that can continue an existing output.
type AppendSink interface {
	Sink
	// Appending checks the existing output read from r against spec and
	// returns the sink that continues it.
	Appending(r io.Reader, spec *format.Spec) (Sink, error)
}

// each pulls rows and calls fn for every entity passing f.
func each(ctx context.Context, rows pipeline.Iterator[*entity.Entity], f filter.Filter, fn func(*entity.Entity) error) error {
	for {
		e, ok, err := rows.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if f != nil && !f.Filter(e) {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}
