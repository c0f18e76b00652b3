package export

import (
	"bufio"
	"context"
	"io"

	"github.com/kbukum/gobexport/entity"
	"github.com/kbukum/gobexport/errors"
	"github.com/kbukum/gobexport/filter"
	"github.com/kbukum/gobexport/format"
	"github.com/kbukum/gobexport/pipeline"
)

// NDJSONSink writes one JSON object per row, fields in format order.
type NDJSONSink struct{}

// Write implements Sink.
func (NDJSONSink) Write(ctx context.Context, rows pipeline.Iterator[*entity.Entity], out io.Writer, spec *format.Spec, f filter.Filter) (int, error) {
	w := bufio.NewWriter(out)
	n := 0
	err := each(ctx, rows, f, func(e *entity.Entity) error {
		row, err := spec.Map(e)
		if err != nil {
			return err
		}
		b, err := row.MarshalJSON()
		if err != nil {
			return errors.Internal(err)
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			return errors.StorageError("output", err)
		}
		n++
		return nil
	})
	if flushErr := w.Flush(); err == nil && flushErr != nil {
		err = errors.StorageError("output", flushErr)
	}
	return n, err
}

// Appending implements AppendSink. NDJSON has no header to check.
func (s NDJSONSink) Appending(io.Reader, *format.Spec) (Sink, error) {
	return s, nil
}
