package export

import (
	"context"
	"encoding/csv"
	"io"
	"slices"

	"github.com/kbukum/gobexport/entity"
	"github.com/kbukum/gobexport/errors"
	"github.com/kbukum/gobexport/filter"
	"github.com/kbukum/gobexport/format"
	"github.com/kbukum/gobexport/pipeline"
)

// DefaultDelimiter separates CSV fields.
const DefaultDelimiter = ';'

// CSVSink writes a header followed by one delimited record per row.
type CSVSink struct {
	// Delimiter separates fields; zero means DefaultDelimiter.
	Delimiter rune

	noHeader bool
}

func (s *CSVSink) delimiter() rune {
	if s.Delimiter == 0 {
		return DefaultDelimiter
	}
	return s.Delimiter
}

// Write implements Sink.
func (s *CSVSink) Write(ctx context.Context, rows pipeline.Iterator[*entity.Entity], out io.Writer, spec *format.Spec, f filter.Filter) (int, error) {
	w := csv.NewWriter(out)
	w.Comma = s.delimiter()

	if !s.noHeader {
		if err := w.Write(spec.Fieldnames()); err != nil {
			return 0, errors.StorageError("output", err)
		}
	}

	n := 0
	err := each(ctx, rows, f, func(e *entity.Entity) error {
		values, err := spec.Row(e)
		if err != nil {
			return err
		}
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = entity.Text(v)
		}
		if err := w.Write(record); err != nil {
			return errors.StorageError("output", err)
		}
		n++
		return nil
	})
	w.Flush()
	if err != nil {
		return n, err
	}
	if err := w.Error(); err != nil {
		return n, errors.StorageError("output", err)
	}
	return n, nil
}

// Appending implements AppendSink. An empty existing output gets a header;
// otherwise its header must equal the fieldnames of spec.
func (s *CSVSink) Appending(r io.Reader, spec *format.Spec) (Sink, error) {
	cr := csv.NewReader(r)
	cr.Comma = s.delimiter()
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return s, nil
	}
	if err != nil {
		return nil, errors.StorageError("output", err)
	}
	if !slices.Equal(header, spec.Fieldnames()) {
		return nil, errors.ConfigurationError("append: existing header %v does not match %v", header, spec.Fieldnames())
	}
	return &CSVSink{Delimiter: s.Delimiter, noHeader: true}, nil
}
