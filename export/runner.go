package export

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/gobexport/buffer"
	"github.com/kbukum/gobexport/entity"
	"github.com/kbukum/gobexport/errors"
	"github.com/kbukum/gobexport/logger"
	"github.com/kbukum/gobexport/observability"
	"github.com/kbukum/gobexport/pipeline"
	"github.com/kbukum/gobexport/storage"
)

// Result reports one exported product.
type Result struct {
	Product string
	Output  string
	// Entities is the number of entities read from the source.
	Entities int
	// Rows is the number of rows written.
	Rows     int
	Duration time.Duration
}

// Runner exports products into an output storage.
type Runner struct {
	out     storage.Storage
	buffer  *buffer.Cache
	log     *logger.Logger
	metrics *observability.ExportMetrics
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithBuffer clears the cache before and after every run.
func WithBuffer(c *buffer.Cache) RunnerOption {
	return func(r *Runner) { r.buffer = c }
}

// WithLogger sets the runner logger.
func WithLogger(l *logger.Logger) RunnerOption {
	return func(r *Runner) { r.log = l }
}

// WithMetrics records product metrics.
func WithMetrics(m *observability.ExportMetrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// NewRunner creates a runner writing to out.
func NewRunner(out storage.Storage, opts ...RunnerOption) *Runner {
	r := &Runner{out: out, log: logger.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.WithComponent("export")
	return r
}

// Run exports the products one after the other and stops at the first
// failure. Results of the products finished before it are returned with
// the error.
func (r *Runner) Run(ctx context.Context, products ...Product) ([]Result, error) {
	for i := range products {
		if err := products[i].Validate(); err != nil {
			return nil, err
		}
	}

	runID := uuid.NewString()
	log := r.log.WithFields(logger.Fields(logger.FieldRunID, runID))

	if err := r.clearBuffer(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	log.Info("export started", logger.Fields("products", len(products)))

	results := make([]Result, 0, len(products))
	var runErr error
	for i := range products {
		res, err := r.runProduct(ctx, runID, &products[i], log)
		if err != nil {
			runErr = err
			break
		}
		results = append(results, res)
	}

	if err := r.clearBuffer(ctx); err != nil && runErr == nil {
		runErr = err
	}

	if runErr != nil {
		log.WithError(runErr).Error("export failed", logger.Fields("exported", len(results)))
		return results, runErr
	}
	log.Info("export finished", logger.DurationFields("export", time.Since(start)))
	return results, nil
}

func (r *Runner) clearBuffer(ctx context.Context) error {
	if r.buffer == nil {
		return nil
	}
	return r.buffer.Clear(ctx)
}

func (r *Runner) runProduct(ctx context.Context, runID string, p *Product, log *logger.Logger) (res Result, err error) {
	log = log.WithFields(logger.Fields(logger.FieldProduct, p.Name, logger.FieldSource, p.Source.Name()))
	ctx, span := observability.StartSpan(ctx, observability.SpanProduct, trace.WithAttributes(
		attribute.String(observability.AttrProduct, p.Name),
		attribute.String(observability.AttrSource, p.Source.Name()),
	))
	start := time.Now()
	res = Result{Product: p.Name, Output: p.Output}

	defer func() {
		res.Duration = time.Since(start)
		span.SetAttributes(attribute.Int(observability.AttrRows, res.Rows))
		observability.EndSpan(span, err)
		code := ""
		if err != nil {
			code = "UNKNOWN"
			if appErr, ok := errors.AsAppError(err); ok {
				code = string(appErr.Code)
			}
		}
		r.metrics.RecordProduct(ctx, p.Name, res.Rows, res.Duration, code)
	}()

	log.Info("product started")
	if p.Filter != nil {
		p.Filter.Reset()
	}

	out, err := r.open(ctx, runID, p)
	if err != nil {
		return res, err
	}

	src := pipeline.Tap(pipeline.FromFunc(p.Source.Open), func(context.Context, *entity.Entity) error {
		res.Entities++
		return nil
	})
	rows := &onceIterator{Iterator: p.rows(src).Iter(ctx)}
	n, err := out.sink.Write(ctx, rows, out.w, p.Spec, p.Filter)
	res.Rows = n
	if err == nil && !rows.exhausted {
		err = errors.New(errors.ErrCodeInternal, "sink returned before exhausting its rows")
	}
	if closeErr := rows.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err = out.finish(ctx, err); err != nil {
		return res, err
	}

	log.Info("product exported", logger.Fields(
		logger.FieldEntities, res.Entities,
		logger.FieldRows, n,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return res, nil
}

// output is an open product output.
type output struct {
	store   storage.Storage
	sink    Sink
	w       io.WriteCloser
	scratch string
	target  string
}

// open prepares the writer of p. Replaced outputs are written to a scratch
// file that is renamed over the target on success; appended outputs are
// written in place.
func (r *Runner) open(ctx context.Context, runID string, p *Product) (*output, error) {
	o := &output{store: r.out, sink: p.Sink, target: p.Output}

	if p.Append {
		exists, err := r.out.Exists(ctx, p.Output)
		if err != nil {
			return nil, err
		}
		if exists {
			if o.sink, err = r.appending(ctx, p); err != nil {
				return nil, err
			}
			if o.w, err = r.out.Append(ctx, p.Output); err != nil {
				return nil, err
			}
			return o, nil
		}
	}

	o.scratch = p.Output + "." + runID + ".partial"
	w, err := r.out.Create(ctx, o.scratch)
	if err != nil {
		return nil, err
	}
	o.w = w
	return o, nil
}

func (r *Runner) appending(ctx context.Context, p *Product) (Sink, error) {
	rc, err := r.out.Download(ctx, p.Output)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return p.Sink.(AppendSink).Appending(rc, p.Spec)
}

// finish closes the writer and commits or discards the scratch file.
func (o *output) finish(ctx context.Context, err error) error {
	if closeErr := o.w.Close(); err == nil && closeErr != nil {
		err = errors.StorageError(o.target, closeErr)
	}
	if o.scratch == "" {
		return err
	}
	if err != nil {
		_ = o.store.Delete(ctx, o.scratch)
		return err
	}
	return o.store.Rename(ctx, o.scratch, o.target)
}

// onceIterator records whether its consumer pulled it to the end.
type onceIterator struct {
	pipeline.Iterator[*entity.Entity]
	exhausted bool
}

func (it *onceIterator) Next(ctx context.Context) (*entity.Entity, bool, error) {
	e, ok, err := it.Iterator.Next(ctx)
	if err == nil && !ok {
		it.exhausted = true
	}
	return e, ok, err
}
