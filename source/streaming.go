package source

import (
	"bufio"
	"context"
	"fmt"
	"net/http"

	"github.com/kbukum/gobexport/entity"
	"github.com/kbukum/gobexport/errors"
	"github.com/kbukum/gobexport/httpclient"
	"github.com/kbukum/gobexport/logger"
	"github.com/kbukum/gobexport/observability"
	"github.com/kbukum/gobexport/pipeline"
	"github.com/kbukum/gobexport/source/graphql"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// maxLineSize bounds a single streamed entity.
const maxLineSize = 64 << 20

// Streaming reads a GraphQL result as newline-delimited JSON. With a batch
// size it fetches cursor batches until one comes back empty; without one
// it submits the query unmodified and reads a single stream.
type Streaming struct {
	query *graphql.Query
	path  string
	opts  Options
}

// NewStreaming creates a streaming source for query.
func NewStreaming(query string, opts Options) (*Streaming, error) {
	q, err := graphql.Parse(query)
	if err != nil {
		return nil, err
	}
	if opts.BatchSize > 0 {
		if q, err = q.EnsureNodeField("cursor"); err != nil {
			return nil, err
		}
	}
	if err := opts.init(q.RootField()); err != nil {
		return nil, err
	}
	path := opts.Endpoint
	if path == "" {
		path = DefaultStreamingPath
	}
	return &Streaming{query: q, path: path, opts: opts}, nil
}

// Name implements Source.
func (s *Streaming) Name() string {
	if s.opts.Name != "" {
		return s.opts.Name
	}
	return "streaming:" + s.query.String()
}

// Open implements Source.
func (s *Streaming) Open(_ context.Context) pipeline.Iterator[*entity.Entity] {
	return &streamIter{src: s}
}

type streamIter struct {
	src     *Streaming
	stream  *httpclient.StreamResponse
	scanner *bufio.Scanner
	span    trace.Span
	cursor  string
	batch   int
	rows    int
	done    bool
}

func (it *streamIter) Next(ctx context.Context) (*entity.Entity, bool, error) {
	for !it.done {
		if it.stream == nil {
			if err := it.open(ctx); err != nil {
				it.done = true
				return nil, false, err
			}
		}
		e, ok, err := it.line(ctx)
		if err != nil {
			it.finish(ctx, err)
			it.done = true
			return nil, false, err
		}
		if ok {
			return e, true, nil
		}
		rows := it.rows
		it.finish(ctx, nil)
		if it.src.opts.BatchSize <= 0 || rows == 0 {
			it.done = true
		}
	}
	return nil, false, nil
}

// open posts the next batch and starts reading its body.
func (it *streamIter) open(ctx context.Context) error {
	s := it.src
	url := s.opts.Client.ResolveURL(s.path)
	it.batch++
	it.rows = 0

	q := s.query
	if s.opts.BatchSize > 0 {
		var err error
		if q, err = q.WithPaging(s.opts.BatchSize, it.cursor); err != nil {
			return err
		}
	}

	var spanCtx context.Context
	spanCtx, it.span = observability.StartSpan(ctx, observability.SpanBatch)
	it.span.SetAttributes(
		attribute.String(observability.AttrSource, s.query.RootField()),
		attribute.Int(observability.AttrPage, it.batch),
	)

	stream, err := s.opts.Client.DoStream(spanCtx, httpclient.Request{
		Method: http.MethodPost,
		Path:   s.path,
		Body:   map[string]string{"query": q.String()},
		Auth:   s.opts.auth(),
	})
	if err != nil {
		err = apiError(ctx, url, err)
		observability.EndSpan(it.span, err)
		return err
	}
	it.stream = stream
	it.scanner = bufio.NewScanner(stream.Body)
	it.scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	s.opts.Metrics.RecordPage(ctx, s.query.RootField())
	return nil
}

// line returns the next entity of the open stream, false at its end.
func (it *streamIter) line(ctx context.Context) (*entity.Entity, bool, error) {
	s := it.src
	for it.scanner.Scan() {
		raw := it.scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		row, err := entity.Decode(raw)
		if err != nil {
			return nil, false, errors.ProtocolError("streamed line %d of %s is not a JSON object: %v", it.rows+1, s.query.RootField(), err)
		}
		if gqlErrs, ok := row.Get("errors"); ok && !entity.IsEmpty(gqlErrs) {
			return nil, false, errors.APIError(s.opts.Client.ResolveURL(s.path), 0, fmt.Errorf("graphql: %s", entity.Text(gqlErrs)))
		}
		if node, ok := row.Get("node"); ok {
			if n, ok := node.(*entity.Entity); ok && n != nil {
				row = n
			}
		}
		it.rows++
		if s.opts.BatchSize > 0 {
			cursor, _ := row.Get("cursor")
			c, _ := cursor.(string)
			if c == "" {
				return nil, false, errors.ProtocolError("streamed row of %s has no cursor", s.query.RootField())
			}
			it.cursor = c
		}
		out, err := s.opts.emit(row)
		if err != nil {
			return nil, false, err
		}
		return out, true, nil
	}
	if err := it.scanner.Err(); err != nil {
		return nil, false, apiError(ctx, s.opts.Client.ResolveURL(s.path), err)
	}
	return nil, false, nil
}

// finish closes the current batch stream.
func (it *streamIter) finish(ctx context.Context, err error) {
	if it.stream == nil {
		return
	}
	_ = it.stream.Close()
	it.stream, it.scanner = nil, nil
	it.span.SetAttributes(attribute.Int(observability.AttrEntities, it.rows))
	observability.EndSpan(it.span, err)
	s := it.src
	s.opts.Metrics.RecordEntities(ctx, s.query.RootField(), it.rows)
	s.opts.Logger.Debug("stream batch read", logger.Fields(
		logger.FieldPage, it.batch,
		logger.FieldEntities, it.rows,
	))
}

func (it *streamIter) Close() error {
	it.done = true
	if it.stream != nil {
		err := it.stream.Close()
		it.stream, it.scanner = nil, nil
		observability.EndSpan(it.span, nil)
		return err
	}
	return nil
}
