package source

import (
	"context"

	"github.com/kbukum/gobexport/entity"
	"github.com/kbukum/gobexport/errors"
	"github.com/kbukum/gobexport/httpclient"
	"github.com/kbukum/gobexport/logger"
	"github.com/kbukum/gobexport/observability"
	"github.com/kbukum/gobexport/pipeline"
	"go.opentelemetry.io/otel/attribute"
)

// REST pages through a HAL style REST collection.
type REST struct {
	path string
	opts Options
}

// NewREST creates a source for the collection at path.
func NewREST(path string, opts Options) (*REST, error) {
	if path == "" {
		return nil, errors.ConfigurationError("rest source: empty path")
	}
	if err := opts.init(path); err != nil {
		return nil, err
	}
	return &REST{path: path, opts: opts}, nil
}

// Name implements Source.
func (s *REST) Name() string {
	if s.opts.Name != "" {
		return s.opts.Name
	}
	return "rest:" + s.path
}

// Open implements Source.
func (s *REST) Open(_ context.Context) pipeline.Iterator[*entity.Entity] {
	return &restIter{src: s, next: s.path, buf: buffered{opts: &s.opts}}
}

type restIter struct {
	src  *REST
	next string
	page int
	done bool
	buf  buffered
}

func (it *restIter) Next(ctx context.Context) (*entity.Entity, bool, error) {
	for {
		e, ok, err := it.buf.next()
		if err != nil || ok {
			return e, ok, err
		}
		if it.done {
			return nil, false, nil
		}
		if err := it.fetch(ctx); err != nil {
			it.done = true
			return nil, false, err
		}
	}
}

func (it *restIter) fetch(ctx context.Context) (err error) {
	opts := &it.src.opts
	url := it.src.opts.Client.ResolveURL(it.next)
	it.page++

	ctx, span := observability.StartSpan(ctx, observability.SpanPage)
	span.SetAttributes(
		attribute.String(observability.AttrURL, url),
		attribute.Int(observability.AttrPage, it.page),
	)
	defer func() { observability.EndSpan(span, err) }()

	resp, err := httpclient.GetJSON[*entity.Entity](ctx, opts.Client, it.next, httpclient.WithRequestAuth(opts.auth()))
	page, err := object(ctx, url, resp, err)
	if err != nil {
		return err
	}

	raw, ok := page.Get("results")
	if !ok {
		return errors.ProtocolError("response from %s has no results", url)
	}
	results, ok := relation(raw)
	if !ok {
		return errors.ProtocolError("results of %s is not a list of objects", url)
	}

	rawLinks, _ := page.Get("_links")
	links, ok := rawLinks.(*entity.Entity)
	if !ok || links == nil {
		return errors.ProtocolError("response from %s has no _links object", url)
	}
	switch next := links.Lookup("next.href").(type) {
	case nil:
		it.done = true
	case string:
		if next == "" {
			it.done = true
		}
		it.next = next
	default:
		return errors.ProtocolError("_links.next.href of %s is not a string", url)
	}

	it.buf.fill(results)
	span.SetAttributes(attribute.Int(observability.AttrEntities, len(results)))
	opts.Metrics.RecordPage(ctx, it.src.Name())
	opts.Metrics.RecordEntities(ctx, it.src.Name(), len(results))
	opts.Logger.Debug("page fetched", logger.Fields(
		logger.FieldURL, url,
		logger.FieldPage, it.page,
		logger.FieldEntities, len(results),
	))
	return nil
}

func (it *restIter) Close() error {
	it.done = true
	it.buf.fill(nil)
	return nil
}
