package source

import (
	"context"
	"fmt"

	"github.com/kbukum/gobexport/entity"
	"github.com/kbukum/gobexport/errors"
	"github.com/kbukum/gobexport/httpclient"
	"github.com/kbukum/gobexport/logger"
	"github.com/kbukum/gobexport/observability"
	"github.com/kbukum/gobexport/pipeline"
	"github.com/kbukum/gobexport/source/graphql"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultPageSize is used by paged GraphQL sources without a batch size.
const DefaultPageSize = 1000

// GraphQL pages through a GraphQL connection using first/after.
type GraphQL struct {
	query *graphql.Query
	path  string
	opts  Options
}

// NewGraphQL creates a paged source for query. The query must have a
// single root connection; it is rejected here when it cannot be anchored.
func NewGraphQL(query string, opts Options) (*GraphQL, error) {
	q, err := graphql.Parse(query)
	if err != nil {
		return nil, err
	}
	if q, err = q.EnsurePageInfo(); err != nil {
		return nil, err
	}
	if err := opts.init(q.RootField()); err != nil {
		return nil, err
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultPageSize
	}
	path := opts.Endpoint
	if path == "" {
		path = DefaultGraphQLPath
	}
	return &GraphQL{query: q, path: path, opts: opts}, nil
}

// Name implements Source.
func (s *GraphQL) Name() string {
	if s.opts.Name != "" {
		return s.opts.Name
	}
	return "graphql:" + s.query.String()
}

// Open implements Source.
func (s *GraphQL) Open(_ context.Context) pipeline.Iterator[*entity.Entity] {
	return &graphqlIter{src: s, buf: buffered{opts: &s.opts}}
}

type graphqlIter struct {
	src    *GraphQL
	cursor string
	page   int
	done   bool
	buf    buffered
}

func (it *graphqlIter) Next(ctx context.Context) (*entity.Entity, bool, error) {
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

func (it *graphqlIter) fetch(ctx context.Context) (err error) {
	s := it.src
	url := s.opts.Client.ResolveURL(s.path)
	it.page++

	ctx, span := observability.StartSpan(ctx, observability.SpanPage)
	span.SetAttributes(
		attribute.String(observability.AttrSource, s.query.RootField()),
		attribute.Int(observability.AttrPage, it.page),
	)
	defer func() { observability.EndSpan(span, err) }()

	q, err := s.query.WithPaging(s.opts.BatchSize, it.cursor)
	if err != nil {
		return err
	}
	data, err := postQuery(ctx, &s.opts, s.path, q)
	if err != nil {
		return err
	}

	conn, ok := data.(*entity.Entity)
	if !ok {
		return errors.ProtocolError("response from %s has no data.%s object", url, q.ResponseKey())
	}
	nodes, err := connectionNodes(conn, url)
	if err != nil {
		return err
	}

	hasNext, _ := conn.Lookup("pageInfo.hasNextPage").(bool)
	if hasNext {
		cursor, _ := conn.Lookup("pageInfo.endCursor").(string)
		if cursor == "" || cursor == it.cursor {
			return errors.ProtocolError("response from %s reports a next page without a new endCursor", url)
		}
		it.cursor = cursor
	} else {
		it.done = true
	}

	it.buf.fill(nodes)
	span.SetAttributes(attribute.Int(observability.AttrEntities, len(nodes)))
	s.opts.Metrics.RecordPage(ctx, s.query.RootField())
	s.opts.Metrics.RecordEntities(ctx, s.query.RootField(), len(nodes))
	s.opts.Logger.Debug("page fetched", logger.Fields(
		logger.FieldPage, it.page,
		logger.FieldEntities, len(nodes),
		"has_next_page", hasNext,
	))
	return nil
}

func (it *graphqlIter) Close() error {
	it.done = true
	it.buf.fill(nil)
	return nil
}

// postQuery posts q and returns data.<root> of the response. GraphQL
// errors in the response are reported as API errors.
func postQuery(ctx context.Context, opts *Options, path string, q *graphql.Query) (any, error) {
	url := opts.Client.ResolveURL(path)
	resp, err := httpclient.PostJSON[*entity.Entity](ctx, opts.Client, path,
		map[string]string{"query": q.String()},
		httpclient.WithRequestAuth(opts.auth()),
	)
	body, err := object(ctx, url, resp, err)
	if err != nil {
		return nil, err
	}
	if gqlErrs, ok := body.Get("errors"); ok && !entity.IsEmpty(gqlErrs) {
		return nil, errors.APIError(url, 0, fmt.Errorf("graphql: %s", entity.Text(gqlErrs)))
	}
	data, _ := body.Get("data")
	dataObj, _ := data.(*entity.Entity)
	v, _ := dataObj.Get(q.ResponseKey())
	return v, nil
}

// connectionNodes returns the nodes of a {edges: [{node: ...}]} object.
func connectionNodes(conn *entity.Entity, url string) ([]*entity.Entity, error) {
	raw, ok := conn.Get("edges")
	if !ok {
		return nil, errors.ProtocolError("response from %s has no edges", url)
	}
	edges, ok := relation(raw)
	if !ok {
		return nil, errors.ProtocolError("edges of %s is not a list of objects", url)
	}
	nodes := make([]*entity.Entity, 0, len(edges))
	for _, edge := range edges {
		node, ok := edge.Get("node")
		if !ok {
			return nil, errors.ProtocolError("edge without node in response from %s", url)
		}
		if n, ok := node.(*entity.Entity); ok && n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}
