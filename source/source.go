package source

import (
	"context"
	stderrors "errors"

	"github.com/kbukum/gobexport/auth/oidc"
	"github.com/kbukum/gobexport/entity"
	"github.com/kbukum/gobexport/errors"
	"github.com/kbukum/gobexport/httpclient"
	"github.com/kbukum/gobexport/logger"
	"github.com/kbukum/gobexport/observability"
	"github.com/kbukum/gobexport/pipeline"
)

// Default endpoints of the GOB API, relative to the host.
const (
	DefaultGraphQLPath   = "/gob/graphql/"
	DefaultStreamingPath = "/gob/graphql/streaming/"
)

// Source produces entities from a remote query.
type Source interface {
	// Name identifies the logical query. Equal names mean equal output.
	Name() string
	// Open starts a new pull. The iterator must be closed by the caller.
	Open(ctx context.Context) pipeline.Iterator[*entity.Entity]
}

// RowFormatter rewrites an entity before it is yielded.
type RowFormatter func(*entity.Entity) (*entity.Entity, error)

// Options are shared by all source variants.
type Options struct {
	// Client performs the HTTP calls; its BaseURL is the API host.
	Client *httpclient.Client
	// Credentials secures every request when set.
	Credentials *oidc.Lifecycle
	// Formatter is applied to every flattened entity.
	Formatter RowFormatter
	// BatchSize is the page size for GraphQL sources. Zero streams all at once.
	BatchSize int
	// Endpoint overrides the default GraphQL or streaming path.
	Endpoint string
	// Name overrides the logical name.
	Name string
	// Logger receives page level logging.
	Logger *logger.Logger
	// Metrics counts pages and entities.
	Metrics *observability.ExportMetrics
}

func (o *Options) init(label string) error {
	if o.Client == nil {
		return errors.ConfigurationError("source %s: no HTTP client", label)
	}
	if o.Logger == nil {
		o.Logger = logger.NewNop()
	}
	o.Logger = o.Logger.WithComponent("source").WithFields(logger.Fields(logger.FieldSource, label))
	return nil
}

func (o *Options) auth() *httpclient.AuthConfig {
	if o.Credentials == nil {
		return nil
	}
	return httpclient.TokenAuth(o.Credentials)
}

// emit flattens e and applies the row formatter.
func (o *Options) emit(e *entity.Entity) (*entity.Entity, error) {
	e = entity.Flatten(e)
	if o.Formatter == nil {
		return e, nil
	}
	return o.Formatter(e)
}

// apiError classifies a failed call. Errors that already carry a code and
// context cancellation pass through unchanged.
func apiError(ctx context.Context, url string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	return errors.APIError(url, httpclient.StatusCode(err), err)
}

// object returns the decoded JSON object of a response. A body that is
// not a JSON object is a protocol error.
func object(ctx context.Context, url string, resp *httpclient.TypedResponse[*entity.Entity], err error) (*entity.Entity, error) {
	var decodeErr *httpclient.DecodeError
	switch {
	case stderrors.As(err, &decodeErr):
		return nil, errors.ProtocolError("response from %s is not a JSON object: %v", url, decodeErr.Err)
	case err != nil:
		return nil, apiError(ctx, url, err)
	case resp.Data == nil:
		return nil, errors.ProtocolError("response from %s is not a JSON object", url)
	}
	return resp.Data, nil
}

// buffered yields the entities of the current page before fetching the next.
type buffered struct {
	opts  *Options
	items []*entity.Entity
	pos   int
}

func (b *buffered) fill(items []*entity.Entity) {
	b.items, b.pos = items, 0
}

func (b *buffered) next() (*entity.Entity, bool, error) {
	for b.pos < len(b.items) {
		e := b.items[b.pos]
		b.items[b.pos] = nil
		b.pos++
		if e == nil {
			continue
		}
		out, err := b.opts.emit(e)
		if err != nil {
			return nil, false, err
		}
		return out, true, nil
	}
	return nil, false, nil
}

// relation reads a list of entities, accepting an empty scalar list.
func relation(v any) ([]*entity.Entity, bool) {
	switch t := v.(type) {
	case []*entity.Entity:
		return t, true
	case []any:
		return nil, len(t) == 0
	default:
		return nil, false
	}
}
