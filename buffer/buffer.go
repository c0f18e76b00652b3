// Package buffer memoizes entity sources within one export run.
//
// Several products are often derived from the same query. Wrapping the
// source in a Cache records its entities to a scratch file on the first
// complete traversal and replays them from that file afterwards, so the
// remote API is queried once per run. Entries are keyed by the SHA-256 of
// the source name and must be cleared before and after every run.
package buffer

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"path"

	"github.com/google/uuid"
	"github.com/kbukum/gobexport/entity"
	"github.com/kbukum/gobexport/errors"
	"github.com/kbukum/gobexport/logger"
	"github.com/kbukum/gobexport/pipeline"
	"github.com/kbukum/gobexport/source"
	"github.com/kbukum/gobexport/storage"
)

// DefaultDir is the storage prefix holding buffer entries.
const DefaultDir = "buffer"

const maxLineSize = 64 << 20

// Cache records and replays sources in a storage backend.
type Cache struct {
	store storage.Storage
	dir   string
	log   *logger.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithDir sets the storage prefix of the entries.
func WithDir(dir string) Option {
	return func(c *Cache) { c.dir = dir }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// New creates a cache storing its entries in store.
func New(store storage.Storage, opts ...Option) *Cache {
	c := &Cache{store: store, dir: DefaultDir, log: logger.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithComponent("buffer")
	return c
}

// Key returns the entry key of a source name.
func Key(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) entryPath(name string) string {
	return path.Join(c.dir, Key(name)+".ndjson")
}

// Clear removes all entries, including unfinished recordings.
func (c *Cache) Clear(ctx context.Context) error {
	n, err := storage.DeletePrefix(ctx, c.store, c.dir+"/")
	if err != nil {
		return err
	}
	if n > 0 {
		c.log.Debug("buffer cleared", logger.Fields("files", n))
	}
	return nil
}

// Wrap returns a source that records src on its first complete traversal
// and replays the recording afterwards.
func (c *Cache) Wrap(src source.Source) source.Source {
	return &buffered{cache: c, src: src}
}

type buffered struct {
	cache *Cache
	src   source.Source
}

func (b *buffered) Name() string { return b.src.Name() }

func (b *buffered) Open(ctx context.Context) pipeline.Iterator[*entity.Entity] {
	c := b.cache
	entry := c.entryPath(b.src.Name())
	log := c.log.WithFields(logger.Fields(logger.FieldSource, b.src.Name()))

	ok, err := c.store.Exists(ctx, entry)
	if err != nil {
		return pipeline.Failed[*entity.Entity](err)
	}
	if ok {
		rc, err := c.store.Download(ctx, entry)
		if err != nil {
			return pipeline.Failed[*entity.Entity](err)
		}
		log.Debug("replaying buffered source")
		return newReplay(rc, entry)
	}

	scratch := path.Join(c.dir, Key(b.src.Name())+"."+uuid.NewString()+".partial")
	w, err := c.store.Create(ctx, scratch)
	if err != nil {
		return pipeline.Failed[*entity.Entity](err)
	}
	return &recorder{
		store:   c.store,
		source:  b.src.Open(ctx),
		w:       w,
		bw:      bufio.NewWriter(w),
		scratch: scratch,
		entry:   entry,
		log:     log,
	}
}

// recorder tees a live source into a scratch file and commits it when the
// source is exhausted.
type recorder struct {
	store   storage.Storage
	source  pipeline.Iterator[*entity.Entity]
	w       io.WriteCloser
	bw      *bufio.Writer
	scratch string
	entry   string
	rows    int
	done    bool
	log     *logger.Logger
}

func (r *recorder) Next(ctx context.Context) (*entity.Entity, bool, error) {
	if r.done {
		return nil, false, nil
	}
	e, ok, err := r.source.Next(ctx)
	if err != nil {
		r.abort(ctx)
		return nil, false, err
	}
	if !ok {
		if err := r.commit(ctx); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	line, err := json.Marshal(e)
	if err == nil {
		_, err = r.bw.Write(append(line, '\n'))
	}
	if err != nil {
		r.abort(ctx)
		return nil, false, errors.StorageError(r.scratch, err)
	}
	r.rows++
	return e, true, nil
}

func (r *recorder) commit(ctx context.Context) error {
	r.done = true
	if err := r.bw.Flush(); err != nil {
		r.discard(ctx)
		return errors.StorageError(r.scratch, err)
	}
	if err := r.w.Close(); err != nil {
		_ = r.store.Delete(ctx, r.scratch)
		return errors.StorageError(r.scratch, err)
	}
	if err := r.store.Rename(ctx, r.scratch, r.entry); err != nil {
		_ = r.store.Delete(ctx, r.scratch)
		return err
	}
	r.log.Debug("buffer committed", logger.Fields(logger.FieldEntities, r.rows))
	return nil
}

// abort drops the recording of an incomplete traversal.
func (r *recorder) abort(ctx context.Context) {
	if r.done {
		return
	}
	r.done = true
	r.discard(ctx)
	if r.rows > 0 {
		r.log.Debug("incomplete traversal not buffered", logger.Fields(logger.FieldEntities, r.rows))
	}
}

func (r *recorder) discard(ctx context.Context) {
	_ = r.w.Close()
	_ = r.store.Delete(context.WithoutCancel(ctx), r.scratch)
}

func (r *recorder) Close() error {
	r.abort(context.Background())
	return r.source.Close()
}

// replay reads entities from a committed entry.
type replay struct {
	rc      io.ReadCloser
	scanner *bufio.Scanner
	entry   string
	line    int
}

func newReplay(rc io.ReadCloser, entry string) *replay {
	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &replay{rc: rc, scanner: sc, entry: entry}
}

func (r *replay) Next(_ context.Context) (*entity.Entity, bool, error) {
	if r.scanner == nil {
		return nil, false, nil
	}
	if !r.scanner.Scan() {
		err := r.scanner.Err()
		r.scanner = nil
		if err != nil {
			return nil, false, errors.StorageError(r.entry, err)
		}
		return nil, false, nil
	}
	r.line++
	e, err := entity.Decode(r.scanner.Bytes())
	if err != nil {
		r.scanner = nil
		return nil, false, errors.StorageError(r.entry, err).WithDetail("line", r.line)
	}
	return e, true, nil
}

func (r *replay) Close() error {
	r.scanner = nil
	return r.rc.Close()
}
