package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/gobexport/errors"
	"github.com/kbukum/gobexport/storage"
)

func newStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	return s
}

func read(t *testing.T, s *Storage, path string) string {
	t.Helper()
	rc, err := s.Download(context.Background(), path)
	if err != nil {
		t.Fatalf("Download(%s): %v", path, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func write(t *testing.T, w io.WriteCloser, err error, data string) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(w, data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestUploadDownload(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	if err := s.Upload(ctx, "out/meetbouten.csv", strings.NewReader("a;b\n")); err != nil {
		t.Fatal(err)
	}
	if got := read(t, s, "out/meetbouten.csv"); got != "a;b\n" {
		t.Errorf("unexpected content %q", got)
	}
	if _, err := os.Stat(filepath.Join(s.BasePath(), "out", "meetbouten.csv")); err != nil {
		t.Errorf("expected file under base path: %v", err)
	}
}

func TestCreateAppend(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	w, err := s.Create(ctx, "f.txt")
	write(t, w, err, "one\n")
	w, err = s.Append(ctx, "f.txt")
	write(t, w, err, "two\n")
	if got := read(t, s, "f.txt"); got != "one\ntwo\n" {
		t.Errorf("expected appended content, got %q", got)
	}

	w, err = s.Create(ctx, "f.txt")
	write(t, w, err, "three\n")
	if got := read(t, s, "f.txt"); got != "three\n" {
		t.Errorf("expected truncated content, got %q", got)
	}
}

func TestRenameExistsDelete(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	w, err := s.Create(ctx, "tmp/x.partial")
	write(t, w, err, "data")
	if err := s.Rename(ctx, "tmp/x.partial", "done/x"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Exists(ctx, "tmp/x.partial"); ok {
		t.Error("expected source to be gone after rename")
	}
	if ok, _ := s.Exists(ctx, "done/x"); !ok {
		t.Error("expected renamed file to exist")
	}
	if err := s.Delete(ctx, "done/x"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "done/x"); err != nil {
		t.Errorf("deleting a missing file must succeed, got %v", err)
	}
}

func TestDownloadMissing(t *testing.T) {
	s := newStorage(t)
	_, err := s.Download(context.Background(), "missing")
	if !errors.IsCode(err, errors.ErrCodeStorage) {
		t.Errorf("expected storage error, got %v", err)
	}
	if !os.IsNotExist(unwrapAll(err)) {
		t.Errorf("expected not-exist cause, got %v", err)
	}
}

func unwrapAll(err error) error {
	for {
		next, ok := err.(interface{ Unwrap() error })
		if !ok || next.Unwrap() == nil {
			return err
		}
		err = next.Unwrap()
	}
}

func TestRejectsPathsOutsideRoot(t *testing.T) {
	s := newStorage(t)
	for _, p := range []string{"../escape", "a/../../escape", "/etc/passwd", "", "."} {
		if _, err := s.Create(context.Background(), p); !errors.IsCode(err, errors.ErrCodeStorage) {
			t.Errorf("%q: expected storage error, got %v", p, err)
		}
	}
}

func TestListAndDeletePrefix(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()
	for _, p := range []string{"buffer/a.ndjson", "buffer/b.ndjson", "out/c.csv"} {
		if err := s.Upload(ctx, p, strings.NewReader(p)); err != nil {
			t.Fatal(err)
		}
	}

	files, err := s.List(ctx, "buffer/")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || files[0].Path != "buffer/a.ndjson" || files[0].Size != int64(len("buffer/a.ndjson")) {
		t.Errorf("unexpected listing %+v", files)
	}

	n, err := storage.DeletePrefix(ctx, s, "buffer/")
	if err != nil || n != 2 {
		t.Fatalf("expected 2 deletions, got %d %v", n, err)
	}
	if files, _ := s.List(ctx, ""); len(files) != 1 || files[0].Path != "out/c.csv" {
		t.Errorf("expected only the output to remain, got %+v", files)
	}
}

func TestFactoryRegistration(t *testing.T) {
	dir := t.TempDir()
	s, err := storage.New(storage.Config{Provider: storage.ProviderLocal, BasePath: dir}, nil)
	if err != nil {
		t.Fatal(err)
	}
	u, err := s.URL(context.Background(), "x.csv")
	if err != nil || !strings.HasPrefix(u, "file://") || !strings.HasSuffix(u, "x.csv") {
		t.Errorf("unexpected url %q %v", u, err)
	}

	if _, err := storage.New(storage.Config{Provider: "s3"}, nil); !errors.IsCode(err, errors.ErrCodeConfiguration) {
		t.Errorf("expected configuration error for unknown provider, got %v", err)
	}
}
