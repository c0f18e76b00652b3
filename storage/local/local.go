// Package local implements storage.Storage on the local filesystem.
package local

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kbukum/gobexport/errors"
	"github.com/kbukum/gobexport/logger"
	"github.com/kbukum/gobexport/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderLocal, func(cfg storage.Config, _ *logger.Logger) (storage.Storage, error) {
		return NewStorage(cfg.BasePath)
	})
}

// Storage implements storage.Storage using the local filesystem.
type Storage struct {
	basePath string
}

// NewStorage creates a new local filesystem storage rooted at basePath.
func NewStorage(basePath string) (*Storage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, errors.StorageError(basePath, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, errors.StorageError(abs, err)
	}
	return &Storage{basePath: abs}, nil
}

// BasePath returns the absolute root directory.
func (s *Storage) BasePath() string { return s.basePath }

// resolve maps a relative path into the base directory. Absolute paths
// and paths that would leave it are rejected.
func (s *Storage) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == "." || clean == ".." || filepath.IsAbs(clean) ||
		strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.StorageError(path, fmt.Errorf("invalid relative path"))
	}
	return filepath.Join(s.basePath, clean), nil
}

// Upload writes data from reader to a local file.
func (s *Storage) Upload(ctx context.Context, path string, reader io.Reader) error {
	w, err := s.Create(ctx, path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, reader); err != nil {
		_ = w.Close()
		return errors.StorageError(path, err)
	}
	if err := w.Close(); err != nil {
		return errors.StorageError(path, err)
	}
	return nil
}

// Download returns a reader for the local file at the given path.
func (s *Storage) Download(_ context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, errors.StorageError(path, err)
	}
	return f, nil
}

// Create opens a local file for writing, truncating it.
func (s *Storage) Create(_ context.Context, path string) (io.WriteCloser, error) {
	return s.open(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
}

// Append opens a local file for writing at its end.
func (s *Storage) Append(_ context.Context, path string) (io.WriteCloser, error) {
	return s.open(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND)
}

func (s *Storage) open(path string, flag int) (io.WriteCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return nil, errors.StorageError(path, err)
	}
	f, err := os.OpenFile(full, flag, 0o640)
	if err != nil {
		return nil, errors.StorageError(path, err)
	}
	return f, nil
}

// Rename moves a local file, replacing the target.
func (s *Storage) Rename(_ context.Context, from, to string) error {
	src, err := s.resolve(from)
	if err != nil {
		return err
	}
	dst, err := s.resolve(to)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return errors.StorageError(to, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return errors.StorageError(from, err)
	}
	return nil
}

// Delete removes a local file. Returns nil if the file does not exist.
func (s *Storage) Delete(_ context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return errors.StorageError(path, err)
	}
	return nil
}

// Exists checks whether a local file exists.
func (s *Storage) Exists(_ context.Context, path string) (bool, error) {
	full, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.StorageError(path, err)
	}
	return true, nil
}

// URL returns a file:// URL for the local file.
func (s *Storage) URL(_ context.Context, path string) (string, error) {
	full, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	u := &url.URL{Scheme: "file", Path: full}
	return u.String(), nil
}

// List returns metadata for all files whose relative path starts with prefix.
func (s *Storage) List(_ context.Context, prefix string) ([]storage.FileInfo, error) {
	var files []storage.FileInfo

	err := filepath.Walk(s.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			files = append(files, storage.FileInfo{
				Path:         rel,
				Size:         info.Size(),
				LastModified: info.ModTime(),
			})
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return []storage.FileInfo{}, nil
		}
		return nil, errors.StorageError(prefix, err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// compile-time check
var _ storage.Storage = (*Storage)(nil)
