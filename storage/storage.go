package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo contains metadata about a stored file.
type FileInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// Storage defines the file operations used by exports.
type Storage interface {
	// Upload writes data from reader to the given path, replacing any
	// existing file.
	Upload(ctx context.Context, path string, reader io.Reader) error

	// Download returns a reader for the file at the given path.
	// The caller is responsible for closing the returned ReadCloser.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Create opens the file at path for writing, truncating it.
	Create(ctx context.Context, path string) (io.WriteCloser, error)

	// Append opens the file at path for writing at its end, creating it
	// when missing.
	Append(ctx context.Context, path string) (io.WriteCloser, error)

	// Rename moves a file, replacing the target.
	Rename(ctx context.Context, from, to string) error

	// Delete removes the file at the given path.
	// Returns nil if the file does not exist.
	Delete(ctx context.Context, path string) error

	// Exists checks whether a file exists at the given path.
	Exists(ctx context.Context, path string) (bool, error)

	// URL returns a URL for the file at the given path.
	URL(ctx context.Context, path string) (string, error)

	// List returns metadata for all files whose path starts with prefix.
	List(ctx context.Context, prefix string) ([]FileInfo, error)
}

// DeletePrefix removes every file whose path starts with prefix and
// returns the number of files removed.
func DeletePrefix(ctx context.Context, s Storage, prefix string) (int, error) {
	files, err := s.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	for i, f := range files {
		if err := s.Delete(ctx, f.Path); err != nil {
			return i, err
		}
	}
	return len(files), nil
}
