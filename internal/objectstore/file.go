package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileStore backs Store with a local directory, standing in for the
// "file" scheme estuary-flow's fetchResource handles alongside "gs" — the
// same opaque blob contract, with no network or credentials required.
// It is the default for local runs and the backbone of the test suite.
type FileStore struct {
	dir string
}

// NewFileStore returns a Store rooted at dir, which is created if absent.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("objectstore: create dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, filepath.Base(key))
}

// Put copies localPath into the store under key.
func (s *FileStore) Put(_ context.Context, key, localPath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("objectstore: open %s for upload: %w", localPath, err)
	}
	defer src.Close()

	dst, err := os.Create(s.path(key))
	if err != nil {
		return fmt.Errorf("objectstore: create %s: %w", key, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("objectstore: copy %s: %w", key, err)
	}
	return nil
}

// Get copies key into a fresh temp file and returns it with a release
// func that removes the temp file (§5, "Resource lifetimes").
func (s *FileStore) Get(_ context.Context, key string) (string, func() error, error) {
	src, err := os.Open(s.path(key))
	if err != nil {
		return "", nil, fmt.Errorf("objectstore: open %s: %w", key, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "shard-*.db")
	if err != nil {
		return "", nil, fmt.Errorf("objectstore: create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("objectstore: download %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("objectstore: close temp file: %w", err)
	}

	path := tmp.Name()
	release := func() error { return os.Remove(path) }
	return path, release, nil
}

// New builds a Store from kind ("file" or "gcs"); file uses dir, gcs uses
// bucket.
func New(kind, bucket, dir string) (Store, error) {
	switch kind {
	case "gcs":
		return NewGCSStore(bucket), nil
	case "file", "":
		return NewFileStore(dir)
	default:
		return nil, fmt.Errorf("objectstore: unknown kind %q", kind)
	}
}
