package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"cloud.google.com/go/storage"
)

// GCSStore backs Store with a Google Cloud Storage bucket. The client is
// built lazily on first use, exactly as estuary-flow's BuildService does
// for its own object-store-backed catalog fetches, since constructing it
// eagerly would fail in environments without application-default
// credentials configured (e.g. unit tests against FileStore).
type GCSStore struct {
	bucket string

	mu     sync.Mutex
	client *storage.Client
}

// NewGCSStore returns a Store backed by the named bucket.
func NewGCSStore(bucket string) *GCSStore {
	return &GCSStore{bucket: bucket}
}

func (s *GCSStore) clientFor(ctx context.Context) (*storage.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		c, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("objectstore: building gcs client: %w", err)
		}
		s.client = c
	}
	return s.client, nil
}

// Put uploads the local file at localPath to the bucket under key.
func (s *GCSStore) Put(ctx context.Context, key, localPath string) error {
	client, err := s.clientFor(ctx)
	if err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("objectstore: open %s for upload: %w", localPath, err)
	}
	defer f.Close()

	w := client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("objectstore: upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("objectstore: finalize upload %s: %w", key, err)
	}
	return nil
}

// Get downloads key into a fresh temp file.
func (s *GCSStore) Get(ctx context.Context, key string) (string, func() error, error) {
	client, err := s.clientFor(ctx)
	if err != nil {
		return "", nil, err
	}

	r, err := client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("objectstore: open reader for %s: %w", key, err)
	}
	defer r.Close()

	tmp, err := os.CreateTemp("", "shard-*.db")
	if err != nil {
		return "", nil, fmt.Errorf("objectstore: create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, r); err != nil {
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
