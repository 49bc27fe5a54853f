// Package objectstore treats the durability tier as an opaque blob
// key/value service (§4.7): Put uploads a local shard file, Get downloads
// one into a freshly created temp file owned by the caller.
package objectstore

import "context"

// Store is the interface the shard lifecycle and the query path use to
// move shard snapshot files to and from durable storage.
type Store interface {
	// Put uploads the file at localPath under key.
	Put(ctx context.Context, key, localPath string) error

	// Get downloads key into a fresh local file and returns its path and a
	// release func that removes the file. The caller must call release
	// exactly once, regardless of how it used the file (§5, "Resource
	// lifetimes").
	Get(ctx context.Context, key string) (localPath string, release func() error, err error)
}
