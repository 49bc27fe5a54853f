package worker

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lgmys/shardy/internal/objectstore"
	"github.com/stretchr/testify/require"
)

func TestExecuteSearch_RoundTrip(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "shard.db")
	shard, err := newActiveShard("logs", path)
	require.NoError(t, err)
	require.NoError(t, shard.Insert(ctx, "hello"))
	require.NoError(t, shard.Checkpoint(ctx))
	require.NoError(t, shard.Close())

	store, err := objectstore.NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "key1", path))

	rows, err := executeSearch(ctx, store, "key1", "select message from logs")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "hello", rows[0]["message"])
}

func TestExecuteSearch_MalformedQueryReturnsError(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "shard.db")
	shard, err := newActiveShard("logs", path)
	require.NoError(t, err)
	require.NoError(t, shard.Checkpoint(ctx))
	require.NoError(t, shard.Close())

	store, err := objectstore.NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "key1", path))

	_, err = executeSearch(ctx, store, "key1", "select * from nonexistent_table")
	require.Error(t, err)
}
