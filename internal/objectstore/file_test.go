package objectstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStore_PutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "bucket"))
	require.NoError(t, err)

	src := filepath.Join(dir, "shard.db")
	require.NoError(t, os.WriteFile(src, []byte("shard bytes"), 0o644))

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "logs.2026-07-29_10_00.shard-1.db", src))

	local, release, err := store.Get(ctx, "logs.2026-07-29_10_00.shard-1.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = release() })

	got, err := os.ReadFile(local)
	require.NoError(t, err)
	require.Equal(t, "shard bytes", string(got))

	require.NoError(t, release())
	_, err = os.Stat(local)
	require.True(t, os.IsNotExist(err))
}

func TestFileStore_GetMissingKey(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = store.Get(context.Background(), "does-not-exist.db")
	require.Error(t, err)
}
