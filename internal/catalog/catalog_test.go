package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lgmys/shardy/internal/wire"
	"github.com/stretchr/testify/require"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "master.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestUpsert_DedupsByID(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	m := wire.ShardMetadata{
		ID:         "shard-1",
		Name:       "logs",
		StorageKey: "logs.2026-07-29_10_00.shard-1.db",
		Timestamp:  time.Now().UTC(),
	}

	for i := 0; i < 10; i++ {
		require.NoError(t, c.Upsert(ctx, m))
	}

	rows, err := c.SelectByNameAndWindow(ctx, "logs", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, m.ID, rows[0].ID)
}

func TestSelectByNameAndWindow_FiltersNameAndWindow(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, c.Upsert(ctx, wire.ShardMetadata{ID: "a", Name: "logs", StorageKey: "k1", Timestamp: now}))
	require.NoError(t, c.Upsert(ctx, wire.ShardMetadata{ID: "b", Name: "metrics", StorageKey: "k2", Timestamp: now}))
	require.NoError(t, c.Upsert(ctx, wire.ShardMetadata{ID: "c", Name: "logs", StorageKey: "k3", Timestamp: now.Add(-120 * time.Minute)}))

	rows, err := c.SelectByNameAndWindow(ctx, "logs", now.Add(-60*time.Minute))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "a", rows[0].ID)
}
