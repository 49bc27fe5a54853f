// Package catalog implements the coordinator-local shard registry: an
// append-only, dedup-on-id index of shards known to the coordinator (§4.6).
package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/lgmys/shardy/internal/wire"
)

//go:embed schema.sql
var ddl string

// Catalog is the coordinator's shard registry, backed by a local SQLite
// file. All methods are safe for concurrent use; concurrency is delegated
// to the embedded database's own connection pool (§5).
type Catalog struct {
	db *sql.DB
}

// Open opens (or creates) the catalog database at path and ensures its
// schema exists.
func Open(path string) (*Catalog, error) {
	db, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Catalog{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	for _, stmt := range strings.Split(ddl, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("catalog: apply schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (c *Catalog) Close() error { return c.db.Close() }

// Upsert inserts metadata if its id is not already present; repeated
// registrations of the same id are a no-op, making worker re-registration
// idempotent (§4.4, §4.6, invariant "Catalog dedup").
func (c *Catalog) Upsert(ctx context.Context, m wire.ShardMetadata) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO shards (id, name, storage_key, timestamp)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		m.ID, m.Name, m.StorageKey, m.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("catalog: upsert %s: %w", m.ID, err)
	}
	return nil
}

// SelectByNameAndWindow returns all shards with the given name whose
// timestamp is strictly after since. Order is unspecified, per §4.6.
func (c *Catalog) SelectByNameAndWindow(ctx context.Context, name string, since time.Time) ([]wire.ShardMetadata, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, name, storage_key, timestamp
		FROM shards
		WHERE name = ? AND timestamp > ?`,
		name, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("catalog: select by name/window: %w", err)
	}
	defer rows.Close()

	var out []wire.ShardMetadata
	for rows.Next() {
		var m wire.ShardMetadata
		if err := rows.Scan(&m.ID, &m.Name, &m.StorageKey, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("catalog: scan shard row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
