package worker

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lgmys/shardy/internal/objectstore"
	_ "modernc.org/sqlite"
)

// executeSearch downloads the shard snapshot named by key from store,
// opens it read-only, and runs query against it (§4.3). Every row is
// stringified column-by-column, matching the untyped wire shape in
// wire.SearchResponseBody.
func executeSearch(ctx context.Context, store objectstore.Store, key, query string) ([]map[string]string, error) {
	localPath, release, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("worker: download shard %s: %w", key, err)
	}
	defer release()

	db, err := openSnapshot(localPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return runQuery(ctx, db, query)
}

// openSnapshot opens a downloaded shard file read-only with the pragmas
// recommended for a query-only connection: query_only forbids accidental
// writes, a 64MB page cache and 256MB mmap keep a cold-cache scan cheap
// (§4.3).
func openSnapshot(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=query_only(ON)&_pragma=cache_size(-64000)&_pragma=mmap_size(268435456)&mode=ro",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("worker: open snapshot %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("worker: ping snapshot %s: %w", path, err)
	}
	return db, nil
}

// runQuery executes query against db and collects every row as a
// column-name to stringified-value map. A malformed query is reported as
// an error to the caller, which always still emits a SearchResponse
// (§4.3, "always emits a SearchResponse, empty rows on failure").
func runQuery(ctx context.Context, db *sql.DB, query string) ([]map[string]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("worker: execute query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("worker: read columns: %w", err)
	}

	var out []map[string]string
	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("worker: scan row: %w", err)
		}

		row := make(map[string]string, len(cols))
		for i, col := range cols {
			row[col] = stringify(raw[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
