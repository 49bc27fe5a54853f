// Package worker implements the shard lifecycle, rotation timers, and
// control-channel link that turn an idle process into a logs-ingesting,
// query-answering member of the cluster (§4.3, §4.4).
package worker

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lgmys/shardy/internal/wire"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var shardDDL string

// State is one stage of the shard lifecycle (§4.4).
type State int

const (
	Creating State = iota
	Ingesting
	Checkpointing
	Uploading
	Registering
	Retired
)

func (s State) String() string {
	switch s {
	case Creating:
		return "creating"
	case Ingesting:
		return "ingesting"
	case Checkpointing:
		return "checkpointing"
	case Uploading:
		return "uploading"
	case Registering:
		return "registering"
	case Retired:
		return "retired"
	default:
		return "unknown"
	}
}

// ActiveShard is the worker's current, ingest-accepting shard: a local
// SQLite file plus the metadata it will eventually register under.
// Exactly one ActiveShard accepts writes at a time (§4.4, invariant
// "single writer").
type ActiveShard struct {
	mu sync.Mutex

	meta  wire.ShardMetadata
	path  string
	db    *sql.DB
	state State
}

// storageKey builds the "<name>.<YYYY-MM-DD_HH_MM>.<id>.db" naming scheme
// (§4.4).
func storageKey(name string, created time.Time, id string) string {
	return fmt.Sprintf("%s.%s.%s.db", name, created.UTC().Format("2006-01-02_15_04"), id)
}

// newActiveShard creates a fresh local SQLite file at path and installs
// the logs DDL, entering the Creating state then immediately Ingesting.
func newActiveShard(name, path string) (*ActiveShard, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	db, err := openShardDB(path)
	if err != nil {
		return nil, fmt.Errorf("worker: create shard db %s: %w", path, err)
	}
	if err := applyDDL(db, shardDDL); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &ActiveShard{
		meta: wire.ShardMetadata{
			ID:         id,
			Name:       name,
			StorageKey: storageKey(name, now, id),
			Timestamp:  now,
		},
		path:  path,
		db:    db,
		state: Ingesting,
	}, nil
}

func openShardDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func applyDDL(db *sql.DB, ddl string) error {
	for _, stmt := range strings.Split(ddl, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("worker: apply shard schema: %w", err)
		}
	}
	return nil
}

// Insert appends a log record to the active shard (§4.3, Log command
// handling). It is the only write path and is safe for concurrent callers.
func (a *ActiveShard) Insert(ctx context.Context, message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, err := a.db.ExecContext(ctx, `INSERT INTO logs (id, timestamp, message) VALUES (?, ?, ?)`, uuid.NewString(), time.Now().UTC(), message)
	if err != nil {
		return fmt.Errorf("worker: insert log: %w", err)
	}
	return nil
}

// checkpointSettle is the pause after wal_checkpoint(TRUNCATE) and before
// upload, letting the filesystem settle (§4.4, "Checkpointing").
const checkpointSettle = 100 * time.Millisecond

// Checkpoint truncates the WAL into the main database file so the file on
// disk is self-contained before upload, then pauses briefly to let the
// filesystem settle (§4.4).
func (a *ActiveShard) Checkpoint(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state = Checkpointing
	if _, err := a.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("worker: checkpoint: %w", err)
	}

	select {
	case <-time.After(checkpointSettle):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Metadata returns a copy of the shard's registry record.
func (a *ActiveShard) Metadata() wire.ShardMetadata {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.meta
}

// Path returns the local file path backing this shard.
func (a *ActiveShard) Path() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.path
}

// SetState records the shard's current lifecycle stage.
func (a *ActiveShard) SetState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// State returns the shard's current lifecycle stage.
func (a *ActiveShard) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Close releases the underlying database handle.
func (a *ActiveShard) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.db.Close()
}
