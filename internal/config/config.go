package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds configuration shared by the coordinator and worker modes.
// Environment variables are parsed from the SHARDY_ prefix, e.g.
// SHARDY_HTTP_ADDR, SHARDY_TCP_ADDR.
type Config struct {
	// HTTPAddr is the coordinator's HTTP ingress address.
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":3000"`

	// TCPAddr is the coordinator↔worker control-channel address. The
	// coordinator listens on it; workers dial it.
	TCPAddr string `envconfig:"TCP_ADDR" default:"127.0.0.1:6666"`

	// CoordinatorURL is the base URL a worker uses to reach the
	// coordinator's HTTP registration endpoint.
	CoordinatorURL string `envconfig:"COORDINATOR_URL" default:"http://127.0.0.1:3000"`

	// CatalogPath is the coordinator's local shard-catalog database file.
	CatalogPath string `envconfig:"CATALOG_PATH" default:"./master.db"`

	// TenantPrefix is prepended to every stream name at HTTP ingress and
	// enforced at search time. Empty disables multitenancy (default).
	TenantPrefix string `envconfig:"TENANT_PREFIX" default:""`

	// ObjectStoreKind selects the object store backend: "gcs" or "file".
	ObjectStoreKind string `envconfig:"OBJECT_STORE_KIND" default:"file"`

	// ObjectStoreBucket is the GCS bucket used by the "gcs" backend.
	ObjectStoreBucket string `envconfig:"OBJECT_STORE_BUCKET" default:"logs"`

	// ObjectStoreDir is the base directory used by the "file" backend.
	ObjectStoreDir string `envconfig:"OBJECT_STORE_DIR" default:"./object-store"`

	// ShardName is the logical stream name a worker's active shard is
	// created under.
	ShardName string `envconfig:"SHARD_NAME" default:"logs"`

	// RotationInterval is how often a worker retires its active shard and
	// creates a new one.
	RotationInterval time.Duration `envconfig:"ROTATION_INTERVAL" default:"60s"`

	// CheckpointInterval is how often a worker re-checkpoints and
	// re-uploads its still-active shard without rotating.
	CheckpointInterval time.Duration `envconfig:"CHECKPOINT_INTERVAL" default:"20s"`

	// QueryWindow bounds how far back the scheduler looks for candidate
	// shards by name.
	QueryWindow time.Duration `envconfig:"QUERY_WINDOW" default:"60m"`

	// QueryDeadline bounds how long ScheduleQuery waits for responses.
	QueryDeadline time.Duration `envconfig:"QUERY_DEADLINE" default:"5s"`

	// QueryPollInterval is the PendingResponses poll cadence.
	QueryPollInterval time.Duration `envconfig:"QUERY_POLL_INTERVAL" default:"50ms"`

	// MaxFrameBytes is the framing ceiling; larger declared payloads tear
	// down the connection.
	MaxFrameBytes uint32 `envconfig:"MAX_FRAME_BYTES" default:"16777216"`

	// ReconnectMaxInterval caps the worker's exponential reconnect backoff.
	ReconnectMaxInterval time.Duration `envconfig:"RECONNECT_MAX_INTERVAL" default:"30s"`
}

// New parses Config from the environment, prefixed with SHARDY_.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("SHARDY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	log.Info().
		Str("http_addr", cfg.HTTPAddr).
		Str("tcp_addr", cfg.TCPAddr).
		Str("object_store_kind", cfg.ObjectStoreKind).
		Str("object_store_bucket", cfg.ObjectStoreBucket).
		Dur("rotation_interval", cfg.RotationInterval).
		Dur("checkpoint_interval", cfg.CheckpointInterval).
		Msg("configuration loaded")

	return &cfg, nil
}

// NewForTesting returns a Config with the default cadences, ephemeral
// listen addresses, and a catalog and file object store under dir.
func NewForTesting(dir string) *Config {
	return &Config{
		HTTPAddr:             ":0",
		TCPAddr:              "127.0.0.1:0",
		CoordinatorURL:       "http://127.0.0.1:0",
		CatalogPath:          dir + "/master.db",
		ObjectStoreKind:      "file",
		ObjectStoreBucket:    "logs",
		ObjectStoreDir:       dir + "/object-store",
		ShardName:            "logs",
		RotationInterval:     time.Minute,
		CheckpointInterval:   20 * time.Second,
		QueryWindow:          60 * time.Minute,
		QueryDeadline:        5 * time.Second,
		QueryPollInterval:    50 * time.Millisecond,
		MaxFrameBytes:        16 << 20,
		ReconnectMaxInterval: 30 * time.Second,
	}
}
