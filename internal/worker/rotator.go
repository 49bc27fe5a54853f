package worker

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lgmys/shardy/internal/objectstore"
	"github.com/rs/zerolog"
)

// RotatorConfig bounds the shard lifecycle timers (§4.4).
type RotatorConfig struct {
	ShardName          string
	Dir                string // local scratch directory for shard files
	CoordinatorURL     string
	RotationInterval   time.Duration // full rotate: checkpoint, upload, register, retire, recreate
	CheckpointInterval time.Duration // re-checkpoint + re-upload only, no rotation
	RegisterMaxElapsed time.Duration
}

// DefaultRotatorConfig matches the values recommended in §4.4.
func DefaultRotatorConfig(shardName, dir, coordinatorURL string) RotatorConfig {
	return RotatorConfig{
		ShardName:          shardName,
		Dir:                dir,
		CoordinatorURL:     coordinatorURL,
		RotationInterval:   60 * time.Second,
		CheckpointInterval: 20 * time.Second,
		RegisterMaxElapsed: 30 * time.Second,
	}
}

// Rotator owns the worker's single ActiveShard and drives it through its
// lifecycle on two independent timers: a full rotation every
// RotationInterval, and a faster checkpoint-and-reupload-in-place on
// CheckpointInterval that never changes which shard is active (§10,
// "periodic re-checkpoint without rotation").
type Rotator struct {
	cfg    RotatorConfig
	store  objectstore.Store
	client *http.Client
	log    zerolog.Logger

	mu     sync.Mutex
	active *ActiveShard
}

// NewRotator creates the worker's first ActiveShard and returns a Rotator
// ready to run.
func NewRotator(cfg RotatorConfig, store objectstore.Store, log zerolog.Logger) (*Rotator, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("worker: create shard dir %s: %w", cfg.Dir, err)
	}

	shard, err := newActiveShard(cfg.ShardName, shardFilePath(cfg.Dir, cfg.ShardName))
	if err != nil {
		return nil, err
	}

	return &Rotator{
		cfg:    cfg,
		store:  store,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
		active: shard,
	}, nil
}

func shardFilePath(dir, name string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%d.db", name, time.Now().UnixNano()))
}

// Active returns the shard currently accepting writes. The pointer is
// guarded by a lock so rotation can swap it from a different goroutine
// than the one serving Log/SearchRequest commands (§5, "The worker's
// ActiveShard pointer is guarded by one lock").
func (r *Rotator) Active() *ActiveShard {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *Rotator) setActive(shard *ActiveShard) {
	r.mu.Lock()
	r.active = shard
	r.mu.Unlock()
}

// Run drives the rotation and checkpoint timers until ctx is canceled.
// The initial shard is registered in the catalog immediately (§4.4,
// Registering); its file reaches the object store only on the first
// checkpoint or rotation tick, and searches against it return no rows
// until then.
func (r *Rotator) Run(ctx context.Context) {
	if err := r.register(ctx, r.Active()); err != nil {
		r.log.Warn().Err(err).Msg("initial shard registration failed")
	}

	rotate := time.NewTicker(r.cfg.RotationInterval)
	defer rotate.Stop()
	checkpoint := time.NewTicker(r.cfg.CheckpointInterval)
	defer checkpoint.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-checkpoint.C:
			if err := r.reuploadInPlace(ctx); err != nil {
				r.log.Warn().Err(err).Msg("periodic checkpoint/reupload failed")
			}
		case <-rotate.C:
			if err := r.rotate(ctx); err != nil {
				r.log.Error().Err(err).Msg("shard rotation failed")
			}
		}
	}
}

// reuploadInPlace checkpoints and re-uploads the active shard without
// retiring it (§10), so a crash between rotations loses at most
// CheckpointInterval of durability.
func (r *Rotator) reuploadInPlace(ctx context.Context) error {
	shard := r.Active()
	if err := shard.Checkpoint(ctx); err != nil {
		return err
	}
	shard.SetState(Uploading)
	if err := r.store.Put(ctx, shard.Metadata().StorageKey, shard.Path()); err != nil {
		return fmt.Errorf("worker: periodic upload: %w", err)
	}
	shard.SetState(Ingesting)
	return nil
}

// rotate checkpoints, uploads, and registers the active shard, retires
// it, and replaces it with a fresh one (§4.4).
func (r *Rotator) rotate(ctx context.Context) error {
	retiring := r.Active()

	if err := retiring.Checkpoint(ctx); err != nil {
		return err
	}

	retiring.SetState(Uploading)
	if err := r.store.Put(ctx, retiring.Metadata().StorageKey, retiring.Path()); err != nil {
		return fmt.Errorf("worker: rotation upload: %w", err)
	}

	if err := r.register(ctx, retiring); err != nil {
		r.log.Warn().Err(err).Msg("rotation registration failed after retries")
	}

	retiring.SetState(Retired)
	if err := retiring.Close(); err != nil {
		r.log.Warn().Err(err).Msg("failed to close retired shard")
	}
	_ = os.Remove(retiring.Path())

	fresh, err := newActiveShard(r.cfg.ShardName, shardFilePath(r.cfg.Dir, r.cfg.ShardName))
	if err != nil {
		return fmt.Errorf("worker: create next shard: %w", err)
	}
	r.setActive(fresh)

	if err := r.register(ctx, fresh); err != nil {
		r.log.Warn().Err(err).Msg("new shard registration failed, will retry on next rotation")
	}

	return nil
}

func (r *Rotator) register(ctx context.Context, shard *ActiveShard) error {
	shard.SetState(Registering)
	if err := registerShard(ctx, r.client, r.cfg.CoordinatorURL, shard.Metadata(), r.cfg.RegisterMaxElapsed); err != nil {
		return err
	}
	shard.SetState(Ingesting)
	return nil
}
