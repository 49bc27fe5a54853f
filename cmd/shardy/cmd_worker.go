package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/lgmys/shardy/internal/config"
	"github.com/lgmys/shardy/internal/logger"
	"github.com/lgmys/shardy/internal/objectstore"
	"github.com/lgmys/shardy/internal/worker"
	"github.com/spf13/cobra"
)

// newWorkerCmd runs a worker: it ingests logs into a rotating shard and
// answers search requests fanned out by the coordinator (§2, §4.3, §4.4).
func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "run a worker (shard ingestion + query execution)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context())
		},
	}
}

func runWorker(ctx context.Context) error {
	log := logger.New("shardy-worker")

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	store, err := objectstore.New(cfg.ObjectStoreKind, cfg.ObjectStoreBucket, cfg.ObjectStoreDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct object store")
	}

	rotatorCfg := worker.DefaultRotatorConfig(cfg.ShardName, cfg.ObjectStoreDir+"/active", cfg.CoordinatorURL)
	rotatorCfg.RotationInterval = cfg.RotationInterval
	rotatorCfg.CheckpointInterval = cfg.CheckpointInterval

	rotator, err := worker.NewRotator(rotatorCfg, store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create initial shard")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go rotator.Run(ctx)

	link := worker.NewLink(worker.LinkConfig{
		CoordinatorAddr:      cfg.TCPAddr,
		MaxFrameBytes:        cfg.MaxFrameBytes,
		ReconnectMaxInterval: cfg.ReconnectMaxInterval,
	}, rotator, store, log)
	go link.Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker…")
	cancel()
	return nil
}
