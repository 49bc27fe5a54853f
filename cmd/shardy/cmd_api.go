package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lgmys/shardy/internal/catalog"
	"github.com/lgmys/shardy/internal/config"
	"github.com/lgmys/shardy/internal/coordinator"
	"github.com/lgmys/shardy/internal/logger"
	"github.com/spf13/cobra"
)

// newAPICmd runs the coordinator: TCP control channel plus HTTP ingress
// (§2, §4.2, §6).
func newAPICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "api",
		Short: "run the coordinator (control channel + HTTP ingress)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAPI(cmd.Context())
		},
	}
}

func runAPI(ctx context.Context) error {
	log := logger.New("shardy-api")

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	cat, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open shard catalog")
	}
	defer cat.Close()

	server := coordinator.NewServer(cat, cfg.MaxFrameBytes, log)
	scheduler := coordinator.NewScheduler(server, coordinator.SchedulerConfig{
		Window:       cfg.QueryWindow,
		Deadline:     cfg.QueryDeadline,
		PollInterval: cfg.QueryPollInterval,
		TenantPrefix: cfg.TenantPrefix,
	}, log)
	handler := coordinator.NewHTTPHandler(server, scheduler, cfg.TenantPrefix, log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := server.ListenAndServe(ctx, cfg.TCPAddr); err != nil {
			log.Error().Err(err).Msg("control channel listener failed")
			cancel()
		}
	}()

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP ingress starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down coordinator…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server forced to shutdown")
	}
	cancel()
	return nil
}
