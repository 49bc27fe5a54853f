package worker

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/lgmys/shardy/internal/objectstore"
	"github.com/lgmys/shardy/internal/wire"
	"github.com/rs/zerolog"
)

// LinkConfig bounds the worker's control-channel connection (§4.3).
type LinkConfig struct {
	CoordinatorAddr      string
	MaxFrameBytes        uint32
	ReconnectMaxInterval time.Duration
}

// Link owns the worker's outbound connection to the coordinator: it
// dials, dispatches inbound Log/SearchRequest commands, and reconnects
// with exponential backoff on failure (§4.3). Grounded on
// shardqueue.ShardExecutor's use of cenkalti/backoff/v4 for its own retry
// loop, adapted here for connection-level retry instead of per-job retry.
type Link struct {
	cfg   LinkConfig
	shard *Rotator
	store objectstore.Store
	log   zerolog.Logger
}

// NewLink builds a worker Link over the given Rotator (for Log inserts)
// and Store (for SearchRequest snapshot downloads).
func NewLink(cfg LinkConfig, shard *Rotator, store objectstore.Store, log zerolog.Logger) *Link {
	return &Link{cfg: cfg, shard: shard, store: store, log: log}
}

// Run dials the coordinator and serves its control channel until ctx is
// canceled, reconnecting with exponential backoff whenever the connection
// drops.
func (l *Link) Run(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.Multiplier = 2
	bo.MaxInterval = l.cfg.ReconnectMaxInterval
	bo.MaxElapsedTime = 0 // retry forever; this is a long-lived worker process

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := net.Dial("tcp", l.cfg.CoordinatorAddr)
		if err != nil {
			wait := bo.NextBackOff()
			l.log.Warn().Err(err).Dur("retry_in", wait).Msg("dial coordinator failed")
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return
			}
		}

		bo.Reset()
		l.log.Info().Str("addr", l.cfg.CoordinatorAddr).Msg("connected to coordinator")
		l.serve(ctx, conn)
	}
}

// serve reads envelopes from conn until it fails or ctx is canceled.
func (l *Link) serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		_ = conn.Close()
		close(done)
	}()

	for {
		env, err := wire.ReadEnvelope(conn, l.cfg.MaxFrameBytes)
		if err != nil {
			var bad *wire.BadFrameError
			if errors.As(err, &bad) {
				l.log.Warn().Err(err).Msg("dropping malformed frame from coordinator")
				continue
			}
			if !errors.Is(err, io.EOF) {
				l.log.Info().Err(err).Msg("coordinator connection read failed")
			}
			return
		}

		l.handle(ctx, conn, env)
	}
}

func (l *Link) handle(ctx context.Context, conn net.Conn, env wire.Envelope) {
	switch {
	case env.Log != nil:
		if err := l.shard.Active().Insert(ctx, env.Log.Log); err != nil {
			l.log.Error().Err(err).Msg("insert log failed")
		}
	case env.SearchRequest != nil:
		req := env.SearchRequest
		rows, err := executeSearch(ctx, l.store, req.Shard.StorageKey, req.Query)
		if err != nil {
			l.log.Warn().Err(err).Str("request_id", req.ID).Msg("search execution failed, returning empty rows")
			rows = nil
		}
		if err := wire.WriteEnvelope(conn, wire.NewSearchResponse(req.ID, rows)); err != nil {
			l.log.Info().Err(err).Msg("write search response failed")
		}
	default:
		l.log.Warn().Msg("coordinator sent a variant not accepted on this direction")
	}
}
