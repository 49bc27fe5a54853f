package coordinator

import (
	"context"
	"fmt"
	"net"

	"github.com/lgmys/shardy/internal/catalog"
	"github.com/rs/zerolog"
)

// Server is the coordinator's control-channel listener: it owns the
// CommandQueue and PendingResponses shared by every accepted connection,
// and the shard catalog backing the query scheduler (§3, "Ownership").
type Server struct {
	Catalog *catalog.Catalog
	Queue   *CommandQueue
	Pending *PendingResponses

	MaxFrameBytes uint32

	log zerolog.Logger
}

// NewServer wires a Server from its dependencies.
func NewServer(cat *catalog.Catalog, maxFrameBytes uint32, log zerolog.Logger) *Server {
	return &Server{
		Catalog:       cat,
		Queue:         NewCommandQueue(0),
		Pending:       NewPendingResponses(),
		MaxFrameBytes: maxFrameBytes,
		log:           log,
	}
}

// ListenAndServe accepts worker connections on addr until ctx is canceled,
// spawning one Link per connection (§4.2).
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("coordinator: listen on %s: %w", addr, err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	s.log.Info().Str("addr", addr).Msg("coordinator control channel listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("coordinator: accept: %w", err)
		}

		link := NewLink(conn, s.Queue, s.Pending, s.MaxFrameBytes, s.log)
		go link.Run(ctx)
	}
}
