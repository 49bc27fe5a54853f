package coordinator

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/lgmys/shardy/internal/wire"
	"github.com/rs/zerolog"
)

// Link owns one accepted worker TCP connection and runs its reader and
// writer tasks (§4.2). No per-worker identity is tracked: the coordinator
// treats all workers as an anonymous pool.
type Link struct {
	conn   net.Conn
	queue  *CommandQueue
	pend   *PendingResponses
	maxLen uint32
	log    zerolog.Logger
}

// NewLink wraps an accepted connection.
func NewLink(conn net.Conn, queue *CommandQueue, pend *PendingResponses, maxFrameBytes uint32, log zerolog.Logger) *Link {
	return &Link{
		conn:   conn,
		queue:  queue,
		pend:   pend,
		maxLen: maxFrameBytes,
		log:    log.With().Str("remote", conn.RemoteAddr().String()).Logger(),
	}
}

// Run drives the reader and writer tasks until either fails, then closes
// the connection. It blocks until both tasks have exited.
func (l *Link) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer l.conn.Close()

	done := make(chan struct{}, 2)
	go func() { defer func() { done <- struct{}{} }(); l.runReader(ctx, cancel) }()
	go func() { defer func() { done <- struct{}{} }(); l.runWriter(ctx, cancel) }()
	<-done
	<-done
}

// runReader reads framed envelopes indefinitely. Malformed frames are
// logged and dropped; the connection stays open (§4.1, §7). A SearchResponse
// is recorded into PendingResponses; no other inbound variant is accepted
// on this direction (§4.2).
func (l *Link) runReader(ctx context.Context, disconnect context.CancelFunc) {
	for {
		if ctx.Err() != nil {
			return
		}

		env, err := wire.ReadEnvelope(l.conn, l.maxLen)
		if err != nil {
			var bad *wire.BadFrameError
			if errors.As(err, &bad) {
				l.log.Warn().Err(err).Msg("dropping malformed frame from worker")
				continue
			}
			if !errors.Is(err, io.EOF) {
				l.log.Info().Err(err).Msg("worker connection read failed")
			}
			disconnect()
			return
		}

		switch {
		case env.SearchResponse != nil:
			l.pend.Put(*env.SearchResponse)
		default:
			l.log.Warn().Msg("worker sent a variant not accepted on this direction")
		}
	}
}

// runWriter polls CommandQueue and writes whatever it dequeues. It never
// performs I/O while holding the queue's internal state (the queue is
// channel-backed, so there is no lock to hold in the first place). On
// write error it signals disconnect, same as runReader, so a writer-only
// failure still tears down the connection and unblocks the reader (§4.2,
// "On write error, the writer terminates and signals disconnect").
func (l *Link) runWriter(ctx context.Context, disconnect context.CancelFunc) {
	for {
		cmd, err := l.queue.Dequeue(ctx)
		if err != nil {
			return
		}
		if err := wire.WriteEnvelope(l.conn, cmd); err != nil {
			l.log.Info().Err(err).Msg("worker connection write failed")
			// Nothing else can drain this command; it's lost, matching the
			// at-most-once delivery contract once a worker has picked it up.
			disconnect()
			return
		}
	}
}
