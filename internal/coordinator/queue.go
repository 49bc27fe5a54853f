package coordinator

import (
	"context"

	"github.com/lgmys/shardy/internal/wire"
)

// CommandQueue is the process-wide, ordered queue of commands awaiting
// delivery to some connected worker (§3, §4.2). It is backed by a Go
// channel rather than a mutex-guarded slice: §9 notes that a channel is
// the more idiomatic substitute for the original's mutex-guarded Vec, and
// it gives FIFO order for free, resolving the LIFO-vs-FIFO REDESIGN FLAG.
//
// Any number of writer goroutines may call Dequeue concurrently; exactly
// one of them receives a given command (§4.2, "no stickiness").
type CommandQueue struct {
	ch chan wire.Envelope
}

// NewCommandQueue returns a CommandQueue with the given buffer capacity.
// A command enqueued while no worker is connected stays buffered
// indefinitely up to that capacity (§5, "may be bounded in a hardened
// implementation").
func NewCommandQueue(capacity int) *CommandQueue {
	if capacity <= 0 {
		capacity = 4096
	}
	return &CommandQueue{ch: make(chan wire.Envelope, capacity)}
}

// Enqueue appends a command to the tail of the queue. It blocks only if
// the queue is at capacity.
func (q *CommandQueue) Enqueue(cmd wire.Envelope) {
	q.ch <- cmd
}

// Dequeue removes and returns the head command, or returns ctx.Err() if
// ctx is canceled first.
func (q *CommandQueue) Dequeue(ctx context.Context) (wire.Envelope, error) {
	select {
	case cmd := <-q.ch:
		return cmd, nil
	case <-ctx.Done():
		return wire.Envelope{}, ctx.Err()
	}
}
