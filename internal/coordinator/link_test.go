package coordinator

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/lgmys/shardy/internal/logger"
	"github.com/lgmys/shardy/internal/wire"
	"github.com/stretchr/testify/require"
)

func TestLink_DeliversQueuedCommandAndCorrelatesResponse(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	queue := NewCommandQueue(4)
	pend := NewPendingResponses()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	link := NewLink(serverConn, queue, pend, 0, logger.New("test"))
	go link.Run(ctx)

	queue.Enqueue(wire.NewSearchRequest("req-1", "select * from logs", wire.ShardMetadata{ID: "s1", Name: "logs"}))

	env, err := wire.ReadEnvelope(clientConn, 0)
	require.NoError(t, err)
	require.NotNil(t, env.SearchRequest)
	require.Equal(t, "req-1", env.SearchRequest.ID)

	require.NoError(t, wire.WriteEnvelope(clientConn, wire.NewSearchResponse("req-1", []map[string]string{{"a": "1"}})))

	require.Eventually(t, func() bool {
		_, ok := pend.Take("req-1")
		if ok {
			return true
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestLink_BadFrameDoesNotDropConnection(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	queue := NewCommandQueue(4)
	pend := NewPendingResponses()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	link := NewLink(serverConn, queue, pend, 0, logger.New("test"))
	go link.Run(ctx)

	require.NoError(t, wire.WriteFrame(clientConn, []byte("not json")))
	require.NoError(t, wire.WriteEnvelope(clientConn, wire.NewSearchResponse("req-2", nil)))

	require.Eventually(t, func() bool {
		_, ok := pend.Take("req-2")
		return ok
	}, time.Second, 5*time.Millisecond)
}
