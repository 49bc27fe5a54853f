package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/lgmys/shardy/internal/catalog"
	"github.com/lgmys/shardy/internal/logger"
	"github.com/lgmys/shardy/internal/wire"
	"github.com/stretchr/testify/require"
)

func TestParseShardName(t *testing.T) {
	cases := map[string]string{
		"select * from logs where id = 1": "logs",
		"SELECT * FROM Logs":               "logs",
		"select 1":                         "",
		"select * from  metrics  where x":  "metrics",
	}
	for query, want := range cases {
		require.Equal(t, want, ParseShardName(query), "query=%q", query)
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cat, err := catalog.Open(t.TempDir() + "/master.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })
	return NewServer(cat, wire.DefaultMaxFrameBytes, logger.New("test"))
}

func TestScheduleQuery_NoCandidates_ReturnsEmpty(t *testing.T) {
	s := newTestServer(t)
	sched := NewScheduler(s, SchedulerConfig{
		Window:       time.Hour,
		Deadline:     100 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	}, logger.New("test"))

	rows, err := sched.ScheduleQuery(context.Background(), "select * from logs")
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestScheduleQuery_MergesResponsesWithinDeadline(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.Catalog.Upsert(ctx, wire.ShardMetadata{ID: "s1", Name: "logs", StorageKey: "k1", Timestamp: now}))
	require.NoError(t, s.Catalog.Upsert(ctx, wire.ShardMetadata{ID: "s2", Name: "logs", StorageKey: "k2", Timestamp: now}))

	sched := NewScheduler(s, SchedulerConfig{
		Window:       time.Hour,
		Deadline:     2 * time.Second,
		PollInterval: 10 * time.Millisecond,
	}, logger.New("test"))

	// Simulate a worker answering every SearchRequest it sees.
	go func() {
		for i := 0; i < 2; i++ {
			cmd, err := s.Queue.Dequeue(ctx)
			if err != nil {
				return
			}
			req := cmd.SearchRequest
			s.Pending.Put(wire.SearchResponseBody{
				ID:      req.ID,
				Payload: []map[string]string{{"shard": req.Shard.ID}},
			})
		}
	}()

	rows, err := sched.ScheduleQuery(ctx, "select * from logs")
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestScheduleQuery_DeadlineReturnsPartial(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.Catalog.Upsert(ctx, wire.ShardMetadata{ID: "s1", Name: "logs", StorageKey: "k1", Timestamp: now}))

	sched := NewScheduler(s, SchedulerConfig{
		Window:       time.Hour,
		Deadline:     50 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	}, logger.New("test"))

	start := time.Now()
	rows, err := sched.ScheduleQuery(ctx, "select * from logs")
	require.NoError(t, err)
	require.Empty(t, rows)
	require.Less(t, time.Since(start), time.Second)
}

func TestScheduleQuery_TenantPrefixAppliedToParsedName(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.Catalog.Upsert(ctx, wire.ShardMetadata{ID: "s1", Name: "acme.logs", StorageKey: "k1", Timestamp: now}))

	sched := NewScheduler(s, SchedulerConfig{
		Window:       time.Hour,
		Deadline:     2 * time.Second,
		PollInterval: 10 * time.Millisecond,
		TenantPrefix: "acme.",
	}, logger.New("test"))

	go func() {
		cmd, err := s.Queue.Dequeue(ctx)
		if err != nil {
			return
		}
		req := cmd.SearchRequest
		s.Pending.Put(wire.SearchResponseBody{ID: req.ID, Payload: []map[string]string{{"shard": req.Shard.ID}}})
	}()

	rows, err := sched.ScheduleQuery(ctx, "select * from logs")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestScheduleQuery_OutsideWindow_ReturnsEmpty(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, s.Catalog.Upsert(ctx, wire.ShardMetadata{
		ID: "old", Name: "logs", StorageKey: "k1", Timestamp: time.Now().Add(-120 * time.Minute),
	}))

	sched := NewScheduler(s, SchedulerConfig{
		Window:       60 * time.Minute,
		Deadline:     100 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	}, logger.New("test"))

	rows, err := sched.ScheduleQuery(ctx, "select * from logs")
	require.NoError(t, err)
	require.Empty(t, rows)
}
