package coordinator

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lgmys/shardy/internal/wire"
	"github.com/rs/zerolog"
)

// SchedulerConfig bounds the scatter-gather query scheduler (§4.5).
type SchedulerConfig struct {
	Window       time.Duration // how far back to look for candidate shards
	Deadline     time.Duration // wall-clock bound on ScheduleQuery
	PollInterval time.Duration // PendingResponses poll cadence

	// TenantPrefix is prepended to the parsed shard name before the
	// catalog lookup, mirroring the prefix applied to a shard's name at
	// registration time (§9, multitenancy decision).
	TenantPrefix string
}

// DefaultSchedulerConfig matches the values recommended in §4.5.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Window:       60 * time.Minute,
		Deadline:     5 * time.Second,
		PollInterval: 50 * time.Millisecond,
	}
}

// Scheduler implements schedule_query: it resolves candidate shards from
// the catalog, dispatches one SearchRequest per shard, and merges
// responses under a deadline.
type Scheduler struct {
	catalog interface {
		SelectByNameAndWindow(ctx context.Context, name string, since time.Time) ([]wire.ShardMetadata, error)
	}
	queue *CommandQueue
	pend  *PendingResponses
	cfg   SchedulerConfig
	log   zerolog.Logger
}

// NewScheduler builds a Scheduler over the given Server's shared state.
func NewScheduler(s *Server, cfg SchedulerConfig, log zerolog.Logger) *Scheduler {
	return &Scheduler{catalog: s.Catalog, queue: s.Queue, pend: s.Pending, cfg: cfg, log: log}
}

// ParseShardName extracts the lightweight "from <name> where" selector
// described in §4.5: everything between "from " and the next "where",
// trimmed and lowercased. If there is no "where" clause, everything after
// "from " is taken.
func ParseShardName(query string) string {
	lower := strings.ToLower(query)
	fromIdx := strings.Index(lower, "from ")
	if fromIdx == -1 {
		return ""
	}
	rest := lower[fromIdx+len("from "):]
	if whereIdx := strings.Index(rest, "where"); whereIdx != -1 {
		rest = rest[:whereIdx]
	}
	return strings.TrimSpace(rest)
}

// ScheduleQuery fans a query out to every shard matching the parsed name
// within the configured window, merges whatever responses arrive within
// the deadline, and returns the accumulated rows. It never returns an
// error for missing or slow workers: that is represented by a shorter
// result set (§7, "Propagation policy").
func (s *Scheduler) ScheduleQuery(ctx context.Context, query string) ([]map[string]string, error) {
	name := s.cfg.TenantPrefix + ParseShardName(query)
	since := time.Now().Add(-s.cfg.Window)

	candidates, err := s.catalog.SelectByNameAndWindow(ctx, name, since)
	if err != nil {
		return nil, err
	}

	pending := make(map[string]struct{}, len(candidates))
	for _, shard := range candidates {
		id := uuid.NewString()
		pending[id] = struct{}{}
		s.queue.Enqueue(wire.NewSearchRequest(id, query, shard))
	}

	var rows []map[string]string
	deadline := time.Now().Add(s.cfg.Deadline)
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for len(pending) > 0 {
		if !time.Now().Before(deadline) {
			// elapsed >= deadline: see §9, avoid the original's "== 5s" miss.
			s.log.Info().Int("missing", len(pending)).Str("name", name).Msg("schedule_query deadline exceeded, returning partial results")
			break
		}

		select {
		case <-ctx.Done():
			return rows, ctx.Err()
		case <-ticker.C:
			for id := range pending {
				resp, ok := s.pend.Take(id)
				if !ok {
					continue
				}
				rows = append(rows, resp.Payload...)
				delete(pending, id)
			}
		}
	}

	if len(candidates) == 0 {
		s.log.Info().Str("name", name).Msg("schedule_query found no candidate shards in window")
	}

	return rows, nil
}
