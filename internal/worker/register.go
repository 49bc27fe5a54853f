package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/lgmys/shardy/internal/wire"
)

// registerShard POSTs meta to the coordinator's /_shard endpoint,
// retrying with exponential backoff on failure (§4.4, "retried on failure
// without blocking ingestion"). It is grounded on the teacher's HTTP
// client calls in client/internal/api, and on shardqueue.ShardExecutor's
// use of cenkalti/backoff/v4 for retry scheduling.
func registerShard(ctx context.Context, client *http.Client, coordinatorURL string, meta wire.ShardMetadata, maxElapsed time.Duration) error {
	body, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("worker: marshal shard metadata: %w", err)
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, coordinatorURL+"/_shard", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("register shard: coordinator returned status %d", resp.StatusCode)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.Multiplier = 2
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = maxElapsed

	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}
