package conversation

import (
	"context"
	"log/slog"
	"time"
)

const sweepInterval = time.Minute

// StartSweeper periodically drops prompts left unanswered for longer than ttl.
// It stops when ctx is cancelled.
func StartSweeper(ctx context.Context, t *Tracker, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	interval := sweepInterval
	if ttl < interval {
		interval = ttl
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Prompt sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				if dropped := t.Sweep(ttl); dropped > 0 {
					slog.Info("Prompt sweeper dropped stale prompts", "count", dropped)
				}
			case <-ctx.Done():
				slog.Info("Prompt sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
