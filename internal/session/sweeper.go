package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/voxhub/toolproxy/internal/store"
)

const sweepInterval = 1 * time.Minute

// StartSweeper runs a background goroutine that periodically removes expired
// session rows. Correctness does not depend on it; Touch already evicts
// expired records lazily.
func StartSweeper(ctx context.Context, repo store.Repository, ttl time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", sweepInterval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				deleted, err := repo.DeleteExpiredSessions(ctx, ttl)
				if err != nil {
					slog.Error("Session sweeper failed", "error", err)
					continue
				}
				if deleted > 0 {
					slog.Info("Session sweeper removed expired sessions", "count", deleted)
				}
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
