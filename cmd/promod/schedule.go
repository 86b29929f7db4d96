package main

import (
	"context"
	"log/slog"
	"time"
)

// schedule calls run on every tick and on every change signal, restarting
// the interval after a change. Once changes is closed only the ticker fires.
// Returns when ctx is done.
func schedule(ctx context.Context, interval time.Duration, changes <-chan struct{}, run func(), logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			logger.Info("competitors file changed, running now")
			run()
			ticker.Reset(interval)
		}
	}
}
