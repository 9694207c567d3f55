package history

import (
	"context"
	"time"
)

// DefaultPruneInterval is how often RunPruner sweeps.
const DefaultPruneInterval = time.Hour

// PruneLogger is the logger RunPruner reports through.
type PruneLogger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// RunPruner deletes entries older than retention once at start and then on
// every interval tick until ctx is cancelled. A non-positive retention
// disables pruning and returns immediately.
func (r *Recorder) RunPruner(ctx context.Context, retention, interval time.Duration, logger PruneLogger) error {
	if retention <= 0 {
		return nil
	}
	if interval <= 0 {
		interval = DefaultPruneInterval
	}

	sweep := func() {
		n, err := r.Prune(ctx, retention)
		switch {
		case err != nil && ctx.Err() == nil:
			logger.Warn("pruning command history failed", "error", err)
		case n > 0:
			logger.Info("pruned command history", "deleted", n, "retention", retention.String())
		}
	}

	sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sweep()
		}
	}
}
