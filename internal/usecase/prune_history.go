package usecase

import (
	"context"
	"log/slog"
	"time"

	"debridops/internal/domain/ports"
)

// PruneOperationHistory removes finished operations older than Retention
// from the history collection, on a daily sweep.
type PruneOperationHistory struct {
	History   ports.OperationRepository
	Logger    *slog.Logger
	Retention time.Duration
	Interval  time.Duration
}

func (p PruneOperationHistory) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p PruneOperationHistory) sweep(ctx context.Context) {
	retention := p.Retention
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	cutoff := time.Now().Add(-retention).UnixMilli()

	removed, err := p.History.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.logger().Warn("history prune failed", slog.String("error", err.Error()))
		return
	}
	if removed > 0 {
		p.logger().Info("history pruned", slog.Int64("removed", removed))
	}
}

func (p PruneOperationHistory) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
