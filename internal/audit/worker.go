package audit

import (
	"context"
	"log/slog"
	"time"
)

// ReplayWorker periodically moves spilled entries back into the store. It is
// optional; operators can run the same Replay from custodyctl instead.
type ReplayWorker struct {
	svc      *Service
	interval time.Duration
	logger   *slog.Logger
}

func NewReplayWorker(svc *Service, interval time.Duration, logger *slog.Logger) *ReplayWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReplayWorker{svc: svc, interval: interval, logger: logger}
}

// Run blocks until ctx is done. Replay failures are logged and retried on the
// next tick.
func (w *ReplayWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.svc.Replay(ctx); err != nil {
				w.logger.WarnContext(ctx, "audit replay failed", "log_type", "audit", "error", err)
			}
		}
	}
}
