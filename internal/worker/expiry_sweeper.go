package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// LockReleaser releases every lock taken before cutoff.
// *service.SeatLockService implements it.
type LockReleaser interface {
	ReleaseExpiredLocks(ctx context.Context, cutoff time.Time) (int64, error)
}

// ExpirySweeper periodically returns abandoned seat locks to AVAILABLE.
// A failed sweep is logged and simply retried on the next tick; missed
// ticks are not made up.
type ExpirySweeper struct {
	releaser LockReleaser
	logger   *zap.Logger
	interval time.Duration
	lease    time.Duration
	now      func() time.Time
}

// NewExpirySweeper builds a sweeper that runs every interval and releases
// locks older than lease.
func NewExpirySweeper(releaser LockReleaser, logger *zap.Logger, interval, lease time.Duration) *ExpirySweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpirySweeper{
		releaser: releaser,
		logger:   logger.Named("expiry-sweeper"),
		interval: interval,
		lease:    lease,
		now:      time.Now,
	}
}

// Start blocks until ctx is cancelled.
func (w *ExpirySweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("expiry sweeper started", zap.Duration("interval", w.interval), zap.Duration("lease", w.lease))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				w.logger.Error("failed to release expired locks", zap.Error(err))
			}
		}
	}
}

// Sweep runs one pass with cutoff = now - lease.
func (w *ExpirySweeper) Sweep(ctx context.Context) (int64, error) {
	sctx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()

	cutoff := w.now().UTC().Add(-w.lease)
	n, err := w.releaser.ReleaseExpiredLocks(sctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		w.logger.Info("released expired seat locks", zap.Int64("count", n), zap.Time("cutoff", cutoff))
	}
	return n, nil
}
