package session

import (
	"context"
	"log/slog"
	"time"
)

// Reaper periodically deletes expired session rows. Readers already treat
// logically expired rows as absent, so the reaper only ever removes rows no
// one considers valid; it needs no coordination with request handlers.
type Reaper struct {
	store        Store
	interval     time.Duration
	sweepTimeout time.Duration
	logger       *slog.Logger
}

// NewReaper constructs a Reaper sweeping at the given interval.
func NewReaper(store Store, interval time.Duration, logger *slog.Logger) *Reaper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reaper{
		store:        store,
		interval:     interval,
		sweepTimeout: interval,
		logger:       logger,
	}
}

// Run sweeps until ctx is cancelled. Cancellation interrupts the next sleep,
// never an in-flight sweep; a sweep already underway runs to completion
// before Run returns. A transient store error is logged and the loop moves
// on to the next interval.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("session reaper stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	// Detached from the run context so shutdown cannot abort a delete
	// mid-flight, but still bounded in case the store hangs.
	sweepCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.sweepTimeout)
	defer cancel()

	deleted, err := r.store.DeleteExpired(sweepCtx, time.Now())
	if err != nil {
		r.logger.Warn("session sweep failed", slog.Any("error", err))
		return
	}
	if deleted > 0 {
		r.logger.Info("session sweep", slog.Int64("deleted", deleted))
	}
}
