package events

import (
	"context"
	"time"

	"github.com/wolfman30/hospital-booking-platform/pkg/logging"
)

// Pruneable is a store whose old entries can be dropped.
type Pruneable interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Pruner periodically forgets notification ids older than Retention. Providers
// stop retrying long before that, so a forgotten id cannot be replayed.
type Pruner struct {
	Store     Pruneable
	Retention time.Duration
	Interval  time.Duration
	Logger    *logging.Logger

	now func() time.Time
}

// Run prunes once immediately and then every Interval until ctx is done.
func (p *Pruner) Run(ctx context.Context) {
	if p == nil || p.Store == nil {
		return
	}
	interval := p.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	p.pruneOnce(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pruneOnce(ctx)
		}
	}
}

func (p *Pruner) pruneOnce(ctx context.Context) {
	now := time.Now
	if p.now != nil {
		now = p.now
	}
	retention := p.Retention
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.Default()
	}
	removed, err := p.Store.PruneBefore(ctx, now().Add(-retention))
	if err != nil {
		logger.Warn("processed events prune failed", "error", err)
		return
	}
	if removed > 0 {
		logger.Info("pruned processed events", "removed", removed)
	}
}
