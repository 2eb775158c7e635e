package lifecycle

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RunReaper sweeps for purgeable tombstones until ctx is done. One sweep
// failure is logged and the loop keeps going; the grace-period contract
// only promises the drop happens after PurgeAfter, not at it.
func (o *Orchestrator) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := o.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := o.ReapExpired(ctx)
			if err != nil {
				log.Error().Err(err).Msg("reaper sweep failed")
			}
		}
	}
}

// RunReconciler runs the catalog-vs-physical check on an interval.
// Mismatches are logged for operators and never auto-resolved.
func (o *Orchestrator) RunReconciler(ctx context.Context, interval time.Duration) {
	ticker := o.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := o.Reconcile(ctx)
			if err != nil {
				log.Error().Err(err).Msg("reconciliation check failed")
			}
		}
	}
}
