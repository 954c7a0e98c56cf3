// Package tasks defines the periodic maintenance jobs and their
// schedules. The workers package runs them.
package tasks

import (
	"context"
	"time"

	"github.com/parleyhq/parley/internal/app/system/ledger"
	"github.com/parleyhq/parley/internal/app/system/presence"
	"github.com/parleyhq/parley/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// PresenceSweepJob demotes stale user profiles on a schedule. A
// non-positive interval falls back to the evaluator's default tick.
func PresenceSweepJob(ev *presence.Evaluator, logger *zap.Logger, interval time.Duration) Job {
	if interval <= 0 {
		interval = presence.DefaultInterval
	}
	return Job{
		Name:     "presence-sweep",
		Interval: interval,
		Run: func(ctx context.Context) error {
			ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Batch(), logger, "presence sweep")
			defer cancel()

			demoted, err := ev.Tick(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			if demoted > 0 {
				logger.Info("presence sweep demoted profiles",
					zap.Int64("demoted", demoted))
			}
			return nil
		},
	}
}

// LedgerRecomputeJob rebuilds label counts from a full message scan to
// correct any drift left by the event-driven path.
func LedgerRecomputeJob(l *ledger.Ledger, logger *zap.Logger, interval time.Duration) Job {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return Job{
		Name:     "ledger-recompute",
		Interval: interval,
		Run: func(ctx context.Context) error {
			ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Batch(), logger, "ledger recompute")
			defer cancel()

			_, err := l.Recompute(ctx)
			return err
		},
	}
}
