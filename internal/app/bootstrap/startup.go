// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"github.com/parleyhq/parley/internal/app/system/cascade"
	"github.com/parleyhq/parley/internal/app/system/ledger"
	"github.com/parleyhq/parley/internal/app/system/presence"
	"github.com/parleyhq/parley/internal/app/system/tasks"
	"github.com/parleyhq/parley/internal/app/system/workers"
	"go.uber.org/zap"
)

// Background machinery constructed in Startup and torn down in Shutdown.
var (
	orchestrator *cascade.Orchestrator
	labelLedger  *ledger.Ledger
	jobRunner    *workers.Runner
	watcher      *workers.Watcher
)

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
// It constructs the consistency machinery (cascade orchestrator, presence
// evaluator, label ledger) and starts the background workers.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.ParleyMongoDatabase

	orchestrator = cascade.New(db, logger)
	labelLedger = ledger.New(db, logger)
	evaluator := presence.NewEvaluator(db, logger, appCfg.PresenceIdle, appCfg.PresenceAway)

	jobRunner = workers.NewRunner(logger,
		tasks.PresenceSweepJob(evaluator, logger, appCfg.PresenceInterval),
		tasks.LedgerRecomputeJob(labelLedger, logger, appCfg.RecomputeInterval),
	)
	jobRunner.Start()

	if appCfg.WatchEnabled {
		watcher = workers.NewWatcher(db, orchestrator, labelLedger, logger)
		watcher.Start()
	} else {
		logger.Info("change stream watchers disabled by config")
	}

	return nil
}
