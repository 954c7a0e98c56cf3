// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown cleanly tears down background workers and DB connections.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if watcher != nil {
		watcher.Stop()
	}
	if jobRunner != nil {
		jobRunner.Stop()
	}

	if deps.ParleyMongoClient != nil {
		logger.Info("disconnecting Parley MongoDB client")
		if err := deps.ParleyMongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
