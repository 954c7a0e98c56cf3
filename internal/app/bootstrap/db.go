// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/config"
	channelstore "github.com/parleyhq/parley/internal/app/store/channels"
	labelstore "github.com/parleyhq/parley/internal/app/store/labels"
	membershipstore "github.com/parleyhq/parley/internal/app/store/memberships"
	messagestore "github.com/parleyhq/parley/internal/app/store/messages"
	userstore "github.com/parleyhq/parley/internal/app/store/users"
	workspacestore "github.com/parleyhq/parley/internal/app/store/workspaces"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB establishes the MongoDB connection and bundles it into
// DBDeps for the rest of the lifecycle hooks.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return DBDeps{}, fmt.Errorf("ping MongoDB: %w", err)
	}

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase))

	return DBDeps{
		ParleyMongoClient:   client,
		ParleyMongoDatabase: client.Database(appCfg.MongoDatabase),
	}, nil
}

// EnsureSchema creates the indexes every store relies on. Index builds
// are idempotent, so this runs on every startup.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.ParleyMongoDatabase

	ensure := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"workspaces", workspacestore.New(db).EnsureIndexes},
		{"channels", channelstore.New(db).EnsureIndexes},
		{"messages", messagestore.New(db).EnsureIndexes},
		{"memberships", membershipstore.New(db).EnsureIndexes},
		{"users", userstore.New(db).EnsureIndexes},
		{"labels", labelstore.New(db).EnsureIndexes},
	}
	for _, e := range ensure {
		if err := e.fn(ctx); err != nil {
			return fmt.Errorf("ensure %s indexes: %w", e.name, err)
		}
	}

	logger.Info("database indexes ensured")
	return nil
}
