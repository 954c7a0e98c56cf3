// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/parleyhq/parley/internal/app/system/presence"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for Parley.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: PARLEY_MONGO_URI, PARLEY_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "parley", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "parley-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	// Presence evaluation
	{Name: "presence_interval", Default: "5m", Desc: "Presence sweep cadence (e.g., 5m)"},
	{Name: "presence_idle", Default: "10m", Desc: "Heartbeat age after which online becomes idle"},
	{Name: "presence_away", Default: "20m", Desc: "Heartbeat age after which idle becomes away"},

	// Label ledger
	{Name: "recompute_interval", Default: "6h", Desc: "Full label ledger recompute cadence"},

	// Change stream watchers
	{Name: "watch_enabled", Default: true, Desc: "Enable change stream watchers (requires a replica set)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, PARLEY_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "PARLEY", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),

		// Presence
		PresenceInterval: appValues.Duration("presence_interval", presence.DefaultInterval),
		PresenceIdle:     appValues.Duration("presence_idle", presence.DefaultIdleAfter),
		PresenceAway:     appValues.Duration("presence_away", presence.DefaultAwayAfter),

		// Label ledger
		RecomputeInterval: appValues.Duration("recompute_interval", 6*time.Hour),

		// Watchers
		WatchEnabled: appValues.Bool("watch_enabled"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Parley validates the MongoDB URI format to catch configuration errors
// early, before attempting to connect, and checks that the presence
// thresholds keep their relative order.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.PresenceIdle <= 0 || appCfg.PresenceAway <= 0 || appCfg.PresenceInterval <= 0 {
		return fmt.Errorf("presence intervals must be positive")
	}
	if appCfg.PresenceAway <= appCfg.PresenceIdle {
		return fmt.Errorf("presence_away (%s) must be greater than presence_idle (%s)",
			appCfg.PresenceAway, appCfg.PresenceIdle)
	}

	return nil
}
