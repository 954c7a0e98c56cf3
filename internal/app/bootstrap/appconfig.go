// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (HTTP ports, TLS,
// logging level, CORS, request limits). AppConfig is everything specific
// to Parley: the MongoDB connection, session cookies, and the schedules
// of the consistency maintenance jobs.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: parley-session)
	SessionDomain string // Cookie domain (blank means current host)

	// Presence evaluation configuration
	PresenceInterval time.Duration // Sweep cadence for the presence evaluator
	PresenceIdle     time.Duration // Heartbeat age after which online becomes idle
	PresenceAway     time.Duration // Heartbeat age after which idle becomes away

	// Label ledger configuration
	RecomputeInterval time.Duration // Cadence of the full ledger recompute

	// Change stream watchers (require a replica set; disable for
	// standalone deployments to avoid startup warnings)
	WatchEnabled bool
}
