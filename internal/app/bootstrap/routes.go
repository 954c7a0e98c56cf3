// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	channelsfeature "github.com/parleyhq/parley/internal/app/features/channels"
	healthfeature "github.com/parleyhq/parley/internal/app/features/health"
	heartbeatfeature "github.com/parleyhq/parley/internal/app/features/heartbeat"
	labelsfeature "github.com/parleyhq/parley/internal/app/features/labels"
	loginfeature "github.com/parleyhq/parley/internal/app/features/login"
	messagesfeature "github.com/parleyhq/parley/internal/app/features/messages"
	workspacesfeature "github.com/parleyhq/parley/internal/app/features/workspaces"
	"github.com/parleyhq/parley/internal/app/system/auth"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this
// WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and any Startup hooks have completed. Parley mounts a JSON API:
// account endpoints, workspace lifecycle (including the guarded
// cascading delete), channels, messages, presence, and label discovery.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	db := deps.ParleyMongoDatabase

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.ParleyMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Route("/api", func(r chi.Router) {
		loginHandler := loginfeature.NewHandler(db, sessionMgr, logger)
		r.Mount("/", loginfeature.Routes(loginHandler))

		heartbeatHandler := heartbeatfeature.NewHandler(db, logger)
		r.Mount("/heartbeat", heartbeatfeature.Routes(heartbeatHandler))
		r.Mount("/status", heartbeatfeature.StatusRoutes(heartbeatHandler))

		workspacesHandler := workspacesfeature.NewHandler(db, orchestrator, logger)
		channelsHandler := channelsfeature.NewHandler(db, logger)
		wsRouter := workspacesfeature.Routes(workspacesHandler)
		wsRouter.Mount("/{workspaceID}/channels", channelsfeature.Routes(channelsHandler))
		r.Mount("/workspaces", wsRouter)

		messagesHandler := messagesfeature.NewHandler(db, logger)
		r.Mount("/channels/{channelID}/messages", messagesfeature.ChannelRoutes(messagesHandler))
		r.Mount("/messages", messagesfeature.Routes(messagesHandler))

		labelsHandler := labelsfeature.NewHandler(db, logger)
		r.Mount("/labels", labelsfeature.Routes(labelsHandler))
	})

	return r, nil
}
