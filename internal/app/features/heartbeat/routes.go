package heartbeat

import (
	"github.com/parleyhq/parley/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for the heartbeat endpoint, mounted under
// /api/heartbeat.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Post("/", h.ServeHeartbeat)
	return r
}

// StatusRoutes returns the router for the custom status endpoint,
// mounted under /api/status.
func StatusRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Post("/", h.ServeSetStatus)
	return r
}
