package channels

import (
	"github.com/parleyhq/parley/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for channel endpoints, mounted under
// /api/workspaces/{workspaceID}/channels.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Post("/", h.ServeCreate)

	return r
}
