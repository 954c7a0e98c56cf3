package workspaces

import (
	"github.com/parleyhq/parley/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for workspace endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeListMine)
	r.Post("/", h.ServeCreate)
	r.Post("/join", h.ServeJoin)
	r.Post("/{workspaceID}/delete", h.ServeDelete)

	return r
}
