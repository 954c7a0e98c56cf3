package labels

import "github.com/go-chi/chi/v5"

// Routes returns the router for label endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/trending", h.ServeTrending)
	return r
}
