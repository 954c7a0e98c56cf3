package login

import "github.com/go-chi/chi/v5"

// Routes returns the router for account endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.ServeRegister)
	r.Post("/login", h.ServeLogin)
	r.Post("/logout", h.ServeLogout)
	return r
}
