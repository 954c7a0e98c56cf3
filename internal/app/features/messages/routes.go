package messages

import (
	"github.com/parleyhq/parley/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// ChannelRoutes returns the router for channel-scoped message
// endpoints, mounted under /api/channels/{channelID}/messages.
func ChannelRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Post("/", h.ServePost)

	return r
}

// Routes returns the router for message-scoped endpoints, mounted under
// /api/messages.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Post("/{messageID}/edit", h.ServeEdit)
	r.Post("/{messageID}/delete", h.ServeDelete)

	return r
}
