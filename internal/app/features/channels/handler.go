package channels

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/parleyhq/parley/internal/app/features/httpx"
	channelstore "github.com/parleyhq/parley/internal/app/store/channels"
	membershipstore "github.com/parleyhq/parley/internal/app/store/memberships"
	"github.com/parleyhq/parley/internal/app/system/auth"
	"github.com/parleyhq/parley/internal/app/system/sanitize"
	"github.com/parleyhq/parley/internal/app/system/timeouts"
	"github.com/parleyhq/parley/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves channel endpoints, all scoped to a workspace the user
// is a member of.
type Handler struct {
	Channels    *channelstore.Store
	Memberships *membershipstore.Store
	Log         *zap.Logger
}

// NewHandler creates a channels Handler.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Channels:    channelstore.New(db),
		Memberships: membershipstore.New(db),
		Log:         logger,
	}
}

type createRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type channelResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// ServeCreate handles POST /api/workspaces/{workspaceID}/channels.
// Owners and admins may create channels.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	user, wsID, ok := h.requireMember(w, r)
	if !ok {
		return
	}

	var req createRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	name := strings.TrimSpace(sanitize.Plain(req.Name))
	if name == "" {
		httpx.Error(w, http.StatusBadRequest, "channel name is required")
		return
	}
	if req.Kind != "" && req.Kind != models.ChannelText && req.Kind != models.ChannelVoice {
		httpx.Error(w, http.StatusBadRequest, "channel kind must be text or voice")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	role, err := h.Memberships.GetRole(ctx, wsID, user)
	if err != nil || (role != models.RoleOwner && role != models.RoleAdmin) {
		httpx.Error(w, http.StatusForbidden, "only owners and admins can create channels")
		return
	}

	ch, err := h.Channels.Create(ctx, models.Channel{
		WorkspaceID: wsID,
		Name:        name,
		Kind:        req.Kind,
	})
	if err != nil {
		h.Log.Error("create channel",
			zap.String("workspace_id", wsID.Hex()),
			zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "channel creation failed")
		return
	}

	httpx.JSON(w, http.StatusCreated, channelResponse{
		ID:   ch.ID.Hex(),
		Name: ch.Name,
		Kind: ch.Kind,
	})
}

// ServeList handles GET /api/workspaces/{workspaceID}/channels.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	user, wsID, ok := h.requireMember(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Memberships.GetRole(ctx, wsID, user); err != nil {
		httpx.Error(w, http.StatusForbidden, "not a member of this workspace")
		return
	}

	list, err := h.Channels.ListByWorkspace(ctx, wsID)
	if err != nil {
		h.Log.Error("list channels",
			zap.String("workspace_id", wsID.Hex()),
			zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "listing failed")
		return
	}

	out := make([]channelResponse, 0, len(list))
	for _, ch := range list {
		out = append(out, channelResponse{ID: ch.ID.Hex(), Name: ch.Name, Kind: ch.Kind})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"channels": out})
}

// requireMember resolves the session user and workspace path parameter.
// It writes the error response itself when either is missing.
func (h *Handler) requireMember(w http.ResponseWriter, r *http.Request) (user, workspace primitive.ObjectID, ok bool) {
	u, found := auth.CurrentUser(r)
	if !found {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	user, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	workspace, err = httpx.PathID(chi.URLParam(r, "workspaceID"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed workspace id")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return user, workspace, true
}
