package workspaces

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/parleyhq/parley/internal/app/features/httpx"
	channelstore "github.com/parleyhq/parley/internal/app/store/channels"
	membershipstore "github.com/parleyhq/parley/internal/app/store/memberships"
	userstore "github.com/parleyhq/parley/internal/app/store/users"
	workspacestore "github.com/parleyhq/parley/internal/app/store/workspaces"
	"github.com/parleyhq/parley/internal/app/system/auth"
	"github.com/parleyhq/parley/internal/app/system/cascade"
	"github.com/parleyhq/parley/internal/app/system/sanitize"
	"github.com/parleyhq/parley/internal/app/system/timeouts"
	"github.com/parleyhq/parley/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves workspace lifecycle endpoints.
type Handler struct {
	Workspaces  *workspacestore.Store
	Channels    *channelstore.Store
	Memberships *membershipstore.Store
	Users       *userstore.Store
	Cascade     *cascade.Orchestrator
	Log         *zap.Logger
}

// NewHandler creates a workspaces Handler.
func NewHandler(db *mongo.Database, casc *cascade.Orchestrator, logger *zap.Logger) *Handler {
	return &Handler{
		Workspaces:  workspacestore.New(db),
		Channels:    channelstore.New(db),
		Memberships: membershipstore.New(db),
		Users:       userstore.New(db),
		Cascade:     casc,
		Log:         logger,
	}
}

type createRequest struct {
	Name string `json:"name"`
}

type workspaceResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	InviteCode string `json:"invite_code,omitempty"`
}

// ServeCreate handles POST /api/workspaces.
//
// Creation seeds the creator's owner membership, the back-reference on
// their user document, and the default text channel. There is no
// transaction tying these together; the steps run in dependency order so
// a crash can only leave a workspace missing its seed data, never seed
// data pointing at a missing workspace.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUserID(r)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	name := strings.TrimSpace(sanitize.Plain(req.Name))
	if name == "" {
		httpx.Error(w, http.StatusBadRequest, "workspace name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ws, err := h.Workspaces.Create(ctx, models.Workspace{
		Name:     name,
		OwnerIDs: []primitive.ObjectID{user},
	})
	if err != nil {
		h.Log.Error("create workspace", zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "workspace creation failed")
		return
	}

	if err := h.Memberships.Add(ctx, ws.ID, user, models.RoleOwner); err != nil {
		h.Log.Error("seed owner membership",
			zap.String("workspace_id", ws.ID.Hex()),
			zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "workspace creation failed")
		return
	}

	if _, err := h.Channels.Create(ctx, models.Channel{
		WorkspaceID: ws.ID,
		Name:        models.DefaultChannelName,
		Kind:        models.ChannelText,
	}); err != nil {
		h.Log.Error("seed default channel",
			zap.String("workspace_id", ws.ID.Hex()),
			zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "workspace creation failed")
		return
	}

	h.Log.Info("workspace created",
		zap.String("workspace_id", ws.ID.Hex()),
		zap.String("owner_id", user.Hex()))
	httpx.JSON(w, http.StatusCreated, workspaceResponse{
		ID:         ws.ID.Hex(),
		Name:       ws.Name,
		InviteCode: ws.InviteCode,
	})
}

// deleteResponse reports the per-collection removal counts.
type deleteResponse struct {
	Success            bool   `json:"success"`
	WorkspaceID        string `json:"workspace_id"`
	MessagesDeleted    int64  `json:"messages_deleted"`
	ChannelsDeleted    int64  `json:"channels_deleted"`
	MembershipsDeleted int64  `json:"memberships_deleted"`
}

// ServeDelete handles POST /api/workspaces/{workspaceID}/delete.
//
// Only an owner may trigger it; a repeat call after completion succeeds
// with zero counts.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUserID(r)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	wsID, err := httpx.PathID(chi.URLParam(r, "workspaceID"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed workspace id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "workspace delete")
	defer cancel()

	res, err := h.Cascade.Delete(ctx, wsID, user)
	if errors.Is(err, cascade.ErrNotOwner) {
		httpx.Error(w, http.StatusForbidden, "only a workspace owner can delete it")
		return
	}
	if err != nil {
		h.Log.Error("delete workspace",
			zap.String("workspace_id", wsID.Hex()),
			zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "workspace deletion failed")
		return
	}

	httpx.JSON(w, http.StatusOK, deleteResponse{
		Success:            true,
		WorkspaceID:        wsID.Hex(),
		MessagesDeleted:    res.MessagesDeleted,
		ChannelsDeleted:    res.ChannelsDeleted,
		MembershipsDeleted: res.MembershipsDeleted,
	})
}

// ServeListMine handles GET /api/workspaces, returning the workspaces
// the user belongs to via their back-reference list.
func (h *Handler) ServeListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUserID(r)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.GetByID(ctx, user)
	if err != nil {
		httpx.Error(w, http.StatusNotFound, "account not found")
		return
	}
	list, err := h.Workspaces.ListByIDs(ctx, u.WorkspaceIDs)
	if err != nil {
		h.Log.Error("list workspaces", zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "listing failed")
		return
	}

	out := make([]workspaceResponse, 0, len(list))
	for _, ws := range list {
		out = append(out, workspaceResponse{ID: ws.ID.Hex(), Name: ws.Name})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"workspaces": out})
}

type joinRequest struct {
	InviteCode string `json:"invite_code"`
}

// ServeJoin handles POST /api/workspaces/join, adding the user as a
// member of the workspace behind the invite code. Joining twice is a
// no-op success.
func (h *Handler) ServeJoin(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUserID(r)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req joinRequest
	if err := httpx.Decode(r, &req); err != nil || req.InviteCode == "" {
		httpx.Error(w, http.StatusBadRequest, "invite code is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ws, err := h.Workspaces.GetByInviteCode(ctx, req.InviteCode)
	if errors.Is(err, workspacestore.ErrNotFound) {
		httpx.Error(w, http.StatusNotFound, "invite code not recognized")
		return
	}
	if err != nil {
		h.Log.Error("lookup invite code", zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "join failed")
		return
	}

	err = h.Memberships.Add(ctx, ws.ID, user, models.RoleMember)
	if err != nil && !errors.Is(err, membershipstore.ErrDuplicateMembership) {
		h.Log.Error("add membership",
			zap.String("workspace_id", ws.ID.Hex()),
			zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "join failed")
		return
	}

	httpx.JSON(w, http.StatusOK, workspaceResponse{ID: ws.ID.Hex(), Name: ws.Name})
}

func sessionUserID(r *http.Request) (primitive.ObjectID, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}
