package heartbeat

import (
	"context"
	"errors"
	"net/http"

	"github.com/parleyhq/parley/internal/app/features/httpx"
	userstore "github.com/parleyhq/parley/internal/app/store/users"
	"github.com/parleyhq/parley/internal/app/system/auth"
	"github.com/parleyhq/parley/internal/app/system/sanitize"
	"github.com/parleyhq/parley/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves presence heartbeats and custom status updates.
type Handler struct {
	Users *userstore.Store
	Log   *zap.Logger
}

// NewHandler creates a heartbeat Handler.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{Users: userstore.New(db), Log: logger}
}

// ServeHeartbeat handles POST /api/heartbeat.
//
// Every heartbeat stamps a fresh last_heartbeat. The status is restored
// to online only when the user is not holding a custom status; custom is
// client-owned and only the status endpoint changes it.
func (h *Handler) ServeHeartbeat(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(r)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.Heartbeat(ctx, userID); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "account not found")
			return
		}
		h.Log.Warn("record heartbeat",
			zap.String("user_id", userID.Hex()),
			zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "heartbeat failed")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

type statusRequest struct {
	Status string `json:"status"`
}

// ServeSetStatus handles POST /api/status. A non-empty body text sets a
// custom status; an empty one clears it and returns the user to online.
func (h *Handler) ServeSetStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(r)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req statusRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.SetCustomStatus(ctx, userID, sanitize.Plain(req.Status)); err != nil {
		h.Log.Warn("set custom status",
			zap.String("user_id", userID.Hex()),
			zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "status update failed")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
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
