package messages

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parleyhq/parley/internal/app/features/httpx"
	channelstore "github.com/parleyhq/parley/internal/app/store/channels"
	membershipstore "github.com/parleyhq/parley/internal/app/store/memberships"
	messagestore "github.com/parleyhq/parley/internal/app/store/messages"
	"github.com/parleyhq/parley/internal/app/system/auth"
	"github.com/parleyhq/parley/internal/app/system/labelnorm"
	"github.com/parleyhq/parley/internal/app/system/sanitize"
	"github.com/parleyhq/parley/internal/app/system/timeouts"
	"github.com/parleyhq/parley/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const defaultListLimit = 50

// Handler serves message CRUD. Label accounting is event-driven off the
// message collection, so these handlers only shape the documents; they
// never touch the ledger directly.
type Handler struct {
	Messages    *messagestore.Store
	Channels    *channelstore.Store
	Memberships *membershipstore.Store
	Log         *zap.Logger
}

// NewHandler creates a messages Handler.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Messages:    messagestore.New(db),
		Channels:    channelstore.New(db),
		Memberships: membershipstore.New(db),
		Log:         logger,
	}
}

type postRequest struct {
	Body   string   `json:"body"`
	Labels []string `json:"labels"`
}

type messageResponse struct {
	ID        string   `json:"id"`
	ChannelID string   `json:"channel_id"`
	AuthorID  string   `json:"author_id"`
	Body      string   `json:"body"`
	Labels    []string `json:"labels,omitempty"`
	Edited    bool     `json:"edited"`
}

// ServePost handles POST /api/channels/{channelID}/messages.
func (h *Handler) ServePost(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUserID(r)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	chID, err := httpx.PathID(chi.URLParam(r, "channelID"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed channel id")
		return
	}

	var req postRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	body := sanitize.Body(req.Body)
	if body == "" {
		httpx.Error(w, http.StatusBadRequest, "message body is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ch, err := h.Channels.GetByID(ctx, chID)
	if errors.Is(err, channelstore.ErrNotFound) {
		httpx.Error(w, http.StatusNotFound, "channel not found")
		return
	}
	if err != nil {
		h.Log.Error("lookup channel", zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "posting failed")
		return
	}
	if _, err := h.Memberships.GetRole(ctx, ch.WorkspaceID, user); err != nil {
		httpx.Error(w, http.StatusForbidden, "not a member of this workspace")
		return
	}

	msg, err := h.Messages.Insert(ctx, models.Message{
		ChannelID:   chID,
		WorkspaceID: ch.WorkspaceID,
		AuthorID:    user,
		Body:        body,
		Labels:      cleanLabels(req.Labels),
	})
	if err != nil {
		h.Log.Error("insert message",
			zap.String("channel_id", chID.Hex()),
			zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "posting failed")
		return
	}

	httpx.JSON(w, http.StatusCreated, toResponse(msg))
}

// ServeList handles GET /api/channels/{channelID}/messages.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUserID(r)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	chID, err := httpx.PathID(chi.URLParam(r, "channelID"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed channel id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ch, err := h.Channels.GetByID(ctx, chID)
	if errors.Is(err, channelstore.ErrNotFound) {
		httpx.Error(w, http.StatusNotFound, "channel not found")
		return
	}
	if err != nil {
		h.Log.Error("lookup channel", zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "listing failed")
		return
	}
	if _, err := h.Memberships.GetRole(ctx, ch.WorkspaceID, user); err != nil {
		httpx.Error(w, http.StatusForbidden, "not a member of this workspace")
		return
	}

	list, err := h.Messages.ListByChannel(ctx, chID, defaultListLimit)
	if err != nil {
		h.Log.Error("list messages",
			zap.String("channel_id", chID.Hex()),
			zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "listing failed")
		return
	}

	out := make([]messageResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toResponse(m))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"messages": out})
}

type editRequest struct {
	Body   string   `json:"body"`
	Labels []string `json:"labels"`
}

// ServeEdit handles POST /api/messages/{messageID}/edit. Only the author
// may edit; the stored label set is replaced wholesale.
func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	user, msg, ok := h.loadOwnMessage(w, r)
	if !ok {
		return
	}

	var req editRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	body := sanitize.Body(req.Body)
	if body == "" {
		httpx.Error(w, http.StatusBadRequest, "message body is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Messages.Edit(ctx, msg.ID, body, cleanLabels(req.Labels)); err != nil {
		h.Log.Error("edit message",
			zap.String("message_id", msg.ID.Hex()),
			zap.String("user_id", user.Hex()),
			zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "edit failed")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ServeDelete handles POST /api/messages/{messageID}/delete.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	user, msg, ok := h.loadOwnMessage(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Messages.Delete(ctx, msg.ID); err != nil && !errors.Is(err, messagestore.ErrNotFound) {
		h.Log.Error("delete message",
			zap.String("message_id", msg.ID.Hex()),
			zap.String("user_id", user.Hex()),
			zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "delete failed")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// loadOwnMessage resolves the session user and the message, enforcing
// that the user is the author. It writes the error response itself on
// failure.
func (h *Handler) loadOwnMessage(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, models.Message, bool) {
	user, ok := sessionUserID(r)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return primitive.NilObjectID, models.Message{}, false
	}
	msgID, err := httpx.PathID(chi.URLParam(r, "messageID"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed message id")
		return primitive.NilObjectID, models.Message{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	msg, err := h.Messages.GetByID(ctx, msgID)
	if errors.Is(err, messagestore.ErrNotFound) {
		httpx.Error(w, http.StatusNotFound, "message not found")
		return primitive.NilObjectID, models.Message{}, false
	}
	if err != nil {
		h.Log.Error("lookup message", zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "lookup failed")
		return primitive.NilObjectID, models.Message{}, false
	}
	if msg.AuthorID != user {
		httpx.Error(w, http.StatusForbidden, "only the author can modify a message")
		return primitive.NilObjectID, models.Message{}, false
	}
	return user, msg, true
}

// cleanLabels deduplicates the submitted labels and drops empties,
// keeping the display form the ledger normalization maps to.
func cleanLabels(raw []string) []string {
	set := labelnorm.Set(raw)
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for _, display := range set {
		out = append(out, display)
	}
	return out
}

func toResponse(m models.Message) messageResponse {
	return messageResponse{
		ID:        m.ID.Hex(),
		ChannelID: m.ChannelID.Hex(),
		AuthorID:  m.AuthorID.Hex(),
		Body:      m.Body,
		Labels:    m.Labels,
		Edited:    m.EditedAt != nil,
	}
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
