package login

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/parleyhq/parley/internal/app/features/httpx"
	userstore "github.com/parleyhq/parley/internal/app/store/users"
	"github.com/parleyhq/parley/internal/app/system/auth"
	"github.com/parleyhq/parley/internal/app/system/ratelimit"
	"github.com/parleyhq/parley/internal/app/system/sanitize"
	"github.com/parleyhq/parley/internal/app/system/timeouts"
	"github.com/parleyhq/parley/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// Handler serves account registration and session login/logout.
type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.LoginLimiter
	Log        *zap.Logger
}

// NewHandler creates a login Handler.
func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      userstore.New(db),
		SessionMgr: sessionMgr,
		Limiter:    ratelimit.NewLoginLimiter(),
		Log:        logger,
	}
}

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Status      string `json:"status"`
}

// ServeRegister handles POST /api/register.
func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.DisplayName = strings.TrimSpace(sanitize.Plain(req.DisplayName))
	switch {
	case req.Email == "" || !strings.Contains(req.Email, "@"):
		httpx.Error(w, http.StatusBadRequest, "a valid email is required")
		return
	case req.DisplayName == "":
		httpx.Error(w, http.StatusBadRequest, "display name is required")
		return
	case len(req.Password) < 8:
		httpx.Error(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		h.Log.Error("hash password", zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "registration failed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		httpx.Error(w, http.StatusConflict, "an account with that email already exists")
		return
	}
	if err != nil {
		h.Log.Error("create user", zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "registration failed")
		return
	}

	if err := h.signIn(w, r, u); err != nil {
		h.Log.Warn("save session after register", zap.Error(err))
	}
	httpx.JSON(w, http.StatusCreated, toUserResponse(u))
}

// ServeLogin handles POST /api/login.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if !h.Limiter.Allow(r, req.Email) {
		h.Log.Warn("login rate limited", zap.String("ip", ratelimit.ClientIP(r)))
		httpx.Error(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, userstore.ErrNotFound) {
		// Same response as a bad password; do not reveal which.
		httpx.Error(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		h.Log.Error("lookup user for login", zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "login failed")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		httpx.Error(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if err := h.signIn(w, r, u); err != nil {
		h.Log.Error("save session", zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "login failed")
		return
	}

	h.Limiter.Succeeded(u.Email)
	h.Log.Info("user logged in", zap.String("user_id", u.ID.Hex()))
	httpx.JSON(w, http.StatusOK, toUserResponse(u))
}

// ServeLogout handles POST /api/logout.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Warn("clear session", zap.Error(err))
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, u models.User) error {
	return h.SessionMgr.SignIn(w, r, auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.DisplayName,
		Email: u.Email,
	})
}

func toUserResponse(u models.User) userResponse {
	return userResponse{
		ID:          u.ID.Hex(),
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Status:      u.Status,
	}
}
