package labels

import (
	"context"
	"net/http"
	"strconv"

	"github.com/parleyhq/parley/internal/app/features/httpx"
	labelstore "github.com/parleyhq/parley/internal/app/store/labels"
	"github.com/parleyhq/parley/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	defaultTrendingLimit = 20
	maxTrendingLimit     = 100
)

// Handler serves label discovery endpoints.
type Handler struct {
	Labels *labelstore.Store
	Log    *zap.Logger
}

// NewHandler creates a labels Handler.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{Labels: labelstore.New(db), Log: logger}
}

type labelResponse struct {
	Name          string  `json:"name"`
	DisplayName   string  `json:"display_name"`
	Count         int64   `json:"count"`
	TrendingScore float64 `json:"trending_score"`
}

// ServeTrending handles GET /api/labels/trending?limit=N.
func (h *Handler) ServeTrending(w http.ResponseWriter, r *http.Request) {
	limit := int64(defaultTrendingLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			httpx.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxTrendingLimit {
			n = maxTrendingLimit
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Labels.Trending(ctx, limit)
	if err != nil {
		h.Log.Error("list trending labels", zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "listing failed")
		return
	}

	out := make([]labelResponse, 0, len(list))
	for _, l := range list {
		out = append(out, labelResponse{
			Name:          l.Name,
			DisplayName:   l.DisplayName,
			Count:         l.Count,
			TrendingScore: l.TrendingScore,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"labels": out})
}
