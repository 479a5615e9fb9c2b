package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/veridianhq/veridian/internal/api/middleware"
	"github.com/veridianhq/veridian/internal/history"
	"github.com/veridianhq/veridian/internal/models"
)

// HistoryService defines the history operations the handler needs.
type HistoryService interface {
	List(ctx context.Context, orgID uuid.UUID, filter models.HistoryFilter) ([]*models.HistoryEntry, error)
	Count(ctx context.Context, orgID uuid.UUID, filter models.HistoryFilter) (int64, error)
}

// HistoryHandler handles history HTTP endpoints, including the live feed.
type HistoryHandler struct {
	service HistoryService
	feed    *history.Feed
	logger  zerolog.Logger
}

// NewHistoryHandler creates a new HistoryHandler. feed may be nil, in
// which case the WebSocket route is not registered.
func NewHistoryHandler(service HistoryService, feed *history.Feed, logger zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{
		service: service,
		feed:    feed,
		logger:  logger.With().Str("component", "history_handler").Logger(),
	}
}

// RegisterRoutes registers history routes on the given router group.
func (h *HistoryHandler) RegisterRoutes(r *gin.RouterGroup) {
	hist := r.Group("/history")
	{
		hist.GET("", h.List)
		hist.GET("/count", h.Count)
		if h.feed != nil {
			hist.GET("/ws", h.Feed)
		}
	}
}

// List returns history entries, most recent first.
// GET /api/v1/history?entity_type=&limit=
func (h *HistoryHandler) List(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	filter := models.HistoryFilter{
		EntityType: models.HistoryEntityType(c.Query("entity_type")),
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = limit
	}

	entries, err := h.service.List(c.Request.Context(), actor.OrgID, filter)
	if err != nil {
		writeError(c, err)
		return
	}

	if entries == nil {
		entries = []*models.HistoryEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Count returns the number of entries matching the filter.
// GET /api/v1/history/count?entity_type=
func (h *HistoryHandler) Count(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	count, err := h.service.Count(c.Request.Context(), actor.OrgID, models.HistoryFilter{
		EntityType: models.HistoryEntityType(c.Query("entity_type")),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// Feed upgrades the connection and streams new history entries for the
// caller's organization.
// GET /api/v1/history/ws
func (h *HistoryHandler) Feed(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}
	h.feed.HandleWebSocket(c.Writer, c.Request, actor.OrgID)
}
