package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/veridianhq/veridian/internal/api/middleware"
	"github.com/veridianhq/veridian/internal/report"
)

// DashboardService defines the reporting operations the handler needs.
type DashboardService interface {
	Overview(ctx context.Context, orgID uuid.UUID) (*report.Overview, error)
	Domain(ctx context.Context, orgID uuid.UUID, domain string) (*report.DomainReport, error)
}

// DashboardHandler handles the compliance dashboard endpoints.
type DashboardHandler struct {
	service DashboardService
	logger  zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(service DashboardService, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		logger:  logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// RegisterRoutes registers dashboard routes on the given router group.
func (h *DashboardHandler) RegisterRoutes(r *gin.RouterGroup) {
	dash := r.Group("/dashboard")
	{
		dash.GET("/overview", h.Overview)
		dash.GET("/domains/:domain", h.Domain)
	}
}

// Overview returns the organization's weighted compliance scores and
// derived BIA level.
// GET /api/v1/dashboard/overview
func (h *DashboardHandler) Overview(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	overview, err := h.service.Overview(c.Request.Context(), actor.OrgID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// Domain returns the drill-down report for one control domain.
// GET /api/v1/dashboard/domains/:domain
func (h *DashboardHandler) Domain(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	rep, err := h.service.Domain(c.Request.Context(), actor.OrgID, c.Param("domain"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}
