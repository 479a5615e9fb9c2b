package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/veridianhq/veridian/internal/api/middleware"
	"github.com/veridianhq/veridian/internal/models"
)

// BIAService defines the BIA operations the handler needs.
type BIAService interface {
	CreateProcess(ctx context.Context, orgID uuid.UUID, name, tier string, rto time.Duration, actor models.Actor) (*models.BIAProcess, error)
	GetProcess(ctx context.Context, orgID, processID uuid.UUID) (*models.BIAProcess, error)
	ListProcesses(ctx context.Context, orgID uuid.UUID) ([]*models.BIAProcess, error)
	UpdateProcess(ctx context.Context, orgID, processID uuid.UUID, name, tier string, rto time.Duration, actor models.Actor) (*models.BIAProcess, error)
	DeleteProcess(ctx context.Context, orgID, processID uuid.UUID, actor models.Actor) error
	CreateAsset(ctx context.Context, orgID, processID uuid.UUID, name, tier string, actor models.Actor) (*models.BIAAsset, error)
	ListAssets(ctx context.Context, orgID uuid.UUID) ([]*models.BIAAsset, error)
	UpdateAsset(ctx context.Context, orgID, assetID uuid.UUID, name, tier string, actor models.Actor) (*models.BIAAsset, error)
	DeleteAsset(ctx context.Context, orgID, assetID uuid.UUID, actor models.Actor) error
	ComplianceLevel(ctx context.Context, orgID uuid.UUID) (*models.ComplianceLevel, error)
}

// BIAHandler handles business impact analysis HTTP endpoints.
type BIAHandler struct {
	service BIAService
	logger  zerolog.Logger
}

// NewBIAHandler creates a new BIAHandler.
func NewBIAHandler(service BIAService, logger zerolog.Logger) *BIAHandler {
	return &BIAHandler{
		service: service,
		logger:  logger.With().Str("component", "bia_handler").Logger(),
	}
}

// RegisterRoutes registers BIA routes on the given router group.
func (h *BIAHandler) RegisterRoutes(r *gin.RouterGroup) {
	bia := r.Group("/bia")
	{
		bia.GET("/processes", h.ListProcesses)
		bia.POST("/processes", h.CreateProcess)
		bia.GET("/processes/:id", h.GetProcess)
		bia.PUT("/processes/:id", h.UpdateProcess)
		bia.DELETE("/processes/:id", h.DeleteProcess)
		bia.GET("/assets", h.ListAssets)
		bia.POST("/processes/:id/assets", h.CreateAsset)
		bia.PUT("/assets/:id", h.UpdateAsset)
		bia.DELETE("/assets/:id", h.DeleteAsset)
		bia.GET("/compliance-level", h.ComplianceLevel)
	}
}

type processRequest struct {
	Name                string `json:"name"`
	CriticalityTier     string `json:"criticality_tier"`
	RecoveryTimeSeconds int64  `json:"recovery_time_seconds"`
}

type assetRequest struct {
	Name            string `json:"name"`
	CriticalityTier string `json:"criticality_tier"`
}

// CreateProcess declares a business process.
// POST /api/v1/bia/processes
func (h *BIAHandler) CreateProcess(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	proc, err := h.service.CreateProcess(c.Request.Context(), actor.OrgID, req.Name,
		req.CriticalityTier, time.Duration(req.RecoveryTimeSeconds)*time.Second, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, proc)
}

// GetProcess returns one process.
// GET /api/v1/bia/processes/:id
func (h *BIAHandler) GetProcess(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	processID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid process ID"})
		return
	}

	proc, err := h.service.GetProcess(c.Request.Context(), actor.OrgID, processID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, proc)
}

// ListProcesses returns the organization's processes.
// GET /api/v1/bia/processes
func (h *BIAHandler) ListProcesses(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	procs, err := h.service.ListProcesses(c.Request.Context(), actor.OrgID)
	if err != nil {
		writeError(c, err)
		return
	}

	if procs == nil {
		procs = []*models.BIAProcess{}
	}
	c.JSON(http.StatusOK, gin.H{"processes": procs})
}

// UpdateProcess replaces the mutable fields of a process.
// PUT /api/v1/bia/processes/:id
func (h *BIAHandler) UpdateProcess(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	processID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid process ID"})
		return
	}

	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	proc, err := h.service.UpdateProcess(c.Request.Context(), actor.OrgID, processID, req.Name,
		req.CriticalityTier, time.Duration(req.RecoveryTimeSeconds)*time.Second, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, proc)
}

// DeleteProcess removes a process and its assets.
// DELETE /api/v1/bia/processes/:id
func (h *BIAHandler) DeleteProcess(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	processID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid process ID"})
		return
	}

	if err := h.service.DeleteProcess(c.Request.Context(), actor.OrgID, processID, actor); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateAsset declares an asset under a process.
// POST /api/v1/bia/processes/:id/assets
func (h *BIAHandler) CreateAsset(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	processID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid process ID"})
		return
	}

	var req assetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	asset, err := h.service.CreateAsset(c.Request.Context(), actor.OrgID, processID,
		req.Name, req.CriticalityTier, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, asset)
}

// ListAssets returns the organization's assets.
// GET /api/v1/bia/assets
func (h *BIAHandler) ListAssets(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	assets, err := h.service.ListAssets(c.Request.Context(), actor.OrgID)
	if err != nil {
		writeError(c, err)
		return
	}

	if assets == nil {
		assets = []*models.BIAAsset{}
	}
	c.JSON(http.StatusOK, gin.H{"assets": assets})
}

// UpdateAsset replaces the mutable fields of an asset.
// PUT /api/v1/bia/assets/:id
func (h *BIAHandler) UpdateAsset(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset ID"})
		return
	}

	var req assetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	asset, err := h.service.UpdateAsset(c.Request.Context(), actor.OrgID, assetID,
		req.Name, req.CriticalityTier, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, asset)
}

// DeleteAsset removes one asset.
// DELETE /api/v1/bia/assets/:id
func (h *BIAHandler) DeleteAsset(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset ID"})
		return
	}

	if err := h.service.DeleteAsset(c.Request.Context(), actor.OrgID, assetID, actor); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ComplianceLevel returns the derived organization-wide compliance level.
// GET /api/v1/bia/compliance-level
func (h *BIAHandler) ComplianceLevel(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	level, err := h.service.ComplianceLevel(c.Request.Context(), actor.OrgID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, level)
}
