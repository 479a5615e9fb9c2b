package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/veridianhq/veridian/internal/models"
)

// OrganizationStore defines the organization persistence operations the
// handler needs.
type OrganizationStore interface {
	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganizationByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	ListOrganizations(ctx context.Context) ([]*models.Organization, error)
	DeleteOrganization(ctx context.Context, id uuid.UUID) error
}

// LevelInvalidator drops derived per-organization state when the rows it
// was computed from are removed.
type LevelInvalidator interface {
	InvalidateLevel(ctx context.Context, orgID uuid.UUID)
}

// OrganizationsHandler handles the organization registry endpoints. These
// sit outside the per-organization actor scope: they are the provisioning
// surface for the fronting layer.
type OrganizationsHandler struct {
	store  OrganizationStore
	levels LevelInvalidator
	logger zerolog.Logger
}

// NewOrganizationsHandler creates a new OrganizationsHandler. levels may
// be nil when no derived-level cache exists.
func NewOrganizationsHandler(store OrganizationStore, levels LevelInvalidator, logger zerolog.Logger) *OrganizationsHandler {
	return &OrganizationsHandler{
		store:  store,
		levels: levels,
		logger: logger.With().Str("component", "organizations_handler").Logger(),
	}
}

// RegisterRoutes registers organization routes on the given router group.
func (h *OrganizationsHandler) RegisterRoutes(r *gin.RouterGroup) {
	orgs := r.Group("/organizations")
	{
		orgs.GET("", h.List)
		orgs.POST("", h.Create)
		orgs.GET("/:id", h.Get)
		orgs.DELETE("/:id", h.Delete)
	}
}

// Create registers a new organization.
// POST /api/v1/organizations
func (h *OrganizationsHandler) Create(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || req.Slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and slug are required"})
		return
	}

	org := models.NewOrganization(req.Name, req.Slug)
	if err := h.store.CreateOrganization(c.Request.Context(), org); err != nil {
		h.logger.Error().Err(err).Str("slug", req.Slug).Msg("failed to create organization")
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, org)
}

// Get returns one organization.
// GET /api/v1/organizations/:id
func (h *OrganizationsHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organization ID"})
		return
	}

	org, err := h.store.GetOrganizationByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, org)
}

// List returns all organizations ordered by name.
// GET /api/v1/organizations
func (h *OrganizationsHandler) List(c *gin.Context) {
	orgs, err := h.store.ListOrganizations(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	if orgs == nil {
		orgs = []*models.Organization{}
	}
	c.JSON(http.StatusOK, gin.H{"organizations": orgs})
}

// Delete removes an organization. Evaluations, evidence metadata, comments,
// and BIA rows cascade; the history log is retained.
// DELETE /api/v1/organizations/:id
func (h *OrganizationsHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organization ID"})
		return
	}

	if err := h.store.DeleteOrganization(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	// The cascade removed the BIA rows the cached level was derived from.
	if h.levels != nil {
		h.levels.InvalidateLevel(c.Request.Context(), id)
	}
	c.Status(http.StatusNoContent)
}
