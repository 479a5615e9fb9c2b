package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/veridianhq/veridian/internal/api/middleware"
	"github.com/veridianhq/veridian/internal/evaluation"
	"github.com/veridianhq/veridian/internal/models"
)

// EvaluationService defines the evaluation operations the handler needs.
type EvaluationService interface {
	Get(ctx context.Context, orgID uuid.UUID, controlCode string) (*evaluation.ControlEvaluation, error)
	List(ctx context.Context, orgID uuid.UUID, filter models.EvaluationFilter) ([]*evaluation.ControlEvaluation, error)
	Update(ctx context.Context, orgID uuid.UUID, controlCode string, update models.EvaluationUpdate, actor models.Actor) (*models.Evaluation, error)
	AddComment(ctx context.Context, orgID uuid.UUID, controlCode string, actor models.Actor, content string) (*models.Comment, error)
	ListComments(ctx context.Context, orgID uuid.UUID, controlCode string) ([]*models.Comment, error)
}

// EvaluationsHandler handles evaluation and comment HTTP endpoints.
type EvaluationsHandler struct {
	service EvaluationService
	logger  zerolog.Logger
}

// NewEvaluationsHandler creates a new EvaluationsHandler.
func NewEvaluationsHandler(service EvaluationService, logger zerolog.Logger) *EvaluationsHandler {
	return &EvaluationsHandler{
		service: service,
		logger:  logger.With().Str("component", "evaluations_handler").Logger(),
	}
}

// RegisterRoutes registers evaluation routes on the given router group.
func (h *EvaluationsHandler) RegisterRoutes(r *gin.RouterGroup) {
	evals := r.Group("/evaluations")
	{
		evals.GET("", h.List)
		evals.GET("/:code", h.Get)
		evals.PUT("/:code", h.Update)
		evals.GET("/:code/comments", h.ListComments)
		evals.POST("/:code/comments", h.AddComment)
	}
}

// List returns every catalog control with its evaluation.
// GET /api/v1/evaluations?domain=&status=
func (h *EvaluationsHandler) List(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	filter := models.EvaluationFilter{
		Domain: c.Query("domain"),
		Status: models.EvaluationStatus(c.Query("status")),
	}

	evals, err := h.service.List(c.Request.Context(), actor.OrgID, filter)
	if err != nil {
		h.logger.Error().Err(err).Str("org_id", actor.OrgID.String()).Msg("failed to list evaluations")
		writeError(c, err)
		return
	}

	if evals == nil {
		evals = []*evaluation.ControlEvaluation{}
	}
	c.JSON(http.StatusOK, gin.H{"evaluations": evals})
}

// Get returns one control with its evaluation.
// GET /api/v1/evaluations/:code
func (h *EvaluationsHandler) Get(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	eval, err := h.service.Get(c.Request.Context(), actor.OrgID, c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, eval)
}

// Update applies a status change to one control's evaluation.
// PUT /api/v1/evaluations/:code
func (h *EvaluationsHandler) Update(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	var req models.EvaluationUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	updated, err := h.service.Update(c.Request.Context(), actor.OrgID, c.Param("code"), req, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ListComments returns the comments on one control, newest first.
// GET /api/v1/evaluations/:code/comments
func (h *EvaluationsHandler) ListComments(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	comments, err := h.service.ListComments(c.Request.Context(), actor.OrgID, c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	if comments == nil {
		comments = []*models.Comment{}
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// AddComment appends a reviewer comment to one control's evaluation.
// POST /api/v1/evaluations/:code/comments
func (h *EvaluationsHandler) AddComment(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	comment, err := h.service.AddComment(c.Request.Context(), actor.OrgID, c.Param("code"), actor, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}
