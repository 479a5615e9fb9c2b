package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/veridianhq/veridian/internal/api/middleware"
	"github.com/veridianhq/veridian/internal/evidence"
	"github.com/veridianhq/veridian/internal/models"
)

// EvidenceService defines the evidence operations the handler needs.
type EvidenceService interface {
	Upload(ctx context.Context, orgID uuid.UUID, controlCode string, actor models.Actor, fileName, contentType string, size int64, r io.Reader) (*models.Evidence, error)
	List(ctx context.Context, orgID uuid.UUID, controlCode string) ([]*models.Evidence, error)
	Resolve(ctx context.Context, orgID, evidenceID uuid.UUID) (*evidence.Content, error)
	Delete(ctx context.Context, orgID uuid.UUID, controlCode string, evidenceID uuid.UUID, actor models.Actor) error
}

// EvidenceHandler handles evidence HTTP endpoints.
type EvidenceHandler struct {
	service EvidenceService
	logger  zerolog.Logger
}

// NewEvidenceHandler creates a new EvidenceHandler.
func NewEvidenceHandler(service EvidenceService, logger zerolog.Logger) *EvidenceHandler {
	return &EvidenceHandler{
		service: service,
		logger:  logger.With().Str("component", "evidence_handler").Logger(),
	}
}

// RegisterRoutes registers evidence routes on the given router group.
func (h *EvidenceHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/evaluations/:code/evidence", h.List)
	r.POST("/evaluations/:code/evidence", h.Upload)
	r.GET("/evidence/:id/download", h.Download)
	r.DELETE("/evaluations/:code/evidence/:id", h.Delete)
}

// Upload stores one evidence file for a control.
// POST /api/v1/evaluations/:code/evidence (multipart/form-data, field "file")
func (h *EvidenceHandler) Upload(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer f.Close()

	ev, err := h.service.Upload(c.Request.Context(), actor.OrgID, c.Param("code"), actor,
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), fileHeader.Size, f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

// List returns evidence metadata for one control, newest first.
// GET /api/v1/evaluations/:code/evidence
func (h *EvidenceHandler) List(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	evs, err := h.service.List(c.Request.Context(), actor.OrgID, c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	if evs == nil {
		evs = []*models.Evidence{}
	}
	c.JSON(http.StatusOK, gin.H{"evidence": evs})
}

// Download streams the bytes of one evidence file.
// GET /api/v1/evidence/:id/download
func (h *EvidenceHandler) Download(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	evidenceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid evidence ID"})
		return
	}

	content, err := h.service.Resolve(c.Request.Context(), actor.OrgID, evidenceID)
	if err != nil {
		writeError(c, err)
		return
	}
	defer content.Reader.Close()

	c.Header("Content-Disposition", `attachment; filename="`+content.Evidence.FileName+`"`)
	c.DataFromReader(http.StatusOK, content.Evidence.SizeBytes, content.Evidence.ContentType,
		content.Reader, nil)
}

// Delete removes one evidence record and its bytes.
// DELETE /api/v1/evaluations/:code/evidence/:id
func (h *EvidenceHandler) Delete(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	evidenceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid evidence ID"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor.OrgID, c.Param("code"), evidenceID, actor); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
