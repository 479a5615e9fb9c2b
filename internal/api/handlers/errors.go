// Package handlers implements the HTTP endpoints of the Veridian API.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veridianhq/veridian/internal/apperr"
)

// writeError maps a core error onto an HTTP status and JSON body. The
// sentinel taxonomy is the single source of truth for status codes.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrControlNotFound), errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrPathSecurity):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, apperr.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "operation timed out"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
