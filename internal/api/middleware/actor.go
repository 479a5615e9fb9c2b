package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veridianhq/veridian/internal/models"
)

// contextKey is the type used for values stored in the Gin context.
type contextKey string

// ActorContextKey is the context key under which the resolved actor is stored.
const ActorContextKey contextKey = "actor"

// Headers carrying the already-authenticated caller identity. The core
// performs no authentication itself; the fronting layer is trusted to set
// these after verifying the caller.
const (
	HeaderOrgID     = "X-Org-ID"
	HeaderActorID   = "X-Actor-ID"
	HeaderActorName = "X-Actor-Name"
)

// ActorMiddleware resolves the caller identity headers into a models.Actor
// and stores it in the context. Requests without a valid pair are rejected:
// every core operation is scoped to an organization.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := uuid.Parse(c.GetHeader(HeaderOrgID))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid organization ID"})
			return
		}
		actorID, err := uuid.Parse(c.GetHeader(HeaderActorID))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid actor ID"})
			return
		}

		c.Set(string(ActorContextKey), models.Actor{
			OrgID: orgID,
			ID:    actorID,
			Name:  c.GetHeader(HeaderActorName),
		})
		c.Next()
	}
}

// GetActor retrieves the resolved actor from the Gin context.
// Returns a zero actor if none is present.
func GetActor(c *gin.Context) models.Actor {
	v, exists := c.Get(string(ActorContextKey))
	if !exists {
		return models.Actor{}
	}
	actor, ok := v.(models.Actor)
	if !ok {
		return models.Actor{}
	}
	return actor
}

// RequireActor is a helper that gets the resolved actor or aborts with 401.
// Use this in handlers that expect ActorMiddleware to have already run.
func RequireActor(c *gin.Context) (models.Actor, bool) {
	actor := GetActor(c)
	if actor.IsZero() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "caller identity required"})
		return models.Actor{}, false
	}
	return actor, true
}
