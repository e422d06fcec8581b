package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dispatch-platform/scheduling-service/pkg/actor"
)

// Actor HTTP header names. The identity service at the edge authenticates
// callers and forwards their resolved identity in these headers.
const (
	HeaderActorID        = "X-Actor-ID"
	HeaderActorRole      = "X-Actor-Role"
	HeaderOrganizationID = "X-Organization-ID"
)

// Gin context keys for actor information
const (
	ContextKeyActorID        = "actorId"
	ContextKeyActorRole      = "actorRole"
	ContextKeyOrganizationID = "organizationId"
)

// ActorAuthConfig holds configuration for the actor context middleware
type ActorAuthConfig struct {
	// Required when true, requests without an actor identity are rejected
	Required bool
}

// DefaultActorAuthConfig returns a default configuration
func DefaultActorAuthConfig() *ActorAuthConfig {
	return &ActorAuthConfig{Required: true}
}

// ActorAuth middleware extracts the caller identity from trusted headers and
// adds it to the request context.
func ActorAuth(config *ActorAuthConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultActorAuthConfig()
	}

	return func(c *gin.Context) {
		actorID := c.GetHeader(HeaderActorID)
		role := actor.Role(c.GetHeader(HeaderActorRole))
		organizationID := c.GetHeader(HeaderOrganizationID)

		if actorID == "" || role == "" {
			if config.Required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"code":    "MISSING_ACTOR_CONTEXT",
					"message": "Actor identity headers are required",
				})
				return
			}
			c.Next()
			return
		}

		if !role.IsValid() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "INVALID_ACTOR_ROLE",
				"message": "Unknown actor role",
			})
			return
		}

		ac := &actor.Context{
			ActorID:        actorID,
			Role:           role,
			OrganizationID: organizationID,
		}

		ctx := actor.ToContext(c.Request.Context(), ac)
		c.Request = c.Request.WithContext(ctx)

		c.Set("actorContext", ac)
		c.Set(ContextKeyActorID, actorID)
		c.Set(ContextKeyActorRole, string(role))
		c.Set(ContextKeyOrganizationID, organizationID)

		c.Next()
	}
}

// GetActorContext retrieves the actor context from Gin context
func GetActorContext(c *gin.Context) *actor.Context {
	if val, exists := c.Get("actorContext"); exists {
		if ac, ok := val.(*actor.Context); ok {
			return ac
		}
	}

	return &actor.Context{
		ActorID:        c.GetString(ContextKeyActorID),
		Role:           actor.Role(c.GetString(ContextKeyActorRole)),
		OrganizationID: c.GetString(ContextKeyOrganizationID),
	}
}

// RequireRole restricts an endpoint to the given roles.
func RequireRole(roles ...actor.Role) gin.HandlerFunc {
	allowed := make(map[actor.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		ac := GetActorContext(c)
		if ac == nil || ac.ActorID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "MISSING_ACTOR_CONTEXT",
				"message": "Actor identity is required for this endpoint",
			})
			return
		}
		if !allowed[ac.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "FORBIDDEN",
				"message": "Actor role is not permitted for this endpoint",
			})
			return
		}
		c.Next()
	}
}
