package middleware

import (
	"net/http"
	"strings"

	"reviewhub/internal/api/models"
	"reviewhub/internal/api/service"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// Authenticate is a Gin middleware that requires a valid bearer token and
// stashes the authenticated actor in the request context.
func Authenticate(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromHeader(c, authService)
		if !ok {
			return
		}
		if actor == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// OptionalAuthenticate resolves the actor when a bearer token is presented
// and lets anonymous requests through. A token that is present but invalid is
// still rejected: a bad credential never downgrades to anonymous.
func OptionalAuthenticate(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromHeader(c, authService)
		if !ok {
			return
		}
		if actor != nil {
			c.Set(actorKey, actor)
		}
		c.Next()
	}
}

// actorFromHeader parses the Authorization header. The second return is false
// when the request has already been aborted with a 401.
func actorFromHeader(c *gin.Context, authService service.AuthService) (*models.User, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, true
	}

	// Expected format: "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
		c.Abort()
		return nil, false
	}

	claims, err := authService.ValidateToken(parts[1])
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		c.Abort()
		return nil, false
	}

	return &models.User{
		ID:       claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	}, true
}

// ActorFromContext returns the authenticated actor, or nil for an anonymous
// request.
func ActorFromContext(c *gin.Context) *models.User {
	value, exists := c.Get(actorKey)
	if !exists {
		return nil
	}
	actor, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return actor
}
