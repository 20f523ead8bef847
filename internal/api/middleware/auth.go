package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"roomchat/internal/models"
	"roomchat/internal/websocket"

	"github.com/gin-gonic/gin"
)

const (
	// Context keys set by RequireIdentity
	ContextUserID   = "user_id"
	ContextIdentity = "identity"
)

// IdentityResolver turns a session token into a user identity.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (websocket.Identity, error)
}

type AuthMiddleware struct {
	resolver IdentityResolver
}

func NewAuthMiddleware(resolver IdentityResolver) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
	}
}

// RequireIdentity resolves the token from the Authorization header or, for
// browsers opening a websocket, from the token query parameter.
func (am *AuthMiddleware) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "Unauthorized",
				Details: "token is required",
			})
			return
		}

		identity, err := am.resolver.ResolveIdentity(c.Request.Context(), token)
		if err != nil {
			slog.Debug("Identity resolution failed", "path", c.Request.URL.Path, "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "Unauthorized",
				Details: "invalid token",
			})
			return
		}

		c.Set(ContextIdentity, identity)
		c.Set(ContextUserID, identity.UserID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("token")
}

// IdentityFrom returns the identity stored by RequireIdentity.
func IdentityFrom(c *gin.Context) (websocket.Identity, bool) {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return websocket.Identity{}, false
	}
	identity, ok := v.(websocket.Identity)
	return identity, ok
}
