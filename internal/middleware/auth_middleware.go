package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"relay-chat/internal/services"
	"relay-chat/internal/transport/httpdto"
)

// RequireAuth rejects requests without a valid bearer token and threads
// the caller identity into the request context.
func RequireAuth(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := auth.IdentityFromToken(extractBearer(c))
		if identity == nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("not authorized", "NOT_AUTHORIZED"))
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(services.WithIdentity(c.Request.Context(), *identity))
		c.Next()
	}
}

// OptionalAuth threads the caller identity when a valid token is present
// and lets the request through either way. Open operations (reactions,
// pins, typing) still record an identity when one exists.
func OptionalAuth(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity := auth.IdentityFromToken(extractBearer(c)); identity != nil {
			c.Request = c.Request.WithContext(services.WithIdentity(c.Request.Context(), *identity))
		}
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
