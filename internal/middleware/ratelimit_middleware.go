package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"relay-chat/internal/redis"
	"relay-chat/internal/services"
	"relay-chat/internal/transport/httpdto"
)

// MutationRateLimit throttles mutation endpoints per caller. A nil limiter
// (no redis configured) disables limiting entirely.
func MutationRateLimit(limiter *redis.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		key := c.ClientIP()
		if identity, ok := services.IdentityFromContext(c.Request.Context()); ok {
			key = identity.UserID
		}

		result, err := limiter.AllowMutation(c.Request.Context(), key)
		if err != nil {
			// Redis trouble must not take mutations down with it.
			c.Next()
			return
		}
		setRateLimitHeaders(c, result)
		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("rate limit exceeded", "RATE_LIMITED"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.Itoa(int(result.ResetIn.Seconds())))
}
