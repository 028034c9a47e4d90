package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"relay-chat/internal/handler"
	"relay-chat/internal/middleware"
	"relay-chat/internal/redis"
	"relay-chat/internal/services"
	"relay-chat/internal/websocket"
)

// Deps bundles everything the router wires together. Limiter and Uploads
// are optional; nil disables their routes or checks.
type Deps struct {
	Auth     *services.AuthService
	Messages *handler.MessageHandler
	Typing   *handler.TypingHandler
	AuthH    *handler.AuthHandler
	Uploads  *handler.UploadHandler
	WS       *websocket.Handler
	Limiter  *redis.RateLimiter
}

// NewRouter assembles the route table.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", deps.WS.Connect)

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", deps.AuthH.Register)
	auth.POST("/login", deps.AuthH.Login)

	limited := middleware.MutationRateLimit(deps.Limiter)

	messages := api.Group("/messages")
	messages.Use(middleware.OptionalAuth(deps.Auth), limited)
	// Authorization is enforced inside the mutation service, which also
	// serves the deliberately open operations (react, pin, unpin).
	messages.POST("", deps.Messages.Insert)
	messages.PATCH("/:id", deps.Messages.Update)
	messages.DELETE("/:id", deps.Messages.Remove)
	messages.POST("/:id/reactions", deps.Messages.React)
	messages.POST("/:id/seen", deps.Messages.MarkSeen)
	messages.POST("/:id/pin", deps.Messages.Pin)
	messages.DELETE("/:id/pin", deps.Messages.Unpin)

	typing := api.Group("/typing")
	typing.Use(middleware.OptionalAuth(deps.Auth))
	typing.PUT("", deps.Typing.Set)
	typing.DELETE("/:username", deps.Typing.Clear)

	if deps.Uploads != nil {
		uploads := api.Group("/uploads")
		uploads.Use(middleware.RequireAuth(deps.Auth))
		uploads.POST("/presign", deps.Uploads.Presign)
	}

	return r
}
