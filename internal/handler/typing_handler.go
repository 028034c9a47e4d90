package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"relay-chat/internal/services"
	"relay-chat/internal/transport/httpdto"
)

type TypingHandler struct {
	service *services.TypingService
}

func NewTypingHandler(service *services.TypingService) *TypingHandler {
	return &TypingHandler{service: service}
}

func (h *TypingHandler) Set(c *gin.Context) {
	var req httpdto.SetTypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	if err := h.service.Set(c.Request.Context(), req.Username, req.ConversationID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"username": req.Username}))
}

func (h *TypingHandler) Clear(c *gin.Context) {
	if err := h.service.Clear(c.Request.Context(), c.Param("username")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"username": c.Param("username")}))
}
