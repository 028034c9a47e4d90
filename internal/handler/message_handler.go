package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"relay-chat/internal/domain/message"
	"relay-chat/internal/services"
	"relay-chat/internal/transport/httpdto"
	relay_errors "relay-chat/pkg/errors"
)

type MessageHandler struct {
	service *services.MessageService
}

func NewMessageHandler(service *services.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

func caller(c *gin.Context) *services.Identity {
	identity, ok := services.IdentityFromContext(c.Request.Context())
	if !ok {
		return nil
	}
	return identity
}

func fail(c *gin.Context, err error) {
	c.JSON(relay_errors.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), relay_errors.Code(err)))
}

func (h *MessageHandler) Insert(c *gin.Context) {
	var req httpdto.InsertMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	in := services.InsertInput{
		Text:           req.Text,
		ConversationID: req.ConversationID,
		LegacyUsername: req.LegacyUsername,
	}
	if req.ReplyTo != nil {
		in.ReplyTo = &message.ReplySnapshot{
			MessageID:  req.ReplyTo.MessageID,
			Text:       req.ReplyTo.Text,
			AuthorName: req.ReplyTo.AuthorName,
		}
	}
	for _, a := range req.Attachments {
		in.Attachments = append(in.Attachments, message.Attachment{
			Kind: message.AttachmentKind(a.Kind),
			Ref:  a.Ref,
			Name: a.Name,
			Size: a.Size,
		})
	}

	m, err := h.service.Insert(c.Request.Context(), caller(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(gin.H{"id": m.ID}))
}

func (h *MessageHandler) Update(c *gin.Context) {
	var req httpdto.UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	if err := h.service.Update(c.Request.Context(), caller(c), c.Param("id"), req.Text, req.LegacyUsername); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"id": c.Param("id")}))
}

func (h *MessageHandler) Remove(c *gin.Context) {
	var req httpdto.RemoveMessageRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.service.Remove(c.Request.Context(), caller(c), c.Param("id"), req.LegacyUsername); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"id": c.Param("id")}))
}

func (h *MessageHandler) React(c *gin.Context) {
	var req httpdto.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	if err := h.service.AddReaction(c.Request.Context(), caller(c), c.Param("id"), req.Emoji, req.ReactorName); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"id": c.Param("id")}))
}

func (h *MessageHandler) MarkSeen(c *gin.Context) {
	var req httpdto.SeenRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.service.MarkAsSeen(c.Request.Context(), caller(c), c.Param("id"), req.LegacyUsername); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"id": c.Param("id")}))
}

func (h *MessageHandler) Pin(c *gin.Context) {
	var req httpdto.PinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	if err := h.service.Pin(c.Request.Context(), c.Param("id"), req.PinnedBy); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"id": c.Param("id")}))
}

func (h *MessageHandler) Unpin(c *gin.Context) {
	if err := h.service.Unpin(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"id": c.Param("id")}))
}
