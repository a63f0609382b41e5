package handler

import (
	"errors"
	"net/http"

	"roomcast/internal/models"
	"roomcast/internal/service"
	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	roomService    *service.RoomService
	messageService *service.MessageService
}

func NewMessageHandler(roomService *service.RoomService, messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{
		roomService:    roomService,
		messageService: messageService,
	}
}

type sendMessageRequest struct {
	Author  string `json:"author" binding:"required"`
	Content string `json:"content"`
	Role    string `json:"role" binding:"required"`
}

// POST /api/rooms/:code/messages
// Sends into an active room. The active check is session policy: the log
// itself would happily append to a deactivated room.
func (h *MessageHandler) Send(c *gin.Context) {
	code := c.Param("code")

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "author and role are required"})
		return
	}

	active, err := h.roomService.IsActive(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check room"})
		return
	}
	if !active {
		c.JSON(http.StatusNotFound, gin.H{"error": "room is not active"})
		return
	}

	msg, err := h.messageService.Send(c.Request.Context(), code, req.Author, req.Content, models.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyContent), errors.Is(err, service.ErrInvalidRole):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":        msg.ID,
		"timestamp": msg.Timestamp,
	})
}

// GET /api/rooms/:code/messages
// One-shot ordered snapshot, for callers that do not hold a subscription.
func (h *MessageHandler) Snapshot(c *gin.Context) {
	code := c.Param("code")

	messages, err := h.messageService.Snapshot(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"count":    len(messages),
	})
}
