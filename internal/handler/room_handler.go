package handler

import (
	"errors"
	"net/http"

	"roomcast/internal/service"
	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	roomService *service.RoomService
}

func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
	}
}

type createRoomRequest struct {
	Code      string `json:"code" binding:"required"`
	CreatedBy string `json:"created_by" binding:"required"`
}

// POST /api/rooms
// The caller pre-generates the code (the UI does this client-side before
// navigating into the room).
func (h *RoomHandler) Create(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and created_by are required"})
		return
	}

	room, err := h.roomService.Create(c.Request.Context(), req.Code, req.CreatedBy)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRoomCode):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrRoomExists):
			c.JSON(http.StatusConflict, gin.H{"error": "room code already in use"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"room": room})
}

// GET /api/rooms/:code
// Answers only whether the room is active. Unknown and deleted codes look
// identical, so probing cannot reveal whether a code was ever used.
func (h *RoomHandler) GetActive(c *gin.Context) {
	code := c.Param("code")

	active, err := h.roomService.IsActive(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check room"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":   service.NormalizeCode(code),
		"active": active,
	})
}

// DELETE /api/rooms/:code
// Deactivates the room and purges its messages. The code stays reserved.
func (h *RoomHandler) Delete(c *gin.Context) {
	code := c.Param("code")

	purged, err := h.roomService.Delete(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete room"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":             service.NormalizeCode(code),
		"deleted_messages": purged,
	})
}
