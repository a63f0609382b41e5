package testutil

import (
	"time"

	"roomcast/internal/models"
	"github.com/google/uuid"
)

// CreateTestRoom creates an active room fixture
func CreateTestRoom(code, createdBy string) *models.Room {
	return &models.Room{
		Code:      code,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
		Active:    true,
	}
}

// CreateTestMessage creates a message fixture with a fresh ID
func CreateTestMessage(roomCode, author, content string, role models.Role) *models.Message {
	return &models.Message{
		ID:        uuid.New().String(),
		RoomCode:  roomCode,
		Author:    author,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Role:      role,
	}
}
