package repository

import (
	"context"
	"sync"
	"time"

	"roomcast/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageRepository is the append-only message log. Messages are never
// edited or individually removed; the only destructive operation is a
// whole-room purge.
type MessageRepository struct {
	db *gorm.DB

	// Timestamp guard: wall clocks can stall or step backwards, but the
	// ordering key must never decrease within this process.
	mu     sync.Mutex
	lastTS time.Time
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// nextTimestamp returns a strictly increasing instant for this process.
func (r *MessageRepository) nextTimestamp() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if !now.After(r.lastTS) {
		now = r.lastTS.Add(time.Microsecond)
	}
	r.lastTS = now
	return now
}

// Append persists a new message, assigning its ID and timestamp at insert
// time. The message is visible to any read issued after Append returns.
func (r *MessageRepository) Append(ctx context.Context, roomCode, author, content string, role models.Role) (*models.Message, error) {
	msg := &models.Message{
		ID:        uuid.New().String(),
		RoomCode:  roomCode,
		Author:    author,
		Content:   content,
		Timestamp: r.nextTimestamp(),
		Role:      role,
	}

	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

// ReadAll returns a consistent snapshot of the room's log ordered by
// (timestamp, id) ascending. The ID tie-break keeps the order strict even
// when two messages land on the same clock tick.
func (r *MessageRepository) ReadAll(ctx context.Context, roomCode string) ([]models.Message, error) {
	messages := make([]models.Message, 0)
	err := r.db.WithContext(ctx).
		Where("room_code = ?", roomCode).
		Order("timestamp ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

// Purge deletes every message of the room and reports how many went.
// Not atomic with a concurrent Append to the same room; callers that need
// strict cleanup deactivate the room first.
func (r *MessageRepository) Purge(ctx context.Context, roomCode string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("room_code = ?", roomCode).
		Delete(&models.Message{})
	return result.RowsAffected, result.Error
}
