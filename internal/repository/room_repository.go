package repository

import (
	"context"
	"errors"

	"roomcast/internal/models"
	"gorm.io/gorm"
)

// RoomRepository is the room registry: it owns room existence, creator
// and the active flag. Rooms are never hard-deleted.
type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create inserts a new room. Returns ErrRoomExists if the code was ever
// used before, including by a room that has since been deactivated.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	err := r.db.WithContext(ctx).Create(room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrRoomExists
		}
		return err
	}
	return nil
}

// Get retrieves a room by code regardless of its active flag.
func (r *RoomRepository) Get(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// IsActive returns true only for a room that exists with active=true.
// Unknown and deactivated codes both report false; callers cannot tell
// the two apart from this answer alone.
func (r *RoomRepository) IsActive(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("code = ? AND active = ?", code, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Deactivate flips the active flag off. Deactivating an already-inactive
// room succeeds silently; only a code that was never created fails.
func (r *RoomRepository) Deactivate(ctx context.Context, code string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("code = ?", code).
		Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}
