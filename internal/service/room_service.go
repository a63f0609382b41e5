package service

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"

	"roomcast/internal/broker"
	"roomcast/internal/models"
	"roomcast/internal/repository"
	"roomcast/pkg/logger"
	"go.uber.org/zap"
)

var (
	ErrRoomExists      = errors.New("room code already in use")
	ErrRoomNotFound    = errors.New("room not found")
	ErrInvalidRoomCode = errors.New("room code must be 1-12 letters or digits")
)

const codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type RoomService struct {
	roomRepo    *repository.RoomRepository
	messageRepo *repository.MessageRepository
	broker      broker.RoomBroker
}

func NewRoomService(
	roomRepo *repository.RoomRepository,
	messageRepo *repository.MessageRepository,
	broker broker.RoomBroker,
) *RoomService {
	return &RoomService{
		roomRepo:    roomRepo,
		messageRepo: messageRepo,
		broker:      broker,
	}
}

// NormalizeCode applies the code convention: trimmed, uppercase.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// validCode accepts any non-empty code up to 12 chars. Generated codes
// are always 6, but a participant may type in any code a room was
// created under, however short.
func validCode(code string) bool {
	if len(code) == 0 || len(code) > 12 {
		return false
	}
	for _, c := range code {
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// GenerateCode produces a fresh 6-character room code. Uniqueness is only
// enforced at creation time; the caller retries on ErrRoomExists.
func GenerateCode() string {
	buf := make([]byte, 6)
	rand.Read(buf)
	for i, b := range buf {
		buf[i] = codeCharset[int(b)%len(codeCharset)]
	}
	return string(buf)
}

// Create registers a new room under the given code. A code that was ever
// used before fails with ErrRoomExists, even if that room is now inactive.
func (s *RoomService) Create(ctx context.Context, code, createdBy string) (*models.Room, error) {
	code = NormalizeCode(code)
	if !validCode(code) {
		return nil, ErrInvalidRoomCode
	}

	room := &models.Room{
		Code:      code,
		CreatedBy: strings.TrimSpace(createdBy),
		Active:    true,
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		if errors.Is(err, repository.ErrRoomExists) {
			return nil, ErrRoomExists
		}
		return nil, err
	}

	logger.Log.Info("room created",
		zap.String("room_code", code),
		zap.String("created_by", room.CreatedBy),
	)

	return room, nil
}

// IsActive reports whether a room exists and has not been deleted.
// Unknown and deleted codes both answer false.
func (s *RoomService) IsActive(ctx context.Context, code string) (bool, error) {
	return s.roomRepo.IsActive(ctx, NormalizeCode(code))
}

// Delete deactivates the room, then purges its messages, then notifies
// subscribers so they observe the empty snapshot. Deactivating first means
// new sends are already being refused while the purge runs. Returns the
// number of purged messages.
func (s *RoomService) Delete(ctx context.Context, code string) (int64, error) {
	code = NormalizeCode(code)

	if err := s.roomRepo.Deactivate(ctx, code); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return 0, ErrRoomNotFound
		}
		return 0, err
	}

	purged, err := s.messageRepo.Purge(ctx, code)
	if err != nil {
		return 0, err
	}

	if err := s.broker.Publish(broker.Event{RoomCode: code, Kind: broker.EventPurge}); err != nil {
		logger.Log.Warn("room delete: failed to publish purge event",
			zap.String("room_code", code),
			zap.Error(err),
		)
	}

	logger.Log.Info("room deleted",
		zap.String("room_code", code),
		zap.Int64("purged_messages", purged),
	)

	return purged, nil
}
