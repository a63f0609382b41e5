package service

import (
	"context"
	"errors"
	"strings"

	"roomcast/internal/broker"
	"roomcast/internal/journal"
	"roomcast/internal/models"
	"roomcast/internal/repository"
	"roomcast/pkg/logger"
	"go.uber.org/zap"
)

var (
	ErrEmptyContent = errors.New("message content cannot be empty")
	ErrInvalidRole  = errors.New("unknown participant role")
)

type MessageService struct {
	messageRepo *repository.MessageRepository // ordered log
	broker      broker.RoomBroker             // change notifications
	journal     *journal.Journal              // persisted-but-unannounced sends
}

func NewMessageService(
	messageRepo *repository.MessageRepository,
	broker broker.RoomBroker,
	journal *journal.Journal,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		broker:      broker,
		journal:     journal,
	}
}

// Send appends one message to the room's log and notifies subscribers.
// Empty or whitespace-only content is rejected before anything is stored.
// There is no idempotency key: a caller that retries after a timeout may
// duplicate the message, and retry policy stays with the caller.
func (s *MessageService) Send(ctx context.Context, roomCode, author, content string, role models.Role) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	roomCode = NormalizeCode(roomCode)

	msg, err := s.messageRepo.Append(ctx, roomCode, strings.TrimSpace(author), content, role)
	if err != nil {
		logger.Log.Error("send: append failed",
			zap.String("room_code", roomCode),
			zap.Error(err),
		)
		return nil, err
	}

	entry := journal.Entry{
		MessageID: msg.ID,
		RoomCode:  msg.RoomCode,
		Author:    msg.Author,
		Content:   msg.Content,
		Role:      string(msg.Role),
		Timestamp: msg.Timestamp,
	}
	if err := s.journal.Write(entry); err != nil {
		return nil, err
	}

	if err := s.broker.Publish(broker.Event{RoomCode: roomCode, Kind: broker.EventAppend}); err != nil {
		// The message is persisted; subscribers just will not hear about
		// it until the next event for this room.
		logger.Log.Warn("send: failed to publish append event",
			zap.String("room_code", roomCode),
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
	}

	return msg, nil
}

// ReplayJournal re-announces sends that were persisted but whose events
// may never have reached the broker, then truncates the journal. Run
// once at startup: re-publishing for a room whose subscribers already
// saw the message is harmless, every event just triggers a re-read.
// Returns the number of replayed entries.
func (s *MessageService) ReplayJournal(ctx context.Context) (int, error) {
	entries, err := s.journal.ReadAll()
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	rooms := make(map[string]bool)
	replayed := make([]string, 0, len(entries))
	for _, entry := range entries {
		rooms[entry.RoomCode] = true
		replayed = append(replayed, entry.MessageID)
	}

	for roomCode := range rooms {
		if err := s.broker.Publish(broker.Event{RoomCode: roomCode, Kind: broker.EventAppend}); err != nil {
			// Keep the journal intact; the next boot tries again.
			return 0, err
		}
	}

	if err := s.journal.Cleanup(replayed); err != nil {
		return 0, err
	}

	logger.Log.Info("journal replayed",
		zap.Int("entries", len(entries)),
		zap.Int("rooms", len(rooms)),
	)

	return len(entries), nil
}

// Snapshot returns the room's current log ordered by (timestamp, id).
func (s *MessageService) Snapshot(ctx context.Context, roomCode string) ([]models.Message, error) {
	return s.messageRepo.ReadAll(ctx, NormalizeCode(roomCode))
}
