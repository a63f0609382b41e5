package main

import (
	"context"
	"log"

	"roomcast/internal/broker"
	"roomcast/internal/config"
	"roomcast/internal/database"
	"roomcast/internal/journal"
	"roomcast/internal/models"
	"roomcast/internal/repository"
	"roomcast/internal/service"
	"roomcast/pkg/logger"
)

// Seeds a demo room with a short exchange so a fresh deployment has
// something to look at.
func main() {
	cfg := config.Load()

	if err := logger.Init(true); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db := database.Connect(cfg)
	database.Migrate(db)

	sendJournal, err := journal.New(cfg.JournalPath)
	if err != nil {
		log.Fatal("Failed to open send journal:", err)
	}
	defer sendJournal.Close()

	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	roomBroker := broker.NewMemoryRoomBroker()
	defer roomBroker.Close()

	roomService := service.NewRoomService(roomRepo, messageRepo, roomBroker)
	messageService := service.NewMessageService(messageRepo, roomBroker, sendJournal)

	ctx := context.Background()
	code := "DEMO42"

	if active, err := roomService.IsActive(ctx, code); err == nil && active {
		log.Println("Demo room already exists:", code)
		return
	}

	if _, err := roomService.Create(ctx, code, "Ms. Lee"); err != nil {
		log.Fatal("Failed to create demo room:", err)
	}

	seedMessages := []struct {
		author  string
		content string
		role    string
	}{
		{"Ms. Lee", "Welcome everyone, feel free to say hi!", "leader"},
		{"Bob", "hi!", "member"},
		{"Alice", "hello :)", "member"},
	}

	for _, m := range seedMessages {
		if _, err := messageService.Send(ctx, code, m.author, m.content, models.Role(m.role)); err != nil {
			log.Fatal("Failed to seed message:", err)
		}
	}

	log.Println("Demo room seeded:", code)
}
