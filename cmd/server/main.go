package main

import (
	"context"
	"log"

	"roomcast/internal/broker"
	"roomcast/internal/config"
	"roomcast/internal/database"
	"roomcast/internal/handler"
	"roomcast/internal/journal"
	"roomcast/internal/middleware"
	"roomcast/internal/repository"
	"roomcast/internal/service"
	"roomcast/internal/subscription"
	"roomcast/pkg/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	log.Println("Config loaded successfully")

	if err := logger.Init(cfg.Environment == "development"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db := database.Connect(cfg)
	database.Migrate(db)

	// Initialize send journal
	sendJournal, err := journal.New(cfg.JournalPath)
	if err != nil {
		log.Fatalf("Failed to initialize send journal: %v", err)
	}
	defer sendJournal.Close()

	// Initialize room broker
	var roomBroker broker.RoomBroker
	var redisBroker *broker.RedisRoomBroker

	switch cfg.BrokerBackend {
	case "memory":
		roomBroker = broker.NewMemoryRoomBroker()
	default:
		redisBroker, err = broker.NewRedisRoomBroker(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to initialize Redis broker: %v", err)
		}
		roomBroker = redisBroker
	}
	defer roomBroker.Close()

	// Initialize repositories
	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	// Initialize services
	roomService := service.NewRoomService(roomRepo, messageRepo, roomBroker)
	messageService := service.NewMessageService(messageRepo, roomBroker, sendJournal)

	// Re-announce sends persisted before a crash that never reached the
	// broker, and truncate the journal.
	if replayed, err := messageService.ReplayJournal(context.Background()); err != nil {
		log.Printf("Journal replay failed, entries kept for next boot: %v", err)
	} else if replayed > 0 {
		log.Printf("Replayed %d journaled sends", replayed)
	}

	// Subscription manager fans log changes out to live listeners
	subManager, err := subscription.NewManager(messageRepo, roomBroker)
	if err != nil {
		log.Fatalf("Failed to start subscription manager: %v", err)
	}
	defer subManager.Close()

	// Initialize handlers
	roomHandler := handler.NewRoomHandler(roomService)
	messageHandler := handler.NewMessageHandler(roomService, messageService)
	wsHandler := handler.NewWebSocketHandler(roomService, messageService, subManager, cfg.SubscribeReadyTimeout)

	// Setup Gin router
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.HSTSMiddleware(cfg.Environment == "production"))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	router.Use(cors.New(corsConfig))

	api := router.Group("/api")

	// Rate limiting needs redis; the memory backend runs without it
	if redisBroker != nil {
		limiter := middleware.NewRateLimiter(redisBroker.Client(), middleware.RateLimiterConfig{
			MaxRequests: cfg.RateLimitMaxRequests,
			Window:      cfg.RateLimitWindow,
			BlockTime:   cfg.RateLimitBlockTime,
		})
		api.Use(limiter.Middleware())
	}

	api.POST("/rooms", roomHandler.Create)
	api.GET("/rooms/:code", roomHandler.GetActive)
	api.DELETE("/rooms/:code", roomHandler.Delete)
	api.POST("/rooms/:code/messages", messageHandler.Send)
	api.GET("/rooms/:code/messages", messageHandler.Snapshot)
	api.GET("/rooms/:code/ws", wsHandler.HandleWebSocket)

	// Start server
	log.Printf("Server starting on %s", cfg.ServerPort)
	if err := router.Run(cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
