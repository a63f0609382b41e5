package database

import (
	"log"

	"roomcast/internal/config"
	"roomcast/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the postgres connection. TranslateError maps driver
// duplicate-key errors onto gorm.ErrDuplicatedKey, which the room
// registry relies on for code-collision detection.
func Connect(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		log.Fatal("Failed to connect database:", err)
	}

	log.Println("Database connected successfully")
	return db
}

func Migrate(db *gorm.DB) {
	if err := db.AutoMigrate(&models.Room{}, &models.Message{}); err != nil {
		log.Fatal("Migration failed:", err)
	}

	log.Println("Database migration completed")
}
