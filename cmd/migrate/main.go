package main

import (
	"context"
	"log"
	"log/slog"

	"roomchat/internal/config"
	"roomchat/internal/database"
	"roomchat/internal/repositories/mongo"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting database migration...", "driver", cfg.Database.Driver)

	// NewConnection runs the GORM auto-migration
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database instance:", err)
	}
	defer sqlDB.Close()

	if cfg.Store.Driver == "mongo" {
		slog.Info("Creating MongoDB indexes...")
		mongoDB, err := database.NewMongoConnection(cfg.Mongo)
		if err != nil {
			log.Fatal("Failed to connect to MongoDB:", err)
		}
		defer mongoDB.Close(context.Background())

		if err := mongo.NewMessageRepository(mongoDB).EnsureIndexes(context.Background()); err != nil {
			log.Fatal("Failed to create MongoDB indexes:", err)
		}
	}

	slog.Info("Database migration completed successfully!")
}
