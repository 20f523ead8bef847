package main

import (
	"context"
	"log"
	"log/slog"

	"roomchat/internal/config"
	"roomchat/internal/database"
	"roomchat/internal/repositories/postgres"
	"roomchat/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting database seeding...")

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	authService := services.NewAuthService(postgres.NewUserRepository(db), cfg.JWT.Secret, cfg.JWT.ExpirationTime)
	ctx := context.Background()

	testUsers := []struct {
		username string
		email    string
		password string
	}{
		{"admin", "admin@roomchat.local", "123456"},
		{"alice", "alice@roomchat.local", "123456"},
		{"bob", "bob@roomchat.local", "123456"},
		{"charlie", "charlie@roomchat.local", "123456"},
	}

	for _, u := range testUsers {
		user, err := authService.CreateUser(ctx, u.username, u.email, u.password, "")
		if err != nil {
			slog.Warn("User might already exist", "username", u.username, "error", err)
			continue
		}
		slog.Info("Created user", "username", u.username, "id", user.ID)
	}

	slog.Info("Database seeding completed")
}
