package main

// @title           Room Chat API
// @version         1.0
// @description     Real-time room chat: login over HTTP, then chat over a websocket.
// @host            localhost:8080
// @BasePath        /api/v1
// @schemes         http https

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomchat/internal/api/handlers"
	"roomchat/internal/api/routes"
	"roomchat/internal/config"
	"roomchat/internal/database"
	"roomchat/internal/repositories/mongo"
	"roomchat/internal/repositories/postgres"
	"roomchat/internal/services"
	"roomchat/internal/websocket"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting chat server")

	// Initialize Redis connection
	redisClient, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Users and durable presence always live in the SQL database
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}

	healthChecks := map[string]handlers.Pinger{"redis": redisClient}

	var (
		store   websocket.MessageStore
		history handlers.ConversationStore
	)
	switch cfg.Store.Driver {
	case "mongo":
		mongoDB, err := database.NewMongoConnection(cfg.Mongo)
		if err != nil {
			slog.Error("Failed to connect to MongoDB", "error", err)
			os.Exit(1)
		}
		defer mongoDB.Close(context.Background())

		repo := mongo.NewMessageRepository(mongoDB)
		if err := repo.EnsureIndexes(context.Background()); err != nil {
			slog.Error("Failed to create MongoDB indexes", "error", err)
			os.Exit(1)
		}
		store, history = repo, repo
		healthChecks["mongo"] = mongoDB
	default:
		repo := postgres.NewMessageRepository(db)
		store, history = repo, repo
	}

	// Initialize services
	userRepo := postgres.NewUserRepository(db)
	redisService := services.NewRedisService(redisClient)
	authService := services.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.ExpirationTime)
	presenceService := services.NewPresenceService(userRepo, redisService)

	hubCfg := websocket.HubConfig{
		HistoryLimit:     cfg.Chat.HistoryLimit,
		MaxContentLength: cfg.Chat.MaxContentLength,
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := services.NewKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			slog.Error("Failed to connect to Kafka", "brokers", cfg.Kafka.Brokers, "error", err)
			os.Exit(1)
		}
		publisher := services.NewKafkaPublisher(producer, cfg.Kafka.Topic)
		defer publisher.Close()
		hubCfg.Sink = publisher
		slog.Info("Publishing message events", "topic", cfg.Kafka.Topic)
	}

	hub := websocket.NewHub(store, presenceService, hubCfg)

	gin.SetMode(gin.ReleaseMode)
	router := routes.NewRouter(hub, authService, redisService, history, healthChecks, cfg.Chat)
	router.SetupRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by server.Shutdown.
	// Their presence cleanup must finish before Redis and the database close.
	if err := hub.Shutdown(ctx); err != nil {
		slog.Error("Hub did not drain", "error", err)
	}

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
