package routes

import (
	"time"

	"roomchat/internal/api/handlers"
	"roomchat/internal/api/middleware"
	"roomchat/internal/config"
	"roomchat/internal/services"
	"roomchat/internal/websocket"

	_ "roomchat/docs"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Router struct {
	engine        *gin.Engine
	wsHandler     *handlers.WSHandler
	authHandler   *handlers.AuthHandler
	healthHandler *handlers.HealthHandler
	msgHandler    *handlers.MessageHandler
	rateLimitMW   *middleware.RateLimitMiddleware
	authMW        *middleware.AuthMiddleware
	chat          config.ChatConfig
}

func NewRouter(
	hub *websocket.Hub,
	authService *services.AuthService,
	redisService *services.RedisService,
	history handlers.ConversationStore,
	healthChecks map[string]handlers.Pinger,
	chat config.ChatConfig,
) *Router {
	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(chat.AllowedOrigins))
	engine.Use(middleware.LogApi())

	return &Router{
		engine:        engine,
		wsHandler:     handlers.NewWSHandler(hub, chat.AllowedOrigins, chat.SendBufferSize),
		authHandler:   handlers.NewAuthHandler(authService),
		healthHandler: handlers.NewHealthHandler(hub, redisService, healthChecks),
		msgHandler:    handlers.NewMessageHandler(history, redisService),
		rateLimitMW:   middleware.NewRateLimitMiddleware(redisService),
		authMW:        middleware.NewAuthMiddleware(authService),
		chat:          chat,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.engine.Group("/api/v1")

	api.GET("/health", r.healthHandler.Health)

	// WebSocket endpoint with authentication and rate limiting
	api.GET("/ws",
		r.authMW.RequireIdentity(),
		r.rateLimitMW.WebSocketRateLimit(r.chat.ConnectRateLimit, r.chat.ConnectWindow),
		r.wsHandler.HandleWebSocket,
	)

	messageRoutes := api.Group("/messages")
	messageRoutes.Use(r.authMW.RequireIdentity())
	{
		messageRoutes.GET("/private/:userId", r.msgHandler.PrivateHistory)
	}

	authRoutes := api.Group("/auth")
	authRoutes.Use(r.rateLimitMW.RateLimitIP(50, time.Minute)) // 50 requests per minute per IP
	{
		authRoutes.POST("/login", r.authHandler.Login)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
