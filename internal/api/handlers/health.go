package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"roomchat/internal/websocket"

	"github.com/gin-gonic/gin"
)

// Pinger is a dependency whose liveness is reported by the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OnlineUsers lists users with durable online presence.
type OnlineUsers interface {
	GetOnlineUsers(ctx context.Context) ([]string, error)
}

type HealthHandler struct {
	hub    *websocket.Hub
	online OnlineUsers
	checks map[string]Pinger
}

func NewHealthHandler(hub *websocket.Hub, online OnlineUsers, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{hub: hub, online: online, checks: checks}
}

// HealthResponse is the body of the health check.
type HealthResponse struct {
	Status       string             `json:"status"`
	Hub          websocket.HubStats `json:"hub"`
	OnlineUsers  int                `json:"onlineUsers"`
	Dependencies map[string]string  `json:"dependencies,omitempty"`
}

// Health godoc
// @Summary Health check
// @Description Reports dependency status and live connection counters
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:       "ok",
		Hub:          h.hub.Stats(),
		Dependencies: make(map[string]string, len(h.checks)),
	}

	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Dependencies[name] = err.Error()
			continue
		}
		resp.Dependencies[name] = "ok"
	}

	if h.online != nil {
		if users, err := h.online.GetOnlineUsers(ctx); err == nil {
			resp.OnlineUsers = len(users)
		} else {
			slog.Warn("Failed to count online users", "error", err)
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
