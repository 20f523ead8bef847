package handlers

import (
	"net/http"

	"roomchat/internal/api/middleware"
	"roomchat/internal/models"
	"roomchat/internal/websocket"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
)

type WSHandler struct {
	hub        *websocket.Hub
	upgrader   *gorilla.Upgrader
	bufferSize int
}

func NewWSHandler(hub *websocket.Hub, allowedOrigins []string, bufferSize int) *WSHandler {
	return &WSHandler{
		hub:        hub,
		upgrader:   websocket.NewUpgrader(allowedOrigins),
		bufferSize: bufferSize,
	}
}

// HandleWebSocket godoc
// @Summary WebSocket connection
// @Description Establish a WebSocket connection for real-time room chat. Frames are JSON envelopes {type, data, timestamp}.
// @Tags websocket
// @Param token query string true "Session token returned by login"
// @Success 101 "Switching Protocols - WebSocket connection established"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Failure 429 {object} models.ErrorResponse "Too many connection attempts"
// @Router /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Code:    http.StatusUnauthorized,
			Message: "Unauthorized",
		})
		return
	}

	websocket.ServeWS(h.hub, h.upgrader, c.Writer, c.Request, identity, h.bufferSize)
}
