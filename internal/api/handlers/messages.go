package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"roomchat/internal/api/middleware"
	"roomchat/internal/models"
	"roomchat/internal/websocket"

	"github.com/gin-gonic/gin"
)

const (
	defaultHistoryPage = 50
	maxHistoryPage     = 100
)

// ConversationStore loads private conversations. Both message repositories
// implement it.
type ConversationStore interface {
	FindPrivateMessages(ctx context.Context, userID, otherID string, limit int) ([]*models.Message, error)
}

// PeerPresence reports the live presence of the other party.
type PeerPresence interface {
	IsUserOnline(ctx context.Context, userID string) (bool, error)
	GetLastSeen(ctx context.Context, userID string) (time.Time, error)
}

type MessageHandler struct {
	history  ConversationStore
	presence PeerPresence
}

func NewMessageHandler(history ConversationStore, presence PeerPresence) *MessageHandler {
	return &MessageHandler{history: history, presence: presence}
}

// PrivateHistoryResponse is a page of a private conversation plus the peer's
// presence.
type PrivateHistoryResponse struct {
	UserID   string                     `json:"userId"`
	Online   bool                       `json:"online"`
	LastSeen *time.Time                 `json:"lastSeen,omitempty"`
	Messages []websocket.MessagePayload `json:"messages"`
}

// PrivateHistory godoc
// @Summary Private conversation history
// @Description Returns the most recent private messages between the caller and another user, oldest first
// @Tags messages
// @Produce json
// @Param userId path string true "Other user ID"
// @Param limit query int false "Page size (default 50, max 100)"
// @Success 200 {object} PrivateHistoryResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /messages/private/{userId} [get]
func (h *MessageHandler) PrivateHistory(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Code:    http.StatusUnauthorized,
			Message: "Unauthorized",
			Details: "missing identity",
		})
		return
	}

	otherID := c.Param("userId")
	if otherID == "" || otherID == identity.UserID {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid user",
			Details: "userId must name another user",
		})
		return
	}

	limit := defaultHistoryPage
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Code:    http.StatusBadRequest,
				Message: "Invalid limit",
				Details: "limit must be a positive integer",
			})
			return
		}
		limit = min(n, maxHistoryPage)
	}

	ctx := c.Request.Context()
	msgs, err := h.history.FindPrivateMessages(ctx, identity.UserID, otherID, limit)
	if err != nil {
		slog.Error("Failed to load private history", "userID", identity.UserID, "otherID", otherID, "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to load messages",
			Details: "An unexpected error occurred.",
		})
		return
	}

	resp := PrivateHistoryResponse{
		UserID:   otherID,
		Messages: make([]websocket.MessagePayload, 0, len(msgs)),
	}
	for _, msg := range msgs {
		resp.Messages = append(resp.Messages, websocket.NewMessagePayload(msg))
	}
	h.fillPresence(ctx, &resp)

	c.JSON(http.StatusOK, resp)
}

// fillPresence is best effort; the history is returned either way.
func (h *MessageHandler) fillPresence(ctx context.Context, resp *PrivateHistoryResponse) {
	if h.presence == nil {
		return
	}

	online, err := h.presence.IsUserOnline(ctx, resp.UserID)
	if err != nil {
		slog.Warn("Failed to read presence", "userID", resp.UserID, "error", err)
		return
	}
	resp.Online = online

	lastSeen, err := h.presence.GetLastSeen(ctx, resp.UserID)
	if err != nil {
		slog.Warn("Failed to read last seen", "userID", resp.UserID, "error", err)
		return
	}
	if !lastSeen.IsZero() {
		resp.LastSeen = &lastSeen
	}
}
