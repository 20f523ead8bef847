package websocket

import (
	"context"
	"time"

	"roomchat/internal/models"
)

// MessageStore is the durable record of messages and read receipts.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *models.Message) (string, error)
	// LoadRecent returns up to limit room messages in chronological order.
	LoadRecent(ctx context.Context, room string, limit int) ([]*models.Message, error)
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	AppendReadBy(ctx context.Context, messageID, userID string, at time.Time) error
}

// PresenceStore records the durable online flag and last-seen time of a user.
type PresenceStore interface {
	SetPresence(ctx context.Context, userID string, online bool, lastSeen time.Time) error
}

// MessageSink receives every persisted message after it has been fanned out.
type MessageSink interface {
	PublishMessage(ctx context.Context, msg *models.Message) error
}

// Connection is one live transport session. Send must not block.
type Connection interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// Identity is the already authenticated user behind a connection.
type Identity struct {
	UserID   string
	Username string
	Avatar   string
}
