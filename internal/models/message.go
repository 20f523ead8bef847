package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// MaxContentLength is the upper bound on message content, in characters.
	// It matches the width of the content column.
	MaxContentLength = 500

	// MaxRoomLength is the longest room name, in characters.
	MaxRoomLength = 100

	// DefaultRoom is joined when a join request names no room.
	DefaultRoom = "general"
)

var ErrInvalidTarget = errors.New("exactly one of room or recipient must be set")

/** --------------------ENTITIES-------------------- */
// Message is immutable once saved, apart from its read-by list which only
// grows.
type Message struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SenderID    string    `gorm:"type:varchar(36);not null;index" json:"senderId"`
	Room        *string   `gorm:"size:100;index:idx_messages_room_created,priority:1" json:"room,omitempty"`
	RecipientID *string   `gorm:"type:varchar(36);index:idx_messages_recipient_created,priority:1" json:"recipientId,omitempty"`
	IsPrivate   bool      `gorm:"not null;default:false" json:"isPrivate"`
	Content     string    `gorm:"size:500;not null" json:"content"`
	CreatedAt   time.Time `gorm:"index:idx_messages_room_created,priority:2;index:idx_messages_recipient_created,priority:2" json:"createdAt"`

	Sender User          `gorm:"foreignKey:SenderID" json:"sender"`
	ReadBy []ReadReceipt `gorm:"foreignKey:MessageID" json:"readBy"`
}

// ReadReceipt records that a user has read a message. Receipts are never
// removed; the (message, user) pair is unique.
type ReadReceipt struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	MessageID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_read_receipts_message_user,priority:1" json:"messageId"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_read_receipts_message_user,priority:2" json:"userId"`
	ReadAt    time.Time `gorm:"not null" json:"readAt"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return m.Validate()
}

// Validate checks that exactly one of Room or RecipientID is set
func (m *Message) Validate() error {
	if (m.Room == nil) == (m.RecipientID == nil) {
		return ErrInvalidTarget
	}
	if m.IsPrivate != (m.RecipientID != nil) {
		return ErrInvalidTarget
	}
	return nil
}

// RoomName returns the room of a room message, or "" for a private one.
func (m *Message) RoomName() string {
	if m.Room == nil {
		return ""
	}
	return *m.Room
}

// Recipient returns the recipient of a private message, or "".
func (m *Message) Recipient() string {
	if m.RecipientID == nil {
		return ""
	}
	return *m.RecipientID
}

// NewRoomMessage builds an unsaved room message.
func NewRoomMessage(senderID, room, content string, at time.Time) *Message {
	return &Message{
		SenderID:  senderID,
		Room:      &room,
		Content:   content,
		CreatedAt: at,
	}
}

// NewPrivateMessage builds an unsaved private message.
func NewPrivateMessage(senderID, recipientID, content string, at time.Time) *Message {
	return &Message{
		SenderID:    senderID,
		RecipientID: &recipientID,
		IsPrivate:   true,
		Content:     content,
		CreatedAt:   at,
	}
}
