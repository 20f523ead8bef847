package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"roomchat/internal/models"
)

// EventType names an event carried over a connection.
type EventType string

// Inbound events
const (
	EventJoin           EventType = "join"
	EventLeave          EventType = "leave"
	EventMessage        EventType = "message"
	EventPrivateMessage EventType = "privateMessage"
	EventTyping         EventType = "typing"
	EventReadReceipt    EventType = "readReceipt"
)

// Outbound events. message, privateMessage and readReceipt are also sent
// back out under the same names.
const (
	EventRoomJoined  EventType = "roomJoined"
	EventUserJoined  EventType = "userJoined"
	EventUserLeft    EventType = "userLeft"
	EventUserList    EventType = "userList"
	EventTypingUsers EventType = "typingUsers"
	EventError       EventType = "error"
)

func (t EventType) String() string {
	return string(t)
}

// IsInbound reports whether t is accepted from a client.
func (t EventType) IsInbound() bool {
	switch t {
	case EventJoin, EventLeave, EventMessage, EventPrivateMessage, EventTyping, EventReadReceipt:
		return true
	default:
		return false
	}
}

// Envelope is the frame exchanged in both directions.
type Envelope struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// encodeEvent builds a complete outbound frame.
func encodeEvent(t EventType, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", t, err)
	}
	return json.Marshal(Envelope{
		Type:      t,
		Data:      raw,
		Timestamp: time.Now().UnixMilli(),
	})
}

/** -------------------- Inbound payloads -------------------- */

type JoinData struct {
	Room string `json:"room"`
}

// MessageData carries a room message. Room defaults to the sender's current room.
type MessageData struct {
	Room    string `json:"room,omitempty"`
	Content string `json:"content"`
}

type PrivateMessageData struct {
	RecipientID string `json:"recipientId"`
	Content     string `json:"content"`
}

type TypingData struct {
	IsTyping bool `json:"isTyping"`
}

type ReadReceiptData struct {
	MessageID string `json:"messageId"`
}

/** -------------------- Outbound payloads -------------------- */

type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

type ReadByEntry struct {
	UserID string    `json:"userId"`
	ReadAt time.Time `json:"readAt"`
}

type MessagePayload struct {
	ID        string        `json:"id"`
	Sender    UserInfo      `json:"sender"`
	Content   string        `json:"content"`
	Room      string        `json:"room,omitempty"`
	Recipient string        `json:"recipient,omitempty"`
	IsPrivate bool          `json:"isPrivate"`
	Timestamp time.Time     `json:"timestamp"`
	ReadBy    []ReadByEntry `json:"readBy"`
}

type RoomJoinedPayload struct {
	Room    string           `json:"room"`
	History []MessagePayload `json:"history"`
	Members []UserInfo       `json:"members"`
}

type UserJoinedPayload struct {
	User    UserInfo `json:"user"`
	Message string   `json:"message"`
}

type UserLeftPayload struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

type UserListPayload struct {
	Room    string     `json:"room"`
	Members []UserInfo `json:"members"`
}

type TypingUsersPayload struct {
	Room  string   `json:"room"`
	Names []string `json:"names"`
}

type ReadReceiptPayload struct {
	MessageID string    `json:"messageId"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorPayload struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// NewMessagePayload converts a stored message to its wire form.
func NewMessagePayload(msg *models.Message) MessagePayload {
	readBy := make([]ReadByEntry, 0, len(msg.ReadBy))
	for _, r := range msg.ReadBy {
		readBy = append(readBy, ReadByEntry{UserID: r.UserID, ReadAt: r.ReadAt})
	}

	return MessagePayload{
		ID: msg.ID,
		Sender: UserInfo{
			ID:       msg.SenderID,
			Username: msg.Sender.Username,
			Avatar:   msg.Sender.Avatar,
		},
		Content:   msg.Content,
		Room:      msg.RoomName(),
		Recipient: msg.Recipient(),
		IsPrivate: msg.IsPrivate,
		Timestamp: msg.CreatedAt,
		ReadBy:    readBy,
	}
}

func (m Member) userInfo() UserInfo {
	return UserInfo{ID: m.UserID, Username: m.Username, Avatar: m.Avatar}
}
