package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"roomchat/internal/models"
)

func (h *Hub) validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("empty message: %w", ErrInvalidContent)
	}
	if n := utf8.RuneCountInString(content); n > h.maxContent {
		return fmt.Errorf("message of %d characters exceeds %d: %w", n, h.maxContent, ErrInvalidContent)
	}
	return nil
}

// SendRoomMessage persists content as a message in room and delivers it to
// every connection in room, the sender included.
func (h *Hub) SendRoomMessage(ctx context.Context, connID, room, content string) error {
	member, ok := h.index.Lookup(connID)
	if !ok || member.Room != room {
		return fmt.Errorf("send to %q: %w", room, ErrNotInRoom)
	}
	if err := h.validateContent(content); err != nil {
		return err
	}

	msg := models.NewRoomMessage(member.UserID, room, content, h.now())
	msg.Sender = models.User{ID: member.UserID, Username: member.Username, Avatar: member.Avatar}

	id, err := h.store.SaveMessage(ctx, msg)
	if err != nil {
		return fmt.Errorf("save message: %w: %w", ErrPersistence, err)
	}
	msg.ID = id

	h.broadcast(room, EventMessage, NewMessagePayload(msg))
	h.publish(ctx, msg)

	// Sending ends composition.
	if h.typing.Remove(room, member.UserID) {
		h.broadcastTypingUsers(room)
	}
	return nil
}

// SendPrivateMessage persists a message to recipientID, delivers it to the
// recipient's joined connections and echoes it to the sender. An offline
// recipient only gets the durable record.
func (h *Hub) SendPrivateMessage(ctx context.Context, connID, recipientID, content string) error {
	s, ok := h.session(connID)
	if !ok {
		return fmt.Errorf("private message: %w", ErrUnauthenticated)
	}
	if strings.TrimSpace(recipientID) == "" {
		return fmt.Errorf("private message without recipient: %w", ErrInvalidEvent)
	}
	if err := h.validateContent(content); err != nil {
		return err
	}

	msg := models.NewPrivateMessage(s.identity.UserID, recipientID, content, h.now())
	msg.Sender = models.User{ID: s.identity.UserID, Username: s.identity.Username, Avatar: s.identity.Avatar}

	id, err := h.store.SaveMessage(ctx, msg)
	if err != nil {
		return fmt.Errorf("save private message: %w: %w", ErrPersistence, err)
	}
	msg.ID = id

	targets := without(h.index.ConnectionsOfUser(recipientID), []string{connID})
	targets = append(targets, connID)
	h.emit(targets, EventPrivateMessage, NewMessagePayload(msg))
	h.publish(ctx, msg)

	return nil
}

// MarkRead appends a read receipt and announces it. Room messages require the
// reader to be in the message's room; private messages require the reader to
// be one of the two parties.
func (h *Hub) MarkRead(ctx context.Context, connID, messageID string) error {
	s, ok := h.session(connID)
	if !ok {
		return fmt.Errorf("read receipt: %w", ErrUnauthenticated)
	}

	msg, err := h.store.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			return fmt.Errorf("read receipt for %s: %w", messageID, err)
		}
		return fmt.Errorf("load message %s: %w: %w", messageID, ErrPersistence, err)
	}

	userID := s.identity.UserID
	var targets []string
	if msg.IsPrivate {
		if userID != msg.SenderID && userID != msg.Recipient() {
			return fmt.Errorf("read receipt for %s: %w", messageID, ErrNotInRoom)
		}
		targets = append(h.index.ConnectionsOfUser(msg.SenderID), h.index.ConnectionsOfUser(msg.Recipient())...)
		targets = append(without(targets, []string{connID}), connID)
	} else {
		member, ok := h.index.Lookup(connID)
		if !ok || member.Room != msg.RoomName() {
			return fmt.Errorf("read receipt for %s: %w", messageID, ErrNotInRoom)
		}
		targets = h.index.ConnectionsOf(member.Room)
	}

	at := h.now()
	if err := h.store.AppendReadBy(ctx, messageID, userID, at); err != nil {
		return fmt.Errorf("append read receipt: %w: %w", ErrPersistence, err)
	}

	h.emit(dedupe(targets), EventReadReceipt, ReadReceiptPayload{
		MessageID: messageID,
		UserID:    userID,
		Timestamp: at,
	})
	return nil
}

// SetTyping updates the typing set of the connection's room and always
// broadcasts the resulting names, even when nothing changed. Rooms the user
// stopped typing in as a side effect get a refreshed list too.
func (h *Hub) SetTyping(ctx context.Context, connID string, isTyping bool) error {
	member, ok := h.index.Lookup(connID)
	if !ok {
		return fmt.Errorf("typing: %w", ErrNotInRoom)
	}

	changed, cleared := h.typing.Set(member.Room, member.UserID, isTyping)
	if !changed {
		slog.Debug("Redundant typing signal", "userID", member.UserID, "room", member.Room, "isTyping", isTyping)
	}
	for _, room := range cleared {
		h.broadcastTypingUsers(room)
	}
	h.broadcastTypingUsers(member.Room)
	return nil
}

func (h *Hub) publish(ctx context.Context, msg *models.Message) {
	if h.sink == nil {
		return
	}
	if err := h.sink.PublishMessage(ctx, msg); err != nil {
		slog.Warn("Failed to publish message event", "messageID", msg.ID, "error", err)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
