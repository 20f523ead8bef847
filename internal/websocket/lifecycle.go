package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"roomchat/internal/models"
)

// Connect registers a live connection. It is not in any room until Join.
func (h *Hub) Connect(conn Connection, identity Identity) error {
	if identity.UserID == "" {
		return fmt.Errorf("connection %s: %w", conn.ID(), ErrUnauthenticated)
	}

	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		return fmt.Errorf("connection %s: %w", conn.ID(), ErrHubClosed)
	}
	if _, exists := h.sessions[conn.ID()]; !exists {
		h.active.Add(1)
	}
	h.sessions[conn.ID()] = &session{conn: conn, identity: identity}
	total := len(h.sessions)
	h.mu.Unlock()

	slog.Info("Client registered", "connID", conn.ID(), "userID", identity.UserID, "totalConnections", total)
	return nil
}

// Join moves connID into room, leaving its current room first. Joining the
// room the connection is already in only resends the room snapshot.
//
// A history load failure does not undo the join: the snapshot is sent with
// empty history and the error is returned.
func (h *Hub) Join(ctx context.Context, connID, room string) error {
	s, ok := h.session(connID)
	if !ok {
		return fmt.Errorf("join: %w", ErrUnauthenticated)
	}

	room = strings.TrimSpace(room)
	if room == "" {
		room = models.DefaultRoom
	}
	if n := utf8.RuneCountInString(room); n > models.MaxRoomLength {
		return fmt.Errorf("room name of %d characters exceeds %d: %w", n, models.MaxRoomLength, ErrInvalidEvent)
	}

	if current, ok := h.index.Lookup(connID); ok {
		if current.Room == room {
			return h.sendRoomJoined(ctx, connID, room)
		}
		h.leaveRoom(connID)
	}

	member := Member{
		ConnID:   connID,
		UserID:   s.identity.UserID,
		Username: s.identity.Username,
		Avatar:   s.identity.Avatar,
		Room:     room,
	}
	h.index.Join(member)
	h.setPresence(ctx, member.UserID, true)

	err := h.sendRoomJoined(ctx, connID, room)

	h.broadcast(room, EventUserJoined, UserJoinedPayload{
		User:    member.userInfo(),
		Message: member.Username + " joined the room",
	}, connID)
	h.broadcastUserList(room)

	slog.Info("Client joined room", "connID", connID, "userID", member.UserID, "room", room)
	return err
}

func (h *Hub) sendRoomJoined(ctx context.Context, connID, room string) error {
	var loadErr error

	history := make([]MessagePayload, 0)
	msgs, err := h.store.LoadRecent(ctx, room, h.historyLimit)
	if err != nil {
		loadErr = fmt.Errorf("load history of %s: %w: %w", room, ErrPersistence, err)
	} else {
		for _, msg := range msgs {
			history = append(history, NewMessagePayload(msg))
		}
	}

	h.emit([]string{connID}, EventRoomJoined, RoomJoinedPayload{
		Room:    room,
		History: history,
		Members: h.roomMembers(room),
	})
	return loadErr
}

// Leave removes connID from its room without touching durable presence.
func (h *Hub) Leave(ctx context.Context, connID string) error {
	if _, ok := h.leaveRoom(connID); !ok {
		return fmt.Errorf("leave: %w", ErrNotInRoom)
	}
	return nil
}

// leaveRoom drops the membership and typing entries of connID and tells the
// old room. When the user still has another connection in that room only the
// member list is refreshed. It reports the removed membership.
func (h *Hub) leaveRoom(connID string) (Member, bool) {
	member, ok := h.index.Leave(connID)
	if !ok {
		return Member{}, false
	}

	// Another connection of the same user keeps them in the room.
	if _, stillIn := h.index.UsernameIn(member.Room, member.UserID); stillIn {
		h.broadcastUserList(member.Room)
		slog.Info("Client left room", "connID", connID, "userID", member.UserID, "room", member.Room, "userStillInRoom", true)
		return member, true
	}

	h.typing.Remove(member.Room, member.UserID)

	h.broadcast(member.Room, EventUserLeft, UserLeftPayload{
		UserID:  member.UserID,
		Message: member.Username + " left the room",
	})
	h.broadcastUserList(member.Room)
	h.broadcastTypingUsers(member.Room)

	slog.Info("Client left room", "connID", connID, "userID", member.UserID, "room", member.Room)
	return member, true
}

// Disconnect is the terminal transition of a connection. Unknown connections
// are ignored and a connection that never joined produces no broadcasts and
// no presence update. Cleanup always runs to completion.
func (h *Hub) Disconnect(ctx context.Context, connID string) {
	h.mu.Lock()
	_, ok := h.sessions[connID]
	delete(h.sessions, connID)
	total := len(h.sessions)
	h.mu.Unlock()

	if !ok {
		return
	}
	defer h.active.Done()

	member, joined := h.leaveRoom(connID)
	if joined && len(h.index.ConnectionsOfUser(member.UserID)) == 0 {
		h.setPresence(ctx, member.UserID, false)
	}

	slog.Info("Client unregistered", "connID", connID, "totalConnections", total)
}
