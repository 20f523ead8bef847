package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"roomchat/internal/models"
)

const (
	defaultHistoryLimit = 50

	maxEscapedRuneBytes = 12
	envelopeOverhead    = 1024
)

type HubConfig struct {
	HistoryLimit     int
	MaxContentLength int
	// Sink is optional; when nil persisted messages are not published.
	Sink MessageSink
}

// Hub coordinates live connections: room membership, typing state, presence
// lists and message fan-out. All methods are safe for concurrent use; no lock
// is held while calling the store or writing to a connection.
type Hub struct {
	store    MessageStore
	presence PresenceStore
	sink     MessageSink

	index  *MembershipIndex
	typing *TypingSet

	mu       sync.RWMutex
	sessions map[string]*session
	closing  bool
	// active counts registered sessions whose Disconnect has not finished.
	active sync.WaitGroup

	historyLimit int
	maxContent   int
	now          func() time.Time
}

type session struct {
	conn     Connection
	identity Identity
}

// HubStats is a point-in-time view of the hub.
type HubStats struct {
	Connections int `json:"connections"`
	Members     int `json:"members"`
	Rooms       int `json:"rooms"`
}

func NewHub(store MessageStore, presence PresenceStore, cfg HubConfig) *Hub {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.MaxContentLength <= 0 || cfg.MaxContentLength > models.MaxContentLength {
		cfg.MaxContentLength = models.MaxContentLength
	}

	return &Hub{
		store:        store,
		presence:     presence,
		sink:         cfg.Sink,
		index:        NewMembershipIndex(),
		typing:       NewTypingSet(),
		sessions:     make(map[string]*session),
		historyLimit: cfg.HistoryLimit,
		maxContent:   cfg.MaxContentLength,
		now:          time.Now,
	}
}

// ReadLimit is the largest inbound frame a transport should accept: content
// at the configured maximum written entirely as \uXXXX surrogate pairs, plus
// room for the envelope.
func (h *Hub) ReadLimit() int64 {
	return int64(h.maxContent)*maxEscapedRuneBytes + envelopeOverhead
}

// Membership exposes the index for read-only inspection.
func (h *Hub) Membership() *MembershipIndex {
	return h.index
}

func (h *Hub) Stats() HubStats {
	rooms, members := h.index.Stats()

	h.mu.RLock()
	connections := len(h.sessions)
	h.mu.RUnlock()

	return HubStats{
		Connections: connections,
		Members:     members,
		Rooms:       rooms,
	}
}

// CloseAll closes every registered connection. Each transport then reports
// its own Disconnect.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]Connection, 0, len(h.sessions))
	for _, s := range h.sessions {
		conns = append(conns, s.conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			slog.Debug("Error closing connection", "connID", conn.ID(), "error", err)
		}
	}
	slog.Info("Closed all connections", "count", len(conns))
}

// Shutdown closes every connection and refuses new ones. It returns once each
// closed connection has finished its disconnect cleanup, or when ctx is done.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	h.mu.Unlock()

	h.CloseAll()

	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Hub drained")
		return nil
	case <-ctx.Done():
		slog.Warn("Hub shutdown timed out", "remaining", h.Stats().Connections)
		return ctx.Err()
	}
}

func (h *Hub) session(connID string) (*session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[connID]
	return s, ok
}

// =============================================================================
// Fan-out
// =============================================================================

// sendTo delivers frame to each connection. A failed connection is logged and
// skipped.
func (h *Hub) sendTo(connIDs []string, frame []byte) {
	if len(connIDs) == 0 {
		return
	}

	h.mu.RLock()
	conns := make([]Connection, 0, len(connIDs))
	for _, id := range connIDs {
		if s, ok := h.sessions[id]; ok {
			conns = append(conns, s.conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.Send(frame); err != nil {
			slog.Warn("Failed to deliver event", "connID", conn.ID(), "error", errors.Join(ErrDelivery, err))
		}
	}
}

func (h *Hub) emit(connIDs []string, t EventType, data interface{}) {
	frame, err := encodeEvent(t, data)
	if err != nil {
		slog.Error("Failed to encode event", "type", t, "error", err)
		return
	}
	h.sendTo(connIDs, frame)
}

// broadcast sends an event to every connection in room except the excluded ones.
func (h *Hub) broadcast(room string, t EventType, data interface{}, except ...string) {
	targets := h.index.ConnectionsOf(room)
	if len(except) > 0 {
		targets = without(targets, except)
	}
	h.emit(targets, t, data)
}

func (h *Hub) sendError(connID string, err error) {
	h.emit([]string{connID}, EventError, ErrorPayload{
		Code:   ErrorCode(err),
		Reason: err.Error(),
	})
}

// =============================================================================
// Presence Publisher
// =============================================================================

// roomMembers returns the users of room, one entry per user.
func (h *Hub) roomMembers(room string) []UserInfo {
	members := h.index.MembersOf(room)

	seen := make(map[string]struct{}, len(members))
	users := make([]UserInfo, 0, len(members))
	for _, m := range members {
		if _, ok := seen[m.UserID]; ok {
			continue
		}
		seen[m.UserID] = struct{}{}
		users = append(users, m.userInfo())
	}
	return users
}

func (h *Hub) broadcastUserList(room string) {
	h.broadcast(room, EventUserList, UserListPayload{
		Room:    room,
		Members: h.roomMembers(room),
	})
}

// typingUsers resolves the typing set of room to display names. Users without
// a live membership in room are skipped.
func (h *Hub) typingUsers(room string) []string {
	ids := h.typing.Users(room)
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := h.index.UsernameIn(room, id); ok {
			names = append(names, name)
		}
	}
	return names
}

func (h *Hub) broadcastTypingUsers(room string) {
	h.broadcast(room, EventTypingUsers, TypingUsersPayload{
		Room:  room,
		Names: h.typingUsers(room),
	})
}

// setPresence records durable presence. Failures never abort the caller.
func (h *Hub) setPresence(ctx context.Context, userID string, online bool) {
	if h.presence == nil {
		return
	}
	if err := h.presence.SetPresence(ctx, userID, online, h.now()); err != nil {
		slog.Error("Failed to update presence", "userID", userID, "online", online,
			"error", errors.Join(ErrPersistence, err))
	}
}

func without(ids []string, except []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		skip := false
		for _, e := range except {
			if id == e {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, id)
		}
	}
	return out
}
