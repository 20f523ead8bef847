package websocket

import (
	"sort"
	"sync"
)

// TypingSet holds, per room, the user ids currently composing a message.
// A user is typing in at most one room.
type TypingSet struct {
	mu    sync.Mutex
	rooms map[string]map[string]struct{}
}

func NewTypingSet() *TypingSet {
	return &TypingSet{
		rooms: make(map[string]map[string]struct{}),
	}
}

// Set flags or clears userID in room and reports whether room's set changed.
// Flagging a user clears them from every other room; those rooms are returned
// in cleared.
func (t *TypingSet) Set(room, userID string, typing bool) (changed bool, cleared []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !typing {
		return t.removeLocked(room, userID), nil
	}

	for other := range t.rooms {
		if other != room && t.removeLocked(other, userID) {
			cleared = append(cleared, other)
		}
	}
	sort.Strings(cleared)

	if _, ok := t.rooms[room][userID]; ok {
		return false, cleared
	}
	addToSet(t.rooms, room, userID)
	return true, cleared
}

// Remove clears userID from room and reports whether it was present.
func (t *TypingSet) Remove(room, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.removeLocked(room, userID)
}

func (t *TypingSet) removeLocked(room, userID string) bool {
	if _, ok := t.rooms[room][userID]; !ok {
		return false
	}
	removeFromSet(t.rooms, room, userID)
	return true
}

// Users returns the typing user ids of room, sorted.
func (t *TypingSet) Users(room string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	users := setKeys(t.rooms[room])
	sort.Strings(users)
	return users
}
