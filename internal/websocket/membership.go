package websocket

import "sync"

// Member is a single membership entry: one connection in one room.
type Member struct {
	ConnID   string
	UserID   string
	Username string
	Avatar   string
	Room     string
}

// MembershipIndex maps connections to rooms. A connection is in at most one
// room; the room and user indexes are updated under the same lock as the
// primary entry so readers never see a partial update.
type MembershipIndex struct {
	mu     sync.RWMutex
	byConn map[string]Member
	byRoom map[string]map[string]struct{}
	byUser map[string]map[string]struct{}
}

func NewMembershipIndex() *MembershipIndex {
	return &MembershipIndex{
		byConn: make(map[string]Member),
		byRoom: make(map[string]map[string]struct{}),
		byUser: make(map[string]map[string]struct{}),
	}
}

// Join inserts member, replacing any prior entry for the same connection.
// The replaced entry is returned when one existed.
func (m *MembershipIndex) Join(member Member) (Member, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, had := m.removeLocked(member.ConnID)

	m.byConn[member.ConnID] = member
	addToSet(m.byRoom, member.Room, member.ConnID)
	addToSet(m.byUser, member.UserID, member.ConnID)

	return prev, had
}

// Leave removes the entry for connID and returns it.
func (m *MembershipIndex) Leave(connID string) (Member, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(connID)
}

func (m *MembershipIndex) removeLocked(connID string) (Member, bool) {
	member, ok := m.byConn[connID]
	if !ok {
		return Member{}, false
	}

	delete(m.byConn, connID)
	removeFromSet(m.byRoom, member.Room, connID)
	removeFromSet(m.byUser, member.UserID, connID)

	return member, true
}

func (m *MembershipIndex) Lookup(connID string) (Member, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	member, ok := m.byConn[connID]
	return member, ok
}

// MembersOf returns a point-in-time snapshot of the entries in room.
func (m *MembershipIndex) MembersOf(room string) []Member {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conns := m.byRoom[room]
	members := make([]Member, 0, len(conns))
	for connID := range conns {
		members = append(members, m.byConn[connID])
	}
	return members
}

func (m *MembershipIndex) ConnectionsOf(room string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return setKeys(m.byRoom[room])
}

// ConnectionsOfUser returns every joined connection of userID, in any room.
func (m *MembershipIndex) ConnectionsOfUser(userID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return setKeys(m.byUser[userID])
}

// UsernameIn resolves the display name of userID among the members of room.
func (m *MembershipIndex) UsernameIn(room, userID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for connID := range m.byUser[userID] {
		if member := m.byConn[connID]; member.Room == room {
			return member.Username, true
		}
	}
	return "", false
}

// Stats reports the number of non-empty rooms and joined connections.
func (m *MembershipIndex) Stats() (rooms, members int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byRoom), len(m.byConn)
}

func addToSet(sets map[string]map[string]struct{}, key, value string) {
	set, ok := sets[key]
	if !ok {
		set = make(map[string]struct{})
		sets[key] = set
	}
	set[value] = struct{}{}
}

// removeFromSet drops empty sets so rooms with no members disappear.
func removeFromSet(sets map[string]map[string]struct{}, key, value string) {
	set, ok := sets[key]
	if !ok {
		return
	}
	delete(set, value)
	if len(set) == 0 {
		delete(sets, key)
	}
}

func setKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	return keys
}
