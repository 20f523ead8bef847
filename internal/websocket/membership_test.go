package websocket

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roomsContaining(idx *MembershipIndex, connID string, rooms []string) int {
	n := 0
	for _, room := range rooms {
		for _, c := range idx.ConnectionsOf(room) {
			if c == connID {
				n++
			}
		}
	}
	return n
}

func TestMembershipIndex_AtMostOneRoom(t *testing.T) {
	idx := NewMembershipIndex()
	rooms := []string{"general", "random", "dev"}

	for i, room := range append(rooms, rooms...) {
		prev, had := idx.Join(Member{ConnID: "c1", UserID: "u1", Room: room})
		assert.Equal(t, i > 0, had)
		if had {
			assert.NotEqual(t, "", prev.Room)
		}
		assert.Equal(t, 1, roomsContaining(idx, "c1", rooms))
	}

	member, ok := idx.Leave("c1")
	require.True(t, ok)
	assert.Equal(t, "dev", member.Room)
	assert.Equal(t, 0, roomsContaining(idx, "c1", rooms))

	_, ok = idx.Leave("c1")
	assert.False(t, ok)

	_, ok = idx.Lookup("c1")
	assert.False(t, ok)
}

func TestMembershipIndex_ConcurrentJoins(t *testing.T) {
	idx := NewMembershipIndex()
	const n = 200

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			idx.Join(Member{ConnID: fmt.Sprintf("c%d", i), UserID: fmt.Sprintf("u%d", i), Room: "general"})
			idx.MembersOf("general")
		}(i)
	}
	wg.Wait()

	members := idx.MembersOf("general")
	assert.Len(t, members, n)

	seen := make(map[string]bool)
	for _, m := range members {
		seen[m.ConnID] = true
	}
	assert.Len(t, seen, n)

	rooms, total := idx.Stats()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, n, total)
}

func TestMembershipIndex_ConcurrentJoinLeave(t *testing.T) {
	idx := NewMembershipIndex()
	rooms := []string{"a", "b", "c"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			connID := fmt.Sprintf("c%d", i)
			for j := 0; j < 20; j++ {
				idx.Join(Member{ConnID: connID, UserID: connID, Room: rooms[(i+j)%len(rooms)]})
				if j%3 == 0 {
					idx.Leave(connID)
				}
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		assert.LessOrEqual(t, roomsContaining(idx, fmt.Sprintf("c%d", i), rooms), 1)
	}
}

func TestMembershipIndex_UserLookups(t *testing.T) {
	idx := NewMembershipIndex()
	idx.Join(Member{ConnID: "c1", UserID: "u1", Username: "alice", Room: "general"})
	idx.Join(Member{ConnID: "c2", UserID: "u1", Username: "alice", Room: "random"})
	idx.Join(Member{ConnID: "c3", UserID: "u2", Username: "bob", Room: "general"})

	assert.ElementsMatch(t, []string{"c1", "c2"}, idx.ConnectionsOfUser("u1"))

	name, ok := idx.UsernameIn("random", "u1")
	assert.True(t, ok)
	assert.Equal(t, "alice", name)

	_, ok = idx.UsernameIn("random", "u2")
	assert.False(t, ok)

	idx.Leave("c2")
	idx.Leave("c1")
	assert.Empty(t, idx.ConnectionsOfUser("u1"))
	assert.Empty(t, idx.MembersOf("random"))

	rooms, members := idx.Stats()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 1, members)
}
