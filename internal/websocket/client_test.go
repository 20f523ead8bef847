package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, h *Hub) string {
	t.Helper()
	upgrader := NewUpgrader(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.URL.Query().Get("user")
		ServeWS(h, upgrader, w, r, Identity{UserID: user, Username: user}, 16)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url, user string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?user="+user, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeEvent(t *testing.T, conn *websocket.Conn, typ EventType, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Envelope{Type: typ, Data: raw}))
}

// readUntil skips frames until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ EventType) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var env Envelope
		require.NoError(t, conn.ReadJSON(&env))
		if env.Type == typ {
			return env
		}
	}
}

func TestServeWS_RoundTrip(t *testing.T) {
	h := newTestHub(t)
	url := newTestServer(t, h.Hub)

	alice := dial(t, url, "alice")
	writeEvent(t, alice, EventJoin, JoinData{Room: "general"})
	readUntil(t, alice, EventRoomJoined)

	bob := dial(t, url, "bob")
	writeEvent(t, bob, EventJoin, JoinData{Room: "general"})
	joined := readUntil(t, bob, EventRoomJoined)
	assert.ElementsMatch(t, []string{"alice", "bob"}, memberIDs(decode[RoomJoinedPayload](t, joined).Members))

	notice := readUntil(t, alice, EventUserJoined)
	assert.Equal(t, "bob", decode[UserJoinedPayload](t, notice).User.ID)

	writeEvent(t, alice, EventMessage, MessageData{Content: "hi"})
	for _, conn := range []*websocket.Conn{alice, bob} {
		msg := decode[MessagePayload](t, readUntil(t, conn, EventMessage))
		assert.Equal(t, "alice", msg.Sender.ID)
		assert.Equal(t, "hi", msg.Content)
	}

	writeEvent(t, bob, EventTyping, TypingData{IsTyping: true})
	readUntil(t, alice, EventTypingUsers)

	bob.Close()
	left := readUntil(t, alice, EventUserLeft)
	assert.Equal(t, "bob", decode[UserLeftPayload](t, left).UserID)

	assert.Eventually(t, func() bool {
		return h.Stats().Connections == 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestServeWS_ErrorOnlyToSender(t *testing.T) {
	h := newTestHub(t)
	url := newTestServer(t, h.Hub)

	alice := dial(t, url, "alice")
	writeEvent(t, alice, EventMessage, MessageData{Room: "general", Content: "hi"})

	payload := decode[ErrorPayload](t, readUntil(t, alice, EventError))
	assert.Equal(t, CodeNotInRoom, payload.Code)
}

func TestServeWS_RejectsMissingIdentity(t *testing.T) {
	h := newTestHub(t)
	url := newTestServer(t, h.Hub)

	conn := dial(t, url, "")
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
	assert.Equal(t, 0, h.Stats().Connections)
}

func TestUpgrader_CheckOrigin(t *testing.T) {
	upgrader := NewUpgrader([]string{"https://chat.example.com"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://chat.example.com", true},
		{"http://localhost:3000", true},
		{"https://evil.example.com", false},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, upgrader.CheckOrigin(r), tt.origin)
	}
}

func TestServeWS_ReadLimitFitsEscapedContent(t *testing.T) {
	h := newTestHub(t)
	url := newTestServer(t, h.Hub)

	alice := dial(t, url, "alice")
	writeEvent(t, alice, EventJoin, JoinData{Room: "general"})
	readUntil(t, alice, EventRoomJoined)

	// One emoji per character, each written as a surrogate pair escape.
	escaped := func(n int) []byte {
		return []byte(`{"type":"message","data":{"content":"` + strings.Repeat(`\ud83d\ude00`, n) + `"}}`)
	}

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, escaped(500)))
	msg := decode[MessagePayload](t, readUntil(t, alice, EventMessage))
	assert.Equal(t, strings.Repeat("\U0001F600", 500), msg.Content)

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, escaped(501)))
	payload := decode[ErrorPayload](t, readUntil(t, alice, EventError))
	assert.Equal(t, CodeInvalidContent, payload.Code)
}

func TestServeWS_ShutdownRunsDisconnectCleanup(t *testing.T) {
	h := newTestHub(t)
	url := newTestServer(t, h.Hub)

	alice := dial(t, url, "alice")
	writeEvent(t, alice, EventJoin, JoinData{Room: "general"})
	readUntil(t, alice, EventRoomJoined)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, h.Shutdown(ctx))

	assert.Equal(t, 0, h.Stats().Connections)
	assert.Contains(t, h.presence.recorded(), presenceCall{UserID: "alice", Online: false})

	late := dial(t, url, "bob")
	require.NoError(t, late.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := late.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
}
