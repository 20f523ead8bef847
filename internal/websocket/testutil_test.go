package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"roomchat/internal/models"

	"github.com/stretchr/testify/require"
)

// mockConn records every frame sent to it.
type mockConn struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	fail   bool
	closed bool

	// onClose runs after Close, standing in for the transport's read loop.
	onClose func()
}

func newMockConn(id string) *mockConn {
	return &mockConn{id: id}
}

func (c *mockConn) ID() string { return c.id }

func (c *mockConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.frames = append(c.frames, data)
	return nil
}

func (c *mockConn) Close() error {
	c.mu.Lock()
	c.closed = true
	onClose := c.onClose
	c.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	return nil
}

func (c *mockConn) events(t *testing.T) []Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	events := make([]Envelope, 0, len(c.frames))
	for _, f := range c.frames {
		var env Envelope
		require.NoError(t, json.Unmarshal(f, &env))
		events = append(events, env)
	}
	return events
}

func (c *mockConn) eventsOf(t *testing.T, typ EventType) []Envelope {
	t.Helper()
	var out []Envelope
	for _, e := range c.events(t) {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (c *mockConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

func decode[T any](t *testing.T, env Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

// fakeStore is an in-memory MessageStore.
type fakeStore struct {
	mu       sync.Mutex
	messages []*models.Message
	receipts []models.ReadReceipt

	saveErr   error
	loadErr   error
	appendErr error
	calls     int
}

func (s *fakeStore) SaveMessage(ctx context.Context, msg *models.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.saveErr != nil {
		return "", s.saveErr
	}
	if err := msg.Validate(); err != nil {
		return "", err
	}
	stored := *msg
	stored.ID = fmt.Sprintf("m-%d", len(s.messages)+1)
	s.messages = append(s.messages, &stored)
	return stored.ID, nil
}

func (s *fakeStore) LoadRecent(ctx context.Context, room string, limit int) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	var out []*models.Message
	for _, m := range s.messages {
		if !m.IsPrivate && m.RoomName() == room {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *fakeStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	for _, m := range s.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, models.ErrMessageNotFound
}

func (s *fakeStore) AppendReadBy(ctx context.Context, messageID, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.appendErr != nil {
		return s.appendErr
	}
	s.receipts = append(s.receipts, models.ReadReceipt{MessageID: messageID, UserID: userID, ReadAt: at})
	return nil
}

func (s *fakeStore) saved() []*models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Message(nil), s.messages...)
}

func (s *fakeStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type presenceCall struct {
	UserID string
	Online bool
}

type fakePresence struct {
	mu    sync.Mutex
	calls []presenceCall
	err   error
}

func (p *fakePresence) SetPresence(ctx context.Context, userID string, online bool, lastSeen time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, presenceCall{UserID: userID, Online: online})
	return p.err
}

func (p *fakePresence) recorded() []presenceCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]presenceCall(nil), p.calls...)
}

type fakeSink struct {
	mu   sync.Mutex
	msgs []*models.Message
}

func (s *fakeSink) PublishMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

type testHub struct {
	*Hub
	store    *fakeStore
	presence *fakePresence
	sink     *fakeSink
}

func newTestHub(t *testing.T) *testHub {
	t.Helper()
	store := &fakeStore{}
	presence := &fakePresence{}
	sink := &fakeSink{}
	return &testHub{
		Hub:      NewHub(store, presence, HubConfig{Sink: sink}),
		store:    store,
		presence: presence,
		sink:     sink,
	}
}

// connect registers a mock connection for a user named after its id.
func (h *testHub) connect(t *testing.T, connID, userID string) *mockConn {
	t.Helper()
	conn := newMockConn(connID)
	require.NoError(t, h.Connect(conn, Identity{UserID: userID, Username: "name-" + userID}))
	return conn
}

func (h *testHub) join(t *testing.T, connID, userID, room string) *mockConn {
	t.Helper()
	conn := h.connect(t, connID, userID)
	require.NoError(t, h.Join(context.Background(), connID, room))
	return conn
}

func memberIDs(members []UserInfo) []string {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	return ids
}
