package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"roomchat/internal/api/handlers"
	"roomchat/internal/config"
	"roomchat/internal/database"
	"roomchat/internal/models"
	"roomchat/internal/repositories/postgres"
	"roomchat/internal/services"
	"roomchat/internal/websocket"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("unreachable") }

type testEnv struct {
	engine   *gin.Engine
	hub      *websocket.Hub
	auth     *services.AuthService
	redis    *services.RedisService
	messages *postgres.MessageRepository
	mr       *miniredis.Miniredis
}

func setupRouter(t *testing.T, checks map[string]handlers.Pinger) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	redisService := services.NewRedisService(database.NewRedisClient(rdb))

	users := postgres.NewUserRepository(db)
	auth := services.NewAuthService(users, "test-secret", time.Hour)
	presence := services.NewPresenceService(users, redisService)
	messages := postgres.NewMessageRepository(db)
	hub := websocket.NewHub(messages, presence, websocket.HubConfig{})

	router := NewRouter(hub, auth, redisService, messages, checks, config.ChatConfig{
		SendBufferSize:   16,
		ConnectRateLimit: 10,
		ConnectWindow:    time.Minute,
	})
	router.SetupRoutes()

	return &testEnv{
		engine:   router.GetEngine(),
		hub:      hub,
		auth:     auth,
		redis:    redisService,
		messages: messages,
		mr:       mr,
	}
}

func (e *testEnv) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(models.LoginRequest{Email: email, Password: password})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func TestLogin(t *testing.T) {
	env := setupRouter(t, nil)
	_, err := env.auth.CreateUser(context.Background(), "alice", "alice@example.com", "password123", "")
	require.NoError(t, err)

	w := env.login(t, "alice@example.com", "password123")
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice", resp.User.Username)

	w = env.login(t, "alice@example.com", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"not-an-email"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_RateLimited(t *testing.T) {
	env := setupRouter(t, nil)

	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusUnauthorized, env.login(t, "nobody@example.com", "x").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, env.login(t, "nobody@example.com", "x").Code)
}

func TestWebSocket_RequiresToken(t *testing.T) {
	env := setupRouter(t, nil)

	for _, target := range []string{"/api/v1/ws", "/api/v1/ws?token=garbage"} {
		w := httptest.NewRecorder()
		env.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, target)
	}
}

func TestHealth(t *testing.T) {
	env := setupRouter(t, nil)

	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Hub.Connections)
	assert.Equal(t, 0, resp.OnlineUsers)

	require.NoError(t, env.redis.SetUserOnline(context.Background(), "u-1", time.Now()))
	w = httptest.NewRecorder()
	env.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.OnlineUsers)

	env = setupRouter(t, map[string]handlers.Pinger{"redis": failingPinger{}})
	w = httptest.NewRecorder()
	env.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func (e *testEnv) token(t *testing.T, email string) string {
	t.Helper()
	w := e.login(t, email, "password123")
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func TestPrivateHistory(t *testing.T) {
	env := setupRouter(t, nil)
	ctx := context.Background()

	alice, err := env.auth.CreateUser(ctx, "alice", "alice@example.com", "password123", "")
	require.NoError(t, err)
	bob, err := env.auth.CreateUser(ctx, "bob", "bob@example.com", "password123", "")
	require.NoError(t, err)
	carol, err := env.auth.CreateUser(ctx, "carol", "carol@example.com", "password123", "")
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	for i, m := range []*models.Message{
		models.NewPrivateMessage(alice.ID, bob.ID, "hi bob", base),
		models.NewPrivateMessage(bob.ID, alice.ID, "hi alice", base.Add(time.Minute)),
		models.NewPrivateMessage(alice.ID, bob.ID, "how are you", base.Add(2*time.Minute)),
		models.NewPrivateMessage(carol.ID, alice.ID, "unrelated", base.Add(3*time.Minute)),
	} {
		_, err := env.messages.SaveMessage(ctx, m)
		require.NoError(t, err, i)
	}
	require.NoError(t, env.redis.SetUserOnline(ctx, bob.ID, time.Now()))

	token := env.token(t, "alice@example.com")
	get := func(target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		env.engine.ServeHTTP(w, req)
		return w
	}

	w := get("/api/v1/messages/private/" + bob.ID)
	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.PrivateHistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, bob.ID, resp.UserID)
	assert.True(t, resp.Online)
	require.Len(t, resp.Messages, 3)
	assert.Equal(t, "hi bob", resp.Messages[0].Content)
	assert.Equal(t, "how are you", resp.Messages[2].Content)
	assert.Equal(t, "alice", resp.Messages[0].Sender.Username)

	w = get("/api/v1/messages/private/" + bob.ID + "?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "how are you", resp.Messages[0].Content)

	require.NoError(t, env.redis.SetUserOffline(ctx, bob.ID, time.Now()))
	w = get("/api/v1/messages/private/" + bob.ID)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Online)
	assert.NotNil(t, resp.LastSeen)

	assert.Equal(t, http.StatusBadRequest, get("/api/v1/messages/private/"+alice.ID).Code)
	assert.Equal(t, http.StatusBadRequest, get("/api/v1/messages/private/"+bob.ID+"?limit=zero").Code)

	w = httptest.NewRecorder()
	env.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/messages/private/"+bob.ID, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebSocket_EndToEnd(t *testing.T) {
	env := setupRouter(t, nil)
	ctx := context.Background()

	alice, err := env.auth.CreateUser(ctx, "alice", "alice@example.com", "password123", "")
	require.NoError(t, err)

	var resp models.LoginResponse
	w := env.login(t, "alice@example.com", "password123")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	srv := httptest.NewServer(env.engine)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=" + resp.Token
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	send := func(typ websocket.EventType, data interface{}) {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		require.NoError(t, conn.WriteJSON(websocket.Envelope{Type: typ, Data: raw}))
	}
	readUntil := func(typ websocket.EventType) websocket.Envelope {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		for {
			var frame websocket.Envelope
			require.NoError(t, conn.ReadJSON(&frame))
			if frame.Type == typ {
				return frame
			}
		}
	}

	send(websocket.EventJoin, websocket.JoinData{Room: "general"})
	readUntil(websocket.EventRoomJoined)

	send(websocket.EventMessage, websocket.MessageData{Content: "hello"})
	var msg websocket.MessagePayload
	require.NoError(t, json.Unmarshal(readUntil(websocket.EventMessage).Data, &msg))
	assert.Equal(t, alice.ID, msg.Sender.ID)
	assert.Equal(t, "alice", msg.Sender.Username)
	assert.Equal(t, "hello", msg.Content)

	// Presence is recorded in Redis once joined.
	online, err := env.mr.SIsMember("online_users", alice.ID)
	require.NoError(t, err)
	assert.True(t, online)
}
