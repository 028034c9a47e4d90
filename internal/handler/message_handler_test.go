package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-chat/internal/engine"
	"relay-chat/internal/events"
	"relay-chat/internal/handler"
	"relay-chat/internal/repository"
	"relay-chat/internal/server"
	"relay-chat/internal/services"
	"relay-chat/internal/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	auth   *services.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := repository.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	bus := events.NewInProcBus()
	eng := engine.New(bus)

	messageRepo := repository.NewMessageRepository(store)
	userRepo := repository.NewUserRepository(store)
	messageSvc := services.NewMessageService(messageRepo, bus)
	typingSvc := services.NewTypingService(repository.NewTypingRepository(store), bus)
	authSvc := services.NewAuthService(userRepo, bus, "test-secret", time.Hour)
	pubs := engine.NewPublications(messageRepo, userRepo, typingSvc)

	router := server.NewRouter(server.Deps{
		Auth:     authSvc,
		Messages: handler.NewMessageHandler(messageSvc),
		Typing:   handler.NewTypingHandler(typingSvc),
		AuthH:    handler.NewAuthHandler(authSvc),
		WS:       websocket.NewHandler(authSvc, websocket.NewHub(), eng, pubs),
	})
	return &testServer{router: router, auth: authSvc}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username, "password": "hunter22", "display_name": username,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)
	return resp.Data.Token
}

func (s *testServer) sendMessage(t *testing.T, token, text string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/messages", token, gin.H{"text": text})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.ID)
	return resp.Data.ID
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Code
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice")

	w := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "hunter22"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": "alice", "password": "hunter22"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_EXISTS", errorCode(t, w))
}

func TestInsertMessage(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "alice")

	id := s.sendMessage(t, token, "hello world")
	assert.NotEmpty(t, id)

	// Sending requires a caller identity.
	w := s.do(t, http.MethodPost, "/api/messages", "", gin.H{"text": "anonymous"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/messages", token, gin.H{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", errorCode(t, w))
}

func TestUpdateMessageOwnership(t *testing.T) {
	s := newTestServer(t)
	aliceToken := s.register(t, "alice")
	bobToken := s.register(t, "bob")
	id := s.sendMessage(t, aliceToken, "original")

	w := s.do(t, http.MethodPatch, "/api/messages/"+id, bobToken, gin.H{"text": "stolen"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))

	w = s.do(t, http.MethodPatch, "/api/messages/"+id, aliceToken, gin.H{"text": "edited"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRemoveMessage(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "alice")
	id := s.sendMessage(t, token, "doomed")

	w := s.do(t, http.MethodDelete, "/api/messages/"+id, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, "/api/messages/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))
}

func TestReactionsAreOpen(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "alice")
	id := s.sendMessage(t, token, "react to me")

	// No token needed as long as a reactor name is supplied.
	w := s.do(t, http.MethodPost, "/api/messages/"+id+"/reactions", "", gin.H{
		"emoji": "👍", "reactor_name": "drive-by",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/messages/"+id+"/reactions", "", gin.H{"emoji": "👍"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarkSeenRequiresAuth(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "alice")
	id := s.sendMessage(t, token, "look at me")

	w := s.do(t, http.MethodPost, "/api/messages/"+id+"/seen", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/messages/"+id+"/seen", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPinEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "alice")

	var ids []string
	for i := 0; i <= services.MaxPins; i++ {
		ids = append(ids, s.sendMessage(t, token, fmt.Sprintf("pin %d", i)))
	}

	// Pinning is open: no token on any of these.
	for _, id := range ids[:services.MaxPins] {
		w := s.do(t, http.MethodPost, "/api/messages/"+id+"/pin", "", gin.H{"pinned_by": "alice"})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := s.do(t, http.MethodPost, "/api/messages/"+ids[0]+"/pin", "", gin.H{"pinned_by": "bob"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_PINNED", errorCode(t, w))

	w = s.do(t, http.MethodPost, "/api/messages/"+ids[services.MaxPins]+"/pin", "", gin.H{"pinned_by": "alice"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "MAX_PINS_REACHED", errorCode(t, w))

	w = s.do(t, http.MethodDelete, "/api/messages/"+ids[0]+"/pin", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/messages/"+ids[services.MaxPins]+"/pin", "", gin.H{"pinned_by": "alice"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTypingEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPut, "/api/typing", "", gin.H{"username": "alice"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, "/api/typing/alice", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Clearing an absent record stays a success.
	w = s.do(t, http.MethodDelete, "/api/typing/alice", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
