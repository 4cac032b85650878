package integration_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

const (
	mockBotToken = "mock_bot_token"
	mockGuildID  = "900000000000000001"
)

type mockDiscordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
}

// MockDiscordServer serves the two Discord API endpoints the gatekeeper
// calls: the token owner lookup and the guild member lookup.
type MockDiscordServer struct {
	server *httptest.Server

	mu      sync.Mutex
	users   map[string]mockDiscordUser
	members map[string][]string
}

func NewMockDiscordServer() *MockDiscordServer {
	m := &MockDiscordServer{
		users:   map[string]mockDiscordUser{},
		members: map[string][]string{},
	}

	r := chi.NewRouter()
	r.Get("/users/@me", m.handleMe)
	r.Get("/guilds/{guildID}/members/{userID}", m.handleMember)
	m.server = httptest.NewServer(r)
	return m
}

func (m *MockDiscordServer) URL() string {
	return m.server.URL
}

func (m *MockDiscordServer) Close() {
	m.server.Close()
}

// AddUser makes accessToken resolve to the given user.
func (m *MockDiscordServer) AddUser(accessToken, id, username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[accessToken] = mockDiscordUser{ID: id, Username: username}
}

// SetMember puts a user in the guild. A nil roles slice removes them.
func (m *MockDiscordServer) SetMember(userID string, roles []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if roles == nil {
		delete(m.members, userID)
		return
	}
	m.members[userID] = roles
}

func (m *MockDiscordServer) handleMe(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		writeDiscordError(w, http.StatusUnauthorized, "401: Unauthorized", 0)
		return
	}

	m.mu.Lock()
	user, found := m.users[token]
	m.mu.Unlock()

	if !found {
		writeDiscordError(w, http.StatusUnauthorized, "401: Unauthorized", 0)
		return
	}
	writeDiscordJSON(w, http.StatusOK, user)
}

func (m *MockDiscordServer) handleMember(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bot "+mockBotToken {
		writeDiscordError(w, http.StatusUnauthorized, "401: Unauthorized", 0)
		return
	}
	if chi.URLParam(r, "guildID") != mockGuildID {
		writeDiscordError(w, http.StatusNotFound, "Unknown Guild", 10004)
		return
	}

	userID := chi.URLParam(r, "userID")
	m.mu.Lock()
	roles, found := m.members[userID]
	m.mu.Unlock()

	if !found {
		writeDiscordError(w, http.StatusNotFound, "Unknown Member", 10007)
		return
	}
	writeDiscordJSON(w, http.StatusOK, map[string]any{
		"user":  map[string]string{"id": userID},
		"roles": roles,
	})
}

func writeDiscordJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDiscordError(w http.ResponseWriter, status int, message string, code int) {
	writeDiscordJSON(w, status, map[string]any{
		"message": message,
		"code":    code,
	})
}
