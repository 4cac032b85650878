package integration_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

var brokerSigningKey = []byte("integration-broker-secret")

type brokerLogin struct {
	Token           string `json:"token"`
	MasterAPIID     string `json:"masterApiId"`
	DiscordUsername string `json:"discordUsername"`
	AccessToken     string `json:"accessToken"`
}

// MockBroker stands in for the local session broker. A login completes
// when the test calls CompleteLogin, as if the player had finished the
// OAuth page in their browser.
type MockBroker struct {
	server *httptest.Server

	mu          sync.Mutex
	completed   map[string]brokerLogin
	statusCalls map[string]int
}

func NewMockBroker() *MockBroker {
	b := &MockBroker{
		completed:   map[string]brokerLogin{},
		statusCalls: map[string]int{},
	}

	r := chi.NewRouter()
	r.Route("/api/users", func(r chi.Router) {
		r.Get("/login-discord/status", b.handleStatus)
		r.Post("/me/play/main", b.handlePlay)
	})
	b.server = httptest.NewServer(r)
	return b
}

func (b *MockBroker) URL() string {
	return b.server.URL
}

func (b *MockBroker) Close() {
	b.server.Close()
}

// CompleteLogin finishes the login for state. The broker token is a signed
// JWT naming the user; accessToken is the Discord token handed to the game.
func (b *MockBroker) CompleteLogin(state, userID, username, accessToken string) error {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    "mock-broker",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(brokerSigningKey)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.completed[state] = brokerLogin{
		Token:           token,
		MasterAPIID:     userID,
		DiscordUsername: username,
		AccessToken:     accessToken,
	}
	return nil
}

func (b *MockBroker) StatusCalls(state string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statusCalls[state]
}

func (b *MockBroker) handleStatus(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")

	b.mu.Lock()
	b.statusCalls[state]++
	login, ok := b.completed[state]
	b.mu.Unlock()

	if !ok {
		// Pending logins answer 401 until the browser side finishes.
		http.Error(w, "login pending", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(login)
}

func (b *MockBroker) handlePlay(w http.ResponseWriter, r *http.Request) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return brokerSigningKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"session": "play-" + claims.Subject,
	})
}
