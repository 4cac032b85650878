package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"skyauth/client"
	"skyauth/scheduler"
)

const bridgeSecret = "integration-bridge-secret"

// gameHost plays the game server process. It forwards client traffic to
// the skyauth bridge and receives the bridge's outbound webhook calls.
type gameHost struct {
	sched     *scheduler.Manual
	bridgeURL string
	callbacks *httptest.Server
	http      *http.Client

	mu      sync.Mutex
	conns   map[int]*gameConnection
	enabled map[int]bool
	packets map[int][][]byte
	errs    []error
}

func newGameHost(sched *scheduler.Manual) *gameHost {
	h := &gameHost{
		sched:   sched,
		http:    &http.Client{Timeout: 5 * time.Second},
		conns:   map[int]*gameConnection{},
		enabled: map[int]bool{},
		packets: map[int][][]byte{},
	}

	r := chi.NewRouter()
	r.Post("/connections/{connID}/packets", h.handlePacket)
	r.Post("/connections/{connID}/enabled", h.handleEnabled)
	h.callbacks = httptest.NewServer(r)
	return h
}

func (h *gameHost) Close() {
	h.callbacks.Close()
}

func (h *gameHost) CallbackURL() string {
	return h.callbacks.URL
}

// Enabled reports the last enabled flag pushed for connID and whether any
// was pushed at all.
func (h *gameHost) Enabled(connID int) (enabled, known bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	enabled, known = h.enabled[connID]
	return enabled, known
}

func (h *gameHost) Packets(connID int) [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]byte(nil), h.packets[connID]...)
}

func (h *gameHost) Errors() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.errs...)
}

func (h *gameHost) handlePacket(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	connID, _ := strconv.Atoi(chi.URLParam(r, "connID"))
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	h.packets[connID] = append(h.packets[connID], body)
	conn := h.conns[connID]
	h.mu.Unlock()

	if conn != nil {
		h.sched.Post(func() {
			conn.svc.OnCustomPacket(body)
		})
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *gameHost) handleEnabled(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	connID, _ := strconv.Atoi(chi.URLParam(r, "connID"))

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	h.enabled[connID] = req.Enabled
	h.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (h *gameHost) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+bridgeSecret
}

// post calls the skyauth bridge on behalf of connID.
func (h *gameHost) post(connID int, action string, body []byte) {
	url := fmt.Sprintf("%s/connections/%d/%s", h.bridgeURL, connID, action)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		h.recordErr(err)
		return
	}
	req.Header.Set("Authorization", "Bearer "+bridgeSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.http.Do(req)
	if err != nil {
		h.recordErr(err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		h.recordErr(fmt.Errorf("bridge %s for connection %d: status %d", action, connID, resp.StatusCode))
	}
}

func (h *gameHost) recordErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, err)
}

// gameConnection is one player's link to the game server.
type gameConnection struct {
	host     *gameHost
	id       int
	remoteIP string
	svc      *client.AuthService

	mu         sync.Mutex
	closed     bool
	reconnects int
}

var _ client.Connection = (*gameConnection)(nil)

func (c *gameConnection) connect() {
	c.mu.Lock()
	c.closed = false
	c.mu.Unlock()

	body, _ := json.Marshal(map[string]string{"remote_ip": c.remoteIP})
	c.host.post(c.id, "connect", body)
	c.host.sched.Post(c.svc.OnConnectionAccepted)
}

func (c *gameConnection) SendReliable(payload []byte) error {
	c.host.post(c.id, "packets", payload)
	return nil
}

func (c *gameConnection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.host.post(c.id, "disconnect", nil)
}

func (c *gameConnection) Reconnect() {
	c.mu.Lock()
	c.reconnects++
	c.mu.Unlock()
	c.Close()
	c.connect()
}

func (c *gameConnection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// recordingUI keeps every snapshot the auth service pushes.
type recordingUI struct {
	mu        sync.Mutex
	states    []client.AuthUIState
	opened    []string
	completed bool
}

var _ client.UI = (*recordingUI)(nil)

func (u *recordingUI) PushState(state client.AuthUIState) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.states = append(u.states, state)
	return nil
}

func (u *recordingUI) SetVisible(bool) {}
func (u *recordingUI) SetFocused(bool) {}
func (u *recordingUI) LoadUI() error   { return nil }

func (u *recordingUI) OpenURL(url string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.opened = append(u.opened, url)
	return nil
}

func (u *recordingUI) NotifyAuthCompleted() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.completed = true
}

func (u *recordingUI) NotifyBackToLogin() {}

func (u *recordingUI) Last() client.AuthUIState {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.states) == 0 {
		return client.AuthUIState{}
	}
	return u.states[len(u.states)-1]
}

func (u *recordingUI) Opened() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.opened...)
}

func (u *recordingUI) Completed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.completed
}

type noIdentities struct{}

func (noIdentities) ReadRemoteIdentity() (*client.RemoteIdentity, error) {
	return nil, nil
}

// player bundles the client side of one connection.
type player struct {
	state string
	svc   *client.AuthService
	ui    *recordingUI
	conn  *gameConnection
}
