package bridge_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"skyauth/bridge"
	"skyauth/core"
	"skyauth/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogins struct {
	packets     map[int][]string
	disconnects []int
}

func (l *recordingLogins) HandleCustomPacket(connID int, raw []byte) {
	if l.packets == nil {
		l.packets = map[int][]string{}
	}
	l.packets[connID] = append(l.packets[connID], string(raw))
}

func (l *recordingLogins) HandleDisconnect(connID int) {
	l.disconnects = append(l.disconnects, connID)
}

type handlerHarness struct {
	sched    *scheduler.Manual
	registry *bridge.Registry
	logins   *recordingLogins
	sessions *core.Sessions
	router   http.Handler
}

func newHandlerHarness(secret string) *handlerHarness {
	h := &handlerHarness{
		sched:    scheduler.NewManual(time.Now()),
		registry: bridge.NewRegistry(&recordingOutbox{}),
		logins:   &recordingLogins{},
		sessions: core.NewSessions(core.CharacterConfig{ExtraSlotRoleID: "patron"}),
	}
	h.router = bridge.NewHandler(h.sched, h.registry, h.logins, h.sessions, bridge.HandlerConfig{Secret: secret}).Router()
	return h
}

func (h *handlerHarness) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func TestHandler_ConnectPacketDisconnect(t *testing.T) {
	h := newHandlerHarness("")

	w := h.do(http.MethodPost, "/connections/3/connect", `{"remote_ip":"192.0.2.1"}`, "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.False(t, h.registry.IsConnected(3), "applied on the loop")
	h.sched.RunPending()
	assert.True(t, h.registry.IsConnected(3))
	assert.Equal(t, "192.0.2.1", h.registry.RemoteIP(3))

	w = h.do(http.MethodPost, "/connections/3/packets", `{"customPacketType":"loginWithProvider"}`, "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	h.sched.RunPending()
	assert.Equal(t, []string{`{"customPacketType":"loginWithProvider"}`}, h.logins.packets[3])

	w = h.do(http.MethodPost, "/connections/3/disconnect", "", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	h.sched.RunPending()
	assert.False(t, h.registry.IsConnected(3))
	assert.Equal(t, []int{3}, h.logins.disconnects)
}

func TestHandler_ReconnectOnSameSlotDropsOldState(t *testing.T) {
	h := newHandlerHarness("")

	h.do(http.MethodPost, "/connections/1/connect", "", "")
	h.sched.RunPending()
	first := h.registry.SessionGUID(1)

	h.do(http.MethodPost, "/connections/1/connect", "", "")
	h.sched.RunPending()

	assert.NotEqual(t, first, h.registry.SessionGUID(1))
	assert.Equal(t, []int{1}, h.logins.disconnects)
}

func TestHandler_PacketForUnknownConnectionDropped(t *testing.T) {
	h := newHandlerHarness("")

	w := h.do(http.MethodPost, "/connections/8/packets", `{}`, "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	h.sched.RunPending()
	assert.Empty(t, h.logins.packets)
}

func TestHandler_InvalidConnectionID(t *testing.T) {
	h := newHandlerHarness("")

	w := h.do(http.MethodPost, "/connections/abc/connect", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Secret(t *testing.T) {
	h := newHandlerHarness("hunter2")

	w := h.do(http.MethodPost, "/connections/1/connect", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/connections/1/connect", "", "hunter2")
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestHandler_Session(t *testing.T) {
	h := newHandlerHarness("")

	w := h.do(http.MethodGet, "/connections/2/session", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	h.sessions.Accept(core.Verdict{ConnectionID: 2, ProfileID: 17, Roles: []string{"patron"}, ProviderUserID: "42"})
	w = h.do(http.MethodGet, "/connections/2/session", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, float64(17), resp["profile_id"])
	assert.Equal(t, float64(core.DefaultSlotsWithRole), resp["max_character_slots"])
	assert.Equal(t, []any{"patron"}, resp["roles"])
}
