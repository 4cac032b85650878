package core_test

import (
	"fmt"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"skyauth/core"
	"skyauth/mocks"
	"skyauth/protocol"
	"skyauth/scheduler"
	"skyauth/storage"

	"github.com/stretchr/testify/require"
)

type fakeConnection struct {
	guid    string
	ip      string
	enabled bool
	packets [][]byte
}

// fakeServer is a GameServer backed by a map of live connections.
type fakeServer struct {
	conns map[int]*fakeConnection
	seq   int
}

func newFakeServer() *fakeServer {
	return &fakeServer{conns: map[int]*fakeConnection{}}
}

func (f *fakeServer) connect(connID int) {
	f.seq++
	f.conns[connID] = &fakeConnection{
		guid:    fmt.Sprintf("guid-%d", f.seq),
		ip:      "203.0.113.7",
		enabled: true,
	}
}

func (f *fakeServer) disconnect(connID int) {
	delete(f.conns, connID)
}

func (f *fakeServer) SendCustomPacket(connID int, payload []byte) error {
	c, ok := f.conns[connID]
	if !ok {
		return fmt.Errorf("connection %d is gone", connID)
	}
	c.packets = append(c.packets, payload)
	return nil
}

func (f *fakeServer) SetEnabled(connID int, enabled bool) {
	if c, ok := f.conns[connID]; ok {
		c.enabled = enabled
	}
}

func (f *fakeServer) IsConnected(connID int) bool {
	_, ok := f.conns[connID]
	return ok
}

func (f *fakeServer) SessionGUID(connID int) string {
	if c, ok := f.conns[connID]; ok {
		return c.guid
	}
	return ""
}

func (f *fakeServer) RemoteIP(connID int) string {
	if c, ok := f.conns[connID]; ok {
		return c.ip
	}
	return ""
}

func (f *fakeServer) packetKinds(t *testing.T, connID int) []protocol.Kind {
	t.Helper()
	c, ok := f.conns[connID]
	require.True(t, ok, "connection %d not present", connID)
	var kinds []protocol.Kind
	for _, raw := range c.packets {
		pkt, err := protocol.Decode(raw)
		require.NoError(t, err)
		kinds = append(kinds, pkt.Kind)
	}
	return kinds
}

type gatekeeperHarness struct {
	sched    *scheduler.Manual
	server   *fakeServer
	provider *mocks.MockIdentityProvider
	store    *storage.MemoryStore
	bans     *storage.MemoryBanList
	metrics  *core.Metrics
	gk       *core.Gatekeeper
	verdicts []core.Verdict
}

type harnessOption func(*core.Config, *core.GatekeeperDeps)

func newGatekeeperHarness(t *testing.T, cfg core.Config, opts ...harnessOption) *gatekeeperHarness {
	t.Helper()
	ctrl := gomock.NewController(t)

	h := &gatekeeperHarness{
		sched:    scheduler.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		server:   newFakeServer(),
		provider: mocks.NewMockIdentityProvider(ctrl),
		store:    storage.NewMemoryStore(),
		bans:     storage.NewMemoryBanList(),
		metrics:  core.NewMetrics(nil),
	}

	deps := core.GatekeeperDeps{
		Server:    h.server,
		Validator: core.NewTokenValidator(h.provider, time.Second, core.WithMetrics(h.metrics)),
		Resolver:  core.NewResolver(h.store, core.WithMetrics(h.metrics)),
		Bans:      h.bans,
		Provider:  h.provider,
	}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}

	gk, err := core.NewGatekeeper(h.sched, deps, cfg, core.WithMetrics(h.metrics))
	require.NoError(t, err)
	gk.Verdicts.Subscribe(func(v core.Verdict) {
		h.verdicts = append(h.verdicts, v)
	})
	h.gk = gk
	return h
}

func withStore(store core.IdentityStore) harnessOption {
	return func(_ *core.Config, deps *core.GatekeeperDeps) {
		deps.Resolver = core.NewResolver(store)
	}
}

func withBans(bans core.BanList) harnessOption {
	return func(_ *core.Config, deps *core.GatekeeperDeps) {
		deps.Bans = bans
	}
}

func (h *gatekeeperHarness) expectUser(token, providerUserID string) {
	h.provider.EXPECT().GetUserInfo(gomock.Any(), token).
		Return(&core.UserInfo{ProviderUserID: providerUserID, Username: "user-" + providerUserID}, nil)
}

func (h *gatekeeperHarness) login(connID int, token string) {
	h.gk.HandleCustomPacket(connID, protocol.EncodeLoginRemote(token))
}
