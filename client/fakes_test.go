package client_test

import (
	"context"
	"errors"
	"sync"

	"skyauth/client"
)

type fakeUI struct {
	states      []client.AuthUIState
	visible     bool
	focused     bool
	loads       int
	opened      []string
	completed   int
	backToLogin int
	pushErr     error
}

func (u *fakeUI) PushState(state client.AuthUIState) error {
	u.states = append(u.states, state)
	return u.pushErr
}

func (u *fakeUI) SetVisible(v bool) { u.visible = v }
func (u *fakeUI) SetFocused(f bool) { u.focused = f }

func (u *fakeUI) LoadUI() error {
	u.loads++
	return nil
}

func (u *fakeUI) OpenURL(url string) error {
	u.opened = append(u.opened, url)
	return nil
}

func (u *fakeUI) NotifyAuthCompleted() { u.completed++ }
func (u *fakeUI) NotifyBackToLogin()   { u.backToLogin++ }

func (u *fakeUI) last() client.AuthUIState {
	if len(u.states) == 0 {
		return client.AuthUIState{}
	}
	return u.states[len(u.states)-1]
}

type fakeConn struct {
	sent       [][]byte
	closed     int
	reconnects int
}

func (c *fakeConn) SendReliable(payload []byte) error {
	c.sent = append(c.sent, payload)
	return nil
}

func (c *fakeConn) Close()     { c.closed++ }
func (c *fakeConn) Reconnect() { c.reconnects++ }

type staticIdentities struct {
	id  *client.RemoteIdentity
	err error
}

func (s staticIdentities) ReadRemoteIdentity() (*client.RemoteIdentity, error) {
	if s.id == nil {
		return nil, s.err
	}
	id := *s.id
	return &id, s.err
}

type fakeInput struct {
	disabled int
}

func (i *fakeInput) DisablePlayerControls() { i.disabled++ }

// scriptedBroker replays status results in order and repeats the last one.
type scriptedBroker struct {
	mu         sync.Mutex
	statuses   []client.StatusResult
	statusErrs []error
	session    string
	sessionErr []error

	statusCalls int
	playCalls   int
	playTokens  []string
}

func (b *scriptedBroker) Status(ctx context.Context, state string) (client.StatusResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.statusCalls
	b.statusCalls++

	var err error
	if i < len(b.statusErrs) {
		err = b.statusErrs[i]
	}
	if len(b.statuses) == 0 {
		return client.StatusResult{}, err
	}
	if i >= len(b.statuses) {
		i = len(b.statuses) - 1
	}
	return b.statuses[i], err
}

func (b *scriptedBroker) PlaySession(ctx context.Context, token string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.playCalls
	b.playCalls++
	b.playTokens = append(b.playTokens, token)

	if i < len(b.sessionErr) && b.sessionErr[i] != nil {
		return "", b.sessionErr[i]
	}
	return b.session, nil
}

var errBrokerDown = errors.New("connection refused")

func unauthorized() client.StatusResult {
	return client.StatusResult{StatusCode: 401, Body: "not yet"}
}

func strPtr(s string) *string { return &s }
