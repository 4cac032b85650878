package core_test

import (
	"encoding/json"
	"testing"

	"skyauth/core"
	"skyauth/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDenyReason_Packets(t *testing.T) {
	cases := map[core.DenyReason]protocol.Kind{
		core.DenyNotLoggedIn:     protocol.KindLoginFailedNotLoggedViaDiscord,
		core.DenyNotInGuild:      protocol.KindLoginFailedNotInTheDiscordServer,
		core.DenyBanned:          protocol.KindLoginFailedBanned,
		core.DenyIPMismatch:      protocol.KindLoginFailedIpMismatch,
		core.DenySessionNotFound: protocol.KindLoginFailedSessionNotFound,
		core.DenyTokenExpired:    protocol.KindLoginFailedTokenExpired,
	}
	for reason, kind := range cases {
		assert.Equal(t, kind, reason.Packet(), reason.String())
		assert.True(t, reason.Packet().IsLoginDenial())
	}
	assert.Equal(t, "unknown", core.DenyReason(0).String())
}

func TestIdentityMapping_Assign(t *testing.T) {
	m := core.NewIdentityMapping()

	id, created := m.Assign("A")
	assert.Equal(t, 1, id)
	assert.True(t, created)

	id, created = m.Assign("A")
	assert.Equal(t, 1, id)
	assert.False(t, created)

	id, _ = m.Assign("B")
	assert.Equal(t, 2, id)
	assert.Equal(t, 2, m.LastIndex)
}

func TestIdentityMapping_JSON(t *testing.T) {
	m := core.NewIdentityMapping()
	m.Assign("A")

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"lastIndex":1,"entries":{"A":1}}`, string(data))

	var legacy core.IdentityMapping
	require.NoError(t, json.Unmarshal([]byte(`{"users":{"A":4,"B":2}}`), &legacy))
	assert.Equal(t, 4, legacy.LastIndex)
	assert.Equal(t, map[string]int{"A": 4, "B": 2}, legacy.Entries)

	id, created := legacy.Assign("C")
	assert.True(t, created)
	assert.Equal(t, 5, id)
}
