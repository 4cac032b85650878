package core_test

import (
	"testing"

	"skyauth/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_MaxCharacterSlots(t *testing.T) {
	s := core.NewSessions(core.CharacterConfig{ExtraSlotRoleID: "patron"})

	s.Accept(core.Verdict{ConnectionID: 1, ProfileID: 10, Roles: []string{"patron"}, ProviderUserID: "a"})
	s.Accept(core.Verdict{ConnectionID: 2, ProfileID: 11, Roles: []string{"citizen"}, ProviderUserID: "b"})

	assert.Equal(t, core.DefaultSlotsWithRole, s.MaxCharacterSlots(1))
	assert.Equal(t, core.DefaultCharacterSlots, s.MaxCharacterSlots(2))
	assert.Equal(t, core.DefaultCharacterSlots, s.MaxCharacterSlots(3))
}

func TestSessions_NoExtraRoleConfigured(t *testing.T) {
	s := core.NewSessions(core.CharacterConfig{DefaultSlots: 4, SlotsWithRole: 6})
	s.Accept(core.Verdict{ConnectionID: 1, Roles: []string{""}})

	assert.Equal(t, 4, s.MaxCharacterSlots(1))
}

func TestSessions_AcceptReplacesAndRemove(t *testing.T) {
	s := core.NewSessions(core.CharacterConfig{})
	roles := []string{"x"}

	s.Accept(core.Verdict{ConnectionID: 1, ProfileID: 1, Roles: roles, ProviderUserID: "a"})
	roles[0] = "mutated"
	s.Accept(core.Verdict{ConnectionID: 3, ProfileID: 1, ProviderUserID: "a"})
	s.Accept(core.Verdict{ConnectionID: 2, ProfileID: 2, ProviderUserID: "b"})

	sess, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, sess.Roles)
	assert.Equal(t, []int{1, 3}, s.ConnectionsFor("a"))
	assert.Empty(t, s.ConnectionsFor(""))

	s.Accept(core.Verdict{ConnectionID: 1, ProfileID: 5, ProviderUserID: "c"})
	assert.Equal(t, []int{3}, s.ConnectionsFor("a"))

	s.Remove(1)
	_, ok = s.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 2, s.Len())
}
