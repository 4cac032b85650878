package protocol_test

import (
	"testing"

	"skyauth/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLoginWithProvider(t *testing.T) {
	pkt, err := protocol.Decode([]byte(`{"customPacketType":"loginWithProvider","gameData":{"accessToken":"tok"}}`))
	require.NoError(t, err)

	assert.Equal(t, protocol.KindLoginWithProvider, pkt.Kind)
	require.NotNil(t, pkt.Login)
	require.NotNil(t, pkt.Login.AccessToken)
	assert.Equal(t, "tok", *pkt.Login.AccessToken)
	assert.Nil(t, pkt.Login.ProfileID)
}

func TestDecodeLegacyLoginName(t *testing.T) {
	pkt, err := protocol.Decode([]byte(`{"customPacketType":"loginWithSkympIo","gameData":{"profileId":5}}`))
	require.NoError(t, err)

	assert.Equal(t, protocol.KindLoginWithProvider, pkt.Kind)
	assert.Equal(t, "loginWithSkympIo", pkt.Type)
	require.NotNil(t, pkt.Login.ProfileID)
	assert.Equal(t, 5, *pkt.Login.ProfileID)
}

func TestDecodeLoginTopLevelFields(t *testing.T) {
	pkt, err := protocol.Decode([]byte(`{"customPacketType":"loginWithProvider","accessToken":"tok"}`))
	require.NoError(t, err)
	require.NotNil(t, pkt.Login.AccessToken)
	assert.Equal(t, "tok", *pkt.Login.AccessToken)
}

func TestDecodeLoginBadPayloadYieldsEmptyLogin(t *testing.T) {
	pkt, err := protocol.Decode([]byte(`{"customPacketType":"loginWithProvider","gameData":{"accessToken":12}}`))
	require.NoError(t, err)
	require.NotNil(t, pkt.Login)
	assert.Nil(t, pkt.Login.AccessToken)
	assert.Nil(t, pkt.Login.ProfileID)
}

func TestDecodeMalformed(t *testing.T) {
	for _, raw := range []string{``, `{`, `[]`, `{"gameData":{}}`, `{"customPacketType":""}`} {
		_, err := protocol.Decode([]byte(raw))
		assert.ErrorIs(t, err, protocol.ErrMalformed, "input %q", raw)
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	pkt, err := protocol.Decode([]byte(`{"customPacketType":"spawnAllowed"}`))
	require.NoError(t, err)
	assert.Equal(t, protocol.KindUnknown, pkt.Kind)
	assert.Equal(t, "spawnAllowed", pkt.Type)
}

func TestNoticeRoundTrip(t *testing.T) {
	kinds := []protocol.Kind{
		protocol.KindLoginFailedNotLoggedViaDiscord,
		protocol.KindLoginFailedNotInTheDiscordServer,
		protocol.KindLoginFailedBanned,
		protocol.KindLoginFailedIpMismatch,
		protocol.KindLoginFailedSessionNotFound,
		protocol.KindLoginFailedTokenExpired,
	}
	for _, k := range kinds {
		pkt, err := protocol.Decode(protocol.EncodeNotice(k))
		require.NoError(t, err)
		assert.Equal(t, k, pkt.Kind)
		assert.True(t, pkt.Kind.IsLoginDenial())
	}
	assert.False(t, protocol.KindCharacterList.IsLoginDenial())
	assert.False(t, protocol.KindLoginWithProvider.IsLoginDenial())
}

func TestEncodeLogin(t *testing.T) {
	assert.JSONEq(t,
		`{"customPacketType":"loginWithProvider","gameData":{"accessToken":"tok"}}`,
		string(protocol.EncodeLoginRemote("tok")))
	assert.JSONEq(t,
		`{"customPacketType":"loginWithProvider","gameData":{"profileId":3}}`,
		string(protocol.EncodeLoginLocal(3)))
}

func TestCharacterPackets(t *testing.T) {
	raw := protocol.EncodeCharacterList(protocol.CharacterList{MaxSlots: 3})
	assert.JSONEq(t, `{"customPacketType":"characterList","characters":[],"maxSlots":3,"currentCount":0}`, string(raw))

	pkt, err := protocol.Decode([]byte(`{"customPacketType":"characterList","characters":[{"visibleId":1,"name":"Lydia","raceId":4,"isFemale":true}],"maxSlots":2,"currentCount":1}`))
	require.NoError(t, err)
	require.NotNil(t, pkt.CharacterList)
	require.Len(t, pkt.CharacterList.Characters, 1)
	assert.Equal(t, "Lydia", pkt.CharacterList.Characters[0].Name)

	pkt, err = protocol.Decode(protocol.EncodeCharacterError("slot limit reached"))
	require.NoError(t, err)
	assert.Equal(t, protocol.KindCharacterError, pkt.Kind)
	assert.Equal(t, "slot limit reached", pkt.CharacterError.Message)
}

func TestParseKind(t *testing.T) {
	assert.Equal(t, protocol.KindCharacterError, protocol.ParseKind("characterError"))
	assert.Equal(t, protocol.KindUnknown, protocol.ParseKind("CharacterError"))
	assert.Equal(t, "unknown", protocol.KindUnknown.String())
}
