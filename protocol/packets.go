// Package protocol defines the JSON custom packets exchanged over the game
// connection's reliable message channel. Packets are decoded once, at the
// boundary, into a closed set of kinds.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformed = errors.New("malformed custom packet")

type Kind int

const (
	KindUnknown Kind = iota
	KindLoginWithProvider
	KindLoginFailedNotLoggedViaDiscord
	KindLoginFailedNotInTheDiscordServer
	KindLoginFailedBanned
	KindLoginFailedIpMismatch
	KindLoginFailedSessionNotFound
	KindLoginFailedTokenExpired
	KindCharacterList
	KindCharacterError
)

const legacyLoginName = "loginWithSkympIo"

var wireNames = map[Kind]string{
	KindLoginWithProvider:                "loginWithProvider",
	KindLoginFailedNotLoggedViaDiscord:   "loginFailedNotLoggedViaDiscord",
	KindLoginFailedNotInTheDiscordServer: "loginFailedNotInTheDiscordServer",
	KindLoginFailedBanned:                "loginFailedBanned",
	KindLoginFailedIpMismatch:            "loginFailedIpMismatch",
	KindLoginFailedSessionNotFound:       "loginFailedSessionNotFound",
	KindLoginFailedTokenExpired:          "loginFailedTokenExpired",
	KindCharacterList:                    "characterList",
	KindCharacterError:                   "characterError",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(wireNames)+1)
	for k, name := range wireNames {
		m[name] = k
	}
	m[legacyLoginName] = KindLoginWithProvider
	return m
}()

func (k Kind) String() string {
	if name, ok := wireNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind maps a customPacketType string to its Kind.
func ParseKind(name string) Kind {
	if k, ok := kindsByName[name]; ok {
		return k
	}
	return KindUnknown
}

// IsLoginDenial reports whether k is one of the server's login failure
// notices.
func (k Kind) IsLoginDenial() bool {
	switch k {
	case KindLoginFailedNotLoggedViaDiscord,
		KindLoginFailedNotInTheDiscordServer,
		KindLoginFailedBanned,
		KindLoginFailedIpMismatch,
		KindLoginFailedSessionNotFound,
		KindLoginFailedTokenExpired:
		return true
	}
	return false
}

// LoginPayload carries exactly one of AccessToken (provider login) or
// ProfileID (offline login).
type LoginPayload struct {
	AccessToken *string `json:"accessToken,omitempty"`
	ProfileID   *int    `json:"profileId,omitempty"`
}

type CharacterInfo struct {
	VisibleID int    `json:"visibleId"`
	Name      string `json:"name"`
	RaceID    int    `json:"raceId"`
	IsFemale  bool   `json:"isFemale"`
}

type CharacterList struct {
	Characters   []CharacterInfo `json:"characters"`
	MaxSlots     int             `json:"maxSlots"`
	CurrentCount int             `json:"currentCount"`
}

type CharacterError struct {
	Message string `json:"message"`
}

type Packet struct {
	Kind Kind
	// Type is the raw customPacketType, kept for logging unknown kinds.
	Type string

	Login          *LoginPayload
	CharacterList  *CharacterList
	CharacterError *CharacterError
}

type envelope struct {
	Type string `json:"customPacketType"`
}

type loginEnvelope struct {
	GameData *LoginPayload `json:"gameData"`
	LoginPayload
}

// Decode parses a custom packet. Bad JSON or a missing customPacketType
// yields ErrMalformed; an unrecognized type yields KindUnknown.
//
// A login packet whose payload cannot be decoded is returned with an empty
// LoginPayload so the receiver denies it instead of leaving it pending.
func Decode(raw []byte) (Packet, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Packet{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return Packet{}, fmt.Errorf("%w: missing customPacketType", ErrMalformed)
	}

	p := Packet{Kind: ParseKind(env.Type), Type: env.Type}

	switch p.Kind {
	case KindLoginWithProvider:
		var le loginEnvelope
		if err := json.Unmarshal(raw, &le); err != nil {
			p.Login = &LoginPayload{}
			return p, nil
		}
		if le.GameData != nil {
			p.Login = le.GameData
		} else {
			payload := le.LoginPayload
			p.Login = &payload
		}
	case KindCharacterList:
		var cl CharacterList
		if err := json.Unmarshal(raw, &cl); err != nil {
			return Packet{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		p.CharacterList = &cl
	case KindCharacterError:
		var ce CharacterError
		if err := json.Unmarshal(raw, &ce); err != nil {
			return Packet{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		p.CharacterError = &ce
	}

	return p, nil
}

type loginPacket struct {
	Type     string       `json:"customPacketType"`
	GameData LoginPayload `json:"gameData"`
}

// EncodeLoginRemote builds the provider login packet. Only the bearer token
// travels; identity fields are resolved by the server.
func EncodeLoginRemote(accessToken string) []byte {
	return mustMarshal(loginPacket{
		Type:     KindLoginWithProvider.String(),
		GameData: LoginPayload{AccessToken: &accessToken},
	})
}

// EncodeLoginLocal builds the offline login packet.
func EncodeLoginLocal(profileID int) []byte {
	return mustMarshal(loginPacket{
		Type:     KindLoginWithProvider.String(),
		GameData: LoginPayload{ProfileID: &profileID},
	})
}

// EncodeNotice builds a packet that carries only its type, such as a login
// denial.
func EncodeNotice(k Kind) []byte {
	return mustMarshal(envelope{Type: k.String()})
}

func EncodeCharacterList(list CharacterList) []byte {
	if list.Characters == nil {
		list.Characters = []CharacterInfo{}
	}
	return mustMarshal(struct {
		Type string `json:"customPacketType"`
		CharacterList
	}{Type: KindCharacterList.String(), CharacterList: list})
}

func EncodeCharacterError(message string) []byte {
	return mustMarshal(struct {
		Type string `json:"customPacketType"`
		CharacterError
	}{Type: KindCharacterError.String(), CharacterError: CharacterError{Message: message}})
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("protocol: marshal %T: %v", v, err))
	}
	return data
}
