package core

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"skyauth/protocol"
)

// DenyReason is the closed set of login denials. Every reason maps to
// exactly one outbound packet kind.
type DenyReason int

const (
	DenyNotLoggedIn DenyReason = iota + 1
	DenyNotInGuild
	DenyBanned
	DenyIPMismatch
	DenySessionNotFound
	DenyTokenExpired
)

var denyPackets = map[DenyReason]protocol.Kind{
	DenyNotLoggedIn:     protocol.KindLoginFailedNotLoggedViaDiscord,
	DenyNotInGuild:      protocol.KindLoginFailedNotInTheDiscordServer,
	DenyBanned:          protocol.KindLoginFailedBanned,
	DenyIPMismatch:      protocol.KindLoginFailedIpMismatch,
	DenySessionNotFound: protocol.KindLoginFailedSessionNotFound,
	DenyTokenExpired:    protocol.KindLoginFailedTokenExpired,
}

var denyNames = map[DenyReason]string{
	DenyNotLoggedIn:     "not_logged_in",
	DenyNotInGuild:      "not_in_guild",
	DenyBanned:          "banned",
	DenyIPMismatch:      "ip_mismatch",
	DenySessionNotFound: "session_not_found",
	DenyTokenExpired:    "token_expired",
}

func (r DenyReason) Packet() protocol.Kind {
	return denyPackets[r]
}

func (r DenyReason) String() string {
	if name, ok := denyNames[r]; ok {
		return name
	}
	return "unknown"
}

// Verdict is the single success event emitted per accepted login.
// Downstream character selection trusts only these fields.
type Verdict struct {
	ConnectionID   int
	ProfileID      int
	Roles          []string
	ProviderUserID string
}

// LoginAttempt lives from receipt of a login packet until its verdict or
// the connection's disconnect.
type LoginAttempt struct {
	ID           uuid.UUID
	ConnectionID int
	// SessionGUID is captured on receipt; a different GUID at resume means
	// the slot now belongs to another connection.
	SessionGUID string
	AccessToken string
	StartedAt   time.Time

	ProviderUserID string
	ProfileID      int
	Roles          []string
}

// IdentityMapping is the durable provider id to profile id table.
type IdentityMapping struct {
	LastIndex int            `json:"lastIndex"`
	Entries   map[string]int `json:"entries"`
}

func NewIdentityMapping() *IdentityMapping {
	return &IdentityMapping{Entries: map[string]int{}}
}

// UnmarshalJSON also accepts the older "users" key for entries.
func (m *IdentityMapping) UnmarshalJSON(data []byte) error {
	var raw struct {
		LastIndex *int           `json:"lastIndex"`
		Entries   map[string]int `json:"entries"`
		Users     map[string]int `json:"users"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.LastIndex = 0
	if raw.LastIndex != nil {
		m.LastIndex = *raw.LastIndex
	}
	m.Entries = map[string]int{}
	for k, v := range raw.Users {
		m.Entries[k] = v
	}
	for k, v := range raw.Entries {
		m.Entries[k] = v
	}
	for _, v := range m.Entries {
		if v > m.LastIndex {
			m.LastIndex = v
		}
	}
	return nil
}

// Assign returns the profile id for providerUserID, allocating the next
// index when the id is new. Callers serialize access and persist the
// mapping before using a created id.
func (m *IdentityMapping) Assign(providerUserID string) (profileID int, created bool) {
	if m.Entries == nil {
		m.Entries = map[string]int{}
	}
	if id, ok := m.Entries[providerUserID]; ok {
		return id, false
	}
	m.LastIndex++
	m.Entries[providerUserID] = m.LastIndex
	return m.LastIndex, true
}
