package client

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// RemoteIdentity is the result of a completed provider login plus play
// session handshake. The JSON layout is shared with the launcher-written
// identity file and the login UI.
type RemoteIdentity struct {
	Session        string  `json:"session"`
	ProviderUserID string  `json:"masterApiId"`
	DisplayName    *string `json:"discordUsername,omitempty"`
	Discriminator  *string `json:"discordDiscriminator,omitempty"`
	AvatarRef      *string `json:"discordAvatar,omitempty"`
	AccessToken    string  `json:"accessToken,omitempty"`
}

// UnmarshalJSON accepts masterApiId as either a string or a number.
func (r *RemoteIdentity) UnmarshalJSON(data []byte) error {
	type plain RemoteIdentity
	var aux struct {
		plain
		ProviderUserID flexString `json:"masterApiId"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = RemoteIdentity(aux.plain)
	r.ProviderUserID = string(aux.ProviderUserID)
	return nil
}

// LocalIdentity is the offline bypass identity taken from settings.
type LocalIdentity struct {
	AccessToken string `json:"accessToken,omitempty"`
	ProfileID   int    `json:"profileId"`
}

// AuthData is the connection-scoped identity handed from the connect intent
// to the accepted connection. Exactly one field is set.
type AuthData struct {
	Remote *RemoteIdentity `json:"remote,omitempty"`
	Local  *LocalIdentity  `json:"local,omitempty"`
}

// AuthUIState is the snapshot pushed to the login UI.
type AuthUIState struct {
	Identity      *RemoteIdentity `json:"authData"`
	StatusComment string          `json:"comment"`
	FailureReason string          `json:"loginFailedReason"`
	Connecting    bool            `json:"isConnecting"`
}

// ConnectAttempt asks the networking layer to open the game connection.
type ConnectAttempt struct {
	Data AuthData
}

type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
