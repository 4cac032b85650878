package client_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"skyauth/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStateToken(t *testing.T) {
	a, err := client.NewStateToken()
	require.NoError(t, err)
	b, err := client.NewStateToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a[:16], client.ShortState(a))
	assert.Equal(t, "abc", client.ShortState("abc"))
}

func TestNewBrokerClient_RequiresURL(t *testing.T) {
	_, err := client.NewBrokerClient(client.BrokerConfig{})
	assert.ErrorIs(t, err, client.ErrMissingBrokerURL)
}

func TestBrokerStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/users/login-discord/status", r.URL.Path)

		switch r.URL.Query().Get("state") {
		case "done":
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, `{"token":"T","masterApiId":42,"discordUsername":"dova","discordAvatar":null}`)
		case "garbled":
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, `{"token":`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, "pending")
		}
	}))
	defer srv.Close()

	b, err := client.NewBrokerClient(client.BrokerConfig{BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	res, err := b.Status(context.Background(), "waiting")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "pending", res.Body)
	assert.Nil(t, res.Login)

	res, err = b.Status(context.Background(), "done")
	require.NoError(t, err)
	require.NotNil(t, res.Login)
	assert.Equal(t, "T", res.Login.Token)
	assert.Equal(t, "42", res.Login.MasterAPIID)
	require.NotNil(t, res.Login.DisplayName)
	assert.Equal(t, "dova", *res.Login.DisplayName)
	assert.Nil(t, res.Login.AvatarRef)

	res, err = b.Status(context.Background(), "garbled")
	assert.ErrorIs(t, err, client.ErrBrokerMalformed)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestBrokerStatus_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	b, err := client.NewBrokerClient(client.BrokerConfig{BaseURL: url})
	require.NoError(t, err)

	res, err := b.Status(context.Background(), "x")
	assert.ErrorIs(t, err, client.ErrBrokerTransport)
	assert.Equal(t, 0, res.StatusCode)
}

func TestBrokerPlaySession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/users/me/play/main", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "{}", string(body))

		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"session": "S"})
	}))
	defer srv.Close()

	b, err := client.NewBrokerClient(client.BrokerConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	session, err := b.PlaySession(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "S", session)

	_, err = b.PlaySession(context.Background(), "bad")
	assert.ErrorIs(t, err, client.ErrPlaySession)
	assert.Contains(t, err.Error(), "status code 403")
}

func TestBrokerLoginURL(t *testing.T) {
	b, err := client.NewBrokerClient(client.BrokerConfig{BaseURL: "http://localhost:3000", PathPrefix: "api/users/"})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000/api/users/login-discord?state=abc", b.LoginURL("", "abc"))
	assert.Equal(t, "https://auth.test/api/users/login-discord?state=abc", b.LoginURL("https://auth.test/", "abc"))
}

func TestBrokerLoginIdentity(t *testing.T) {
	login := client.BrokerLogin{Token: "T", MasterAPIID: "42", AccessToken: strPtr("")}
	assert.Equal(t, client.RemoteIdentity{Session: "S", ProviderUserID: "42", AccessToken: "T"}, login.Identity("S"))

	login.AccessToken = strPtr("A")
	assert.Equal(t, "A", login.Identity("S").AccessToken)
}
