package client

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrBrokerTransport  = errors.New("broker request failed")
	ErrBrokerMalformed  = errors.New("broker returned malformed body")
	ErrPlaySession      = errors.New("play session request failed")
	ErrMissingBrokerURL = errors.New("broker base url is required")
)

const (
	DefaultBrokerPathPrefix = "/api/users"
	defaultBrokerTimeout    = 10 * time.Second
)

// NewStateToken returns 32 random bytes, hex encoded. It is generated once
// per login service so a third party cannot guess a completed login.
func NewStateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ShortState trims a state token for logs.
func ShortState(state string) string {
	if len(state) > 16 {
		return state[:16]
	}
	return state
}

// Broker is the local session broker as seen by the poller.
type Broker interface {
	Status(ctx context.Context, state string) (StatusResult, error)
	PlaySession(ctx context.Context, token string) (string, error)
}

// BrokerLogin is the body of a successful status response.
type BrokerLogin struct {
	Token         string  `json:"token"`
	MasterAPIID   string  `json:"masterApiId"`
	DisplayName   *string `json:"discordUsername"`
	Discriminator *string `json:"discordDiscriminator"`
	AvatarRef     *string `json:"discordAvatar"`
	AccessToken   *string `json:"accessToken"`
}

// UnmarshalJSON accepts masterApiId as either a string or a number.
func (l *BrokerLogin) UnmarshalJSON(data []byte) error {
	type plain BrokerLogin
	var aux struct {
		plain
		MasterAPIID flexString `json:"masterApiId"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*l = BrokerLogin(aux.plain)
	l.MasterAPIID = string(aux.MasterAPIID)
	return nil
}

// Identity assembles the final RemoteIdentity. An explicit non-empty access
// token wins over the broker token.
func (l BrokerLogin) Identity(session string) RemoteIdentity {
	accessToken := l.Token
	if l.AccessToken != nil && *l.AccessToken != "" {
		accessToken = *l.AccessToken
	}
	return RemoteIdentity{
		Session:        session,
		ProviderUserID: l.MasterAPIID,
		DisplayName:    l.DisplayName,
		Discriminator:  l.Discriminator,
		AvatarRef:      l.AvatarRef,
		AccessToken:    accessToken,
	}
}

type StatusResult struct {
	StatusCode int
	Body       string
	// Login is set only for 200 responses.
	Login *BrokerLogin
}

type BrokerConfig struct {
	BaseURL    string        `yaml:"broker_url" env:"BROKER_URL"`
	PathPrefix string        `yaml:"broker_path_prefix" env:"BROKER_PATH_PREFIX"`
	Timeout    time.Duration `yaml:"broker_timeout" env:"BROKER_TIMEOUT"`
}

// BrokerClient talks to the local session broker over HTTP.
type BrokerClient struct {
	baseURL    string
	prefix     string
	httpClient *http.Client
}

func NewBrokerClient(cfg BrokerConfig) (*BrokerClient, error) {
	if cfg.BaseURL == "" {
		return nil, ErrMissingBrokerURL
	}
	prefix := cfg.PathPrefix
	if prefix == "" {
		prefix = DefaultBrokerPathPrefix
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultBrokerTimeout
	}
	return &BrokerClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		prefix:     "/" + strings.Trim(prefix, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// LoginURL is the provider OAuth entry page for state.
func (c *BrokerClient) LoginURL(authBaseURL, state string) string {
	base := c.baseURL
	if authBaseURL != "" {
		base = strings.TrimRight(authBaseURL, "/")
	}
	return base + c.prefix + "/login-discord?state=" + url.QueryEscape(state)
}

func (c *BrokerClient) Status(ctx context.Context, state string) (StatusResult, error) {
	statusURL := c.baseURL + c.prefix + "/login-discord/status?state=" + url.QueryEscape(state)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return StatusResult{}, fmt.Errorf("%w: %v", ErrBrokerTransport, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return StatusResult{}, fmt.Errorf("%w: %v", ErrBrokerTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return StatusResult{}, fmt.Errorf("%w: %v", ErrBrokerTransport, err)
	}

	result := StatusResult{StatusCode: resp.StatusCode, Body: string(body)}
	if resp.StatusCode != http.StatusOK {
		return result, nil
	}

	var login BrokerLogin
	if err := json.Unmarshal(body, &login); err != nil {
		return result, fmt.Errorf("%w: %v", ErrBrokerMalformed, err)
	}
	result.Login = &login
	return result, nil
}

func (c *BrokerClient) PlaySession(ctx context.Context, token string) (string, error) {
	playURL := c.baseURL + c.prefix + "/me/play/main"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, playURL, bytes.NewReader([]byte("{}")))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPlaySession, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPlaySession, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status code %d", ErrPlaySession, resp.StatusCode)
	}

	var body struct {
		Session string `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPlaySession, err)
	}
	if body.Session == "" {
		return "", fmt.Errorf("%w: empty session", ErrPlaySession)
	}
	return body.Session, nil
}
