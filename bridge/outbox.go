package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var ErrDelivery = errors.New("game server rejected delivery")

type WebhookConfig struct {
	CallbackURL string        `yaml:"callback_url" env:"CALLBACK_URL"`
	Secret      string        `yaml:"secret" env:"SECRET"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// WebhookOutbox POSTs outbound calls to the game server's callback API.
type WebhookOutbox struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

var _ Outbox = (*WebhookOutbox)(nil)

func NewWebhookOutbox(cfg WebhookConfig) (*WebhookOutbox, error) {
	if cfg.CallbackURL == "" {
		return nil, errors.New("bridge: callback url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &WebhookOutbox{
		baseURL:    strings.TrimRight(cfg.CallbackURL, "/"),
		secret:     cfg.Secret,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (o *WebhookOutbox) SendPacket(ctx context.Context, connID int, payload []byte) error {
	return o.post(ctx, connID, "packets", payload)
}

func (o *WebhookOutbox) SetEnabled(ctx context.Context, connID int, enabled bool) error {
	body, err := json.Marshal(map[string]bool{"enabled": enabled})
	if err != nil {
		return err
	}
	return o.post(ctx, connID, "enabled", body)
}

func (o *WebhookOutbox) post(ctx context.Context, connID int, action string, body []byte) error {
	endpoint := o.baseURL + "/connections/" + strconv.Itoa(connID) + "/" + action

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if o.secret != "" {
		req.Header.Set("Authorization", "Bearer "+o.secret)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %s %d: %s", ErrDelivery, action, resp.StatusCode, string(msg))
	}
	return nil
}
