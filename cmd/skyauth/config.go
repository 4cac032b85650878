package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"skyauth/bridge"
	"skyauth/client"
	"skyauth/core"
	"skyauth/core/providers"
	"skyauth/storage"
)

const envPrefix = "SKYAUTH_"

type AppConfig struct {
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	Core    core.Config             `yaml:",inline"`
	Server  ServerConfig            `yaml:"server" envPrefix:"SERVER_"`
	Discord providers.DiscordConfig `yaml:"discord" envPrefix:"DISCORD_"`
	Store   storage.Config          `yaml:"store" envPrefix:"STORE_"`
	Bans    []string                `yaml:"bans" env:"BANS" envSeparator:","`
	Client  ClientConfig            `yaml:"client" envPrefix:"CLIENT_"`
}

type ServerConfig struct {
	AdminAddr  string               `yaml:"admin_addr" env:"ADMIN_ADDR"`
	BridgeAddr string               `yaml:"bridge_addr" env:"BRIDGE_ADDR"`
	Bridge     bridge.WebhookConfig `yaml:"bridge" envPrefix:"BRIDGE_"`
}

type ClientConfig struct {
	client.BrokerConfig `yaml:",inline"`

	AuthURL      string `yaml:"auth_url" env:"AUTH_URL"`
	IdentityFile string `yaml:"identity_file" env:"IDENTITY_FILE"`

	OfflineProfileID   int    `yaml:"offline_profile_id" env:"OFFLINE_PROFILE_ID"`
	OfflineAccessToken string `yaml:"offline_access_token" env:"OFFLINE_ACCESS_TOKEN"`

	WatchdogDeadline time.Duration `yaml:"watchdog_deadline" env:"WATCHDOG_DEADLINE"`
	MaxPollAttempts  int           `yaml:"max_poll_attempts" env:"MAX_POLL_ATTEMPTS"`
}

// Local returns the offline identity, if one is configured.
func (c ClientConfig) Local() *client.LocalIdentity {
	if c.OfflineProfileID == 0 {
		return nil
	}
	return &client.LocalIdentity{AccessToken: c.OfflineAccessToken, ProfileID: c.OfflineProfileID}
}

// loadConfig reads the YAML file, then applies .env and SKYAUTH_* overrides.
func loadConfig(path string) (*AppConfig, error) {
	var cfg AppConfig

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.Sanitize()
	return &cfg, nil
}

// Sanitize fills defaults.
func (c *AppConfig) Sanitize() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Server.AdminAddr == "" {
		c.Server.AdminAddr = ":8080"
	}
	if c.Server.BridgeAddr == "" {
		c.Server.BridgeAddr = ":8081"
	}
	if c.Client.IdentityFile == "" {
		c.Client.IdentityFile = "auth-data-no-load.json"
	}
	c.Core.FetchRoles = c.Discord.RolesEnabled()
	c.Core.Sanitize()
}

func initLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
	return logger
}
