package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "skyauth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
offline_mode: true
whitelist_role_id: "111"
characters:
  extra_slot_role_id: "222"
discord:
  bot_token: bot
  guild_id: guild
store:
  type: sqlite
  sqlite_path: /tmp/x.db
bans: ["1", "2"]
client:
  broker_url: http://localhost:3000
  watchdog_deadline: 20s
`), 0o600))

	t.Setenv("SKYAUTH_STORE_SQLITE_PATH", "/var/lib/skyauth.db")
	t.Setenv("SKYAUTH_SERVER_ADMIN_ADDR", "127.0.0.1:9000")
	t.Setenv("SKYAUTH_CLIENT_OFFLINE_PROFILE_ID", "5")

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Core.OfflineMode)
	assert.Equal(t, "111", cfg.Core.WhitelistRoleID)
	assert.Equal(t, "222", cfg.Core.Characters.ExtraSlotRoleID)
	assert.Equal(t, 2, cfg.Core.Characters.DefaultSlots)
	assert.True(t, cfg.Core.FetchRoles)
	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, "/var/lib/skyauth.db", cfg.Store.SQLitePath)
	assert.Equal(t, []string{"1", "2"}, cfg.Bans)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.AdminAddr)
	assert.Equal(t, ":8081", cfg.Server.BridgeAddr)
	assert.Equal(t, "http://localhost:3000", cfg.Client.BaseURL)
	assert.Equal(t, 20*time.Second, cfg.Client.WatchdogDeadline)

	local := cfg.Client.Local()
	require.NotNil(t, local)
	assert.Equal(t, 5, local.ProfileID)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.Server.AdminAddr)
	assert.False(t, cfg.Core.FetchRoles)
	assert.Nil(t, cfg.Client.Local())
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: [unterminated"), 0o600))

	_, err := loadConfig(path)
	assert.Error(t, err)
}
