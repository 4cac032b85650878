package core

import "time"

const (
	DefaultValidateTimeout = 5 * time.Second
	DefaultCharacterSlots  = 2
	DefaultSlotsWithRole   = 3
)

type Config struct {
	// OfflineMode accepts profileId logins without a provider token.
	OfflineMode bool `yaml:"offline_mode" env:"OFFLINE_MODE"`

	// FetchRoles enables the guild member lookup. Set when both a guild and
	// a bot token are configured.
	FetchRoles      bool          `yaml:"-"`
	WhitelistRoleID string        `yaml:"whitelist_role_id" env:"WHITELIST_ROLE_ID"`
	ValidateTimeout time.Duration `yaml:"validate_timeout" env:"VALIDATE_TIMEOUT"`

	Characters CharacterConfig `yaml:"characters" envPrefix:"CHARACTERS_"`
}

type CharacterConfig struct {
	DefaultSlots    int    `yaml:"default_slots" env:"DEFAULT_SLOTS"`
	ExtraSlotRoleID string `yaml:"extra_slot_role_id" env:"EXTRA_SLOT_ROLE_ID"`
	SlotsWithRole   int    `yaml:"slots_with_role" env:"SLOTS_WITH_ROLE"`
}

// Sanitize fills defaults and clamps invalid values.
func (c *Config) Sanitize() {
	if c.ValidateTimeout <= 0 {
		c.ValidateTimeout = DefaultValidateTimeout
	}
	if c.Characters.DefaultSlots < 1 {
		c.Characters.DefaultSlots = DefaultCharacterSlots
	}
	if c.Characters.SlotsWithRole < 1 {
		c.Characters.SlotsWithRole = DefaultSlotsWithRole
	}
}
