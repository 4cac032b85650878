package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"skyauth/core"
)

const (
	DiscordAPIBaseURL    = "https://discord.com/api/v10"
	DiscordAvatarBaseURL = "https://cdn.discordapp.com/avatars"
)

type DiscordConfig struct {
	APIBaseURL string        `yaml:"api_base_url" env:"API_BASE_URL"`
	BotToken   string        `yaml:"bot_token" env:"BOT_TOKEN"`
	GuildID    string        `yaml:"guild_id" env:"GUILD_ID"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// RolesEnabled reports whether the guild member lookup can run.
func (c *DiscordConfig) RolesEnabled() bool {
	return c.GuildID != "" && c.BotToken != ""
}

type DiscordProvider struct {
	config     *DiscordConfig
	httpClient *http.Client
	botClient  *http.Client
}

func NewDiscordProvider(config *DiscordConfig) *DiscordProvider {
	if config.APIBaseURL == "" {
		config.APIBaseURL = DiscordAPIBaseURL
	}
	config.APIBaseURL = strings.TrimRight(config.APIBaseURL, "/")
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	base := &http.Client{Timeout: config.Timeout}
	d := &DiscordProvider{config: config, httpClient: base}
	if config.BotToken != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		d.botClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: config.BotToken,
			TokenType:   "Bot",
		}))
	}
	return d
}

type discordUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	GlobalName    string `json:"global_name"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
}

type discordMember struct {
	Roles []string `json:"roles"`
}

func (d *DiscordProvider) GetUserInfo(ctx context.Context, accessToken string) (*core.UserInfo, error) {
	userinfoURL := d.config.APIBaseURL + "/users/@me"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProviderUserInfo, err)
	}

	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, d.httpClient),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProviderUserInfo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", core.ErrProviderUserInfo, resp.StatusCode, string(body))
	}

	var user discordUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProviderUserInfo, err)
	}

	name := user.GlobalName
	if name == "" {
		name = user.Username
	}

	avatarURL := ""
	if user.Avatar != "" && user.ID != "" {
		avatarURL = fmt.Sprintf("%s/%s/%s.png", DiscordAvatarBaseURL, user.ID, user.Avatar)
	}

	return &core.UserInfo{
		ProviderUserID: user.ID,
		Username:       name,
		Discriminator:  user.Discriminator,
		Avatar:         avatarURL,
	}, nil
}

func (d *DiscordProvider) GetMemberRoles(ctx context.Context, providerUserID string) ([]string, error) {
	if d.botClient == nil || d.config.GuildID == "" {
		return nil, fmt.Errorf("%w: guild lookup not configured", core.ErrProviderMemberRoles)
	}

	memberURL := fmt.Sprintf("%s/guilds/%s/members/%s", d.config.APIBaseURL,
		url.PathEscape(d.config.GuildID), url.PathEscape(providerUserID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, memberURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProviderMemberRoles, err)
	}

	resp, err := d.botClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProviderMemberRoles, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, core.ErrMemberNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", core.ErrProviderMemberRoles, resp.StatusCode, string(body))
	}

	var member discordMember
	if err := json.NewDecoder(resp.Body).Decode(&member); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProviderMemberRoles, err)
	}
	if member.Roles == nil {
		member.Roles = []string{}
	}
	return member.Roles, nil
}
