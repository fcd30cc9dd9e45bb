// Package discord is the Identity Provider: OAuth2 code exchange, user info,
// guild join and role assignment against the Discord API.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"rolelink/entity"
	"rolelink/internal/config"
	"rolelink/lib/sl"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/oauth2"
)

var Scopes = []string{"identify", "guilds.join"}

type Client struct {
	bot      *discordgo.Session
	oauth    *oauth2.Config
	hc       *http.Client
	apiBase  string
	botToken string
	log      *slog.Logger
}

// NewSession creates a bot-authenticated session without opening the gateway.
// Failed REST calls are never retried.
func NewSession(conf config.DiscordConfig) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + conf.BotToken)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Client = &http.Client{Timeout: conf.RequestTimeout}
	s.MaxRestRetries = 0
	s.ShouldRetryOnRateLimit = false
	return s, nil
}

func NewClient(conf config.DiscordConfig, bot *discordgo.Session, log *slog.Logger) *Client {
	return &Client{
		bot: bot,
		oauth: &oauth2.Config{
			ClientID:     conf.ClientID,
			ClientSecret: conf.ClientSecret,
			RedirectURL:  conf.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   discordgo.EndpointOAuth2 + "authorize",
				TokenURL:  discordgo.EndpointOAuth2 + "token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		hc:       &http.Client{Timeout: conf.RequestTimeout},
		apiBase:  discordgo.EndpointAPI,
		botToken: conf.BotToken,
		log:      log.With(sl.Module("discord")),
	}
}

func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.hc)
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return "", entity.Upstream("exchange code", err)
	}
	if token.AccessToken == "" {
		return "", entity.Upstream("exchange code", errors.New("empty access token"))
	}
	return token.AccessToken, nil
}

func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*entity.User, error) {
	us, err := discordgo.New("Bearer " + accessToken)
	if err != nil {
		return nil, entity.Upstream("current user", err)
	}
	us.Client = c.hc
	us.MaxRestRetries = 0
	us.ShouldRetryOnRateLimit = false

	u, err := us.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return nil, entity.Upstream("current user", err)
	}
	username := u.Username
	if username == "" {
		username = "Unknown"
	}
	return &entity.User{ID: u.ID, Username: username}, nil
}

type addMemberParams struct {
	AccessToken string   `json:"access_token"`
	Roles       []string `json:"roles,omitempty"`
}

// AddGuildMember adds the user with the bot credential plus the user's token.
// The raw status decides the flow, so the call bypasses discordgo's helper.
func (c *Client) AddGuildMember(ctx context.Context, guildID, userID, accessToken string, roleIDs []string) (entity.JoinStatus, error) {
	log := c.log.With(
		slog.String("guild_id", guildID),
		slog.String("user_id", userID),
	)

	body, err := json.Marshal(addMemberParams{AccessToken: accessToken, Roles: roleIDs})
	if err != nil {
		return entity.JoinUnknown, err
	}
	endpoint := fmt.Sprintf("%sguilds/%s/members/%s", c.apiBase, guildID, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return entity.JoinUnknown, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+c.botToken)

	t1 := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return entity.JoinUnknown, entity.Upstream("add guild member", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	log.Debug("add guild member",
		slog.Int("status", resp.StatusCode),
		slog.Float64("duration", time.Since(t1).Seconds()),
	)

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusNoContent:
		return entity.JoinNew, nil
	case http.StatusOK:
		return entity.JoinExisting, nil
	}
	return entity.JoinUnknown, entity.Upstream("add guild member",
		fmt.Errorf("unexpected status %s: %s", resp.Status, data))
}

func (c *Client) AssignRole(ctx context.Context, guildID, userID, roleID string) error {
	err := c.bot.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
	if err != nil {
		return entity.Upstream("assign role", err)
	}
	return nil
}

// Guild returns nil without error when the bot cannot see the guild.
func (c *Client) Guild(ctx context.Context, guildID string) (*entity.Guild, error) {
	g, err := c.bot.State.Guild(guildID)
	if err != nil {
		g, err = c.bot.Guild(guildID, discordgo.WithContext(ctx))
	}
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, entity.Upstream("get guild", err)
	}
	guild := &entity.Guild{ID: g.ID, Name: g.Name}
	if g.Icon != "" {
		guild.IconURL = discordgo.EndpointGuildIcon(g.ID, g.Icon)
	}
	return guild, nil
}

// Role returns nil without error when the role no longer exists.
func (c *Client) Role(ctx context.Context, guildID, roleID string) (*entity.Role, error) {
	if r, err := c.bot.State.Role(guildID, roleID); err == nil {
		return &entity.Role{ID: r.ID, Name: r.Name}, nil
	}
	roles, err := c.bot.GuildRoles(guildID, discordgo.WithContext(ctx))
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, entity.Upstream("get roles", err)
	}
	for _, r := range roles {
		if r.ID == roleID {
			return &entity.Role{ID: r.ID, Name: r.Name}, nil
		}
	}
	return nil, nil
}

// MemberRoles lists the role ids of a guild member; nil when not a member.
func (c *Client) MemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	m, err := c.bot.State.Member(guildID, userID)
	if err != nil {
		m, err = c.bot.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	}
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, entity.Upstream("get member", err)
	}
	return m.Roles, nil
}

// UserName prefers the global display name over the username.
func (c *Client) UserName(ctx context.Context, userID string) (string, error) {
	u, err := c.bot.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", entity.Upstream("get user", err)
	}
	if u.GlobalName != "" {
		return u.GlobalName, nil
	}
	return u.Username, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return true
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		code := restErr.Response.StatusCode
		return code == http.StatusNotFound || code == http.StatusForbidden
	}
	return false
}
