package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"rolelink/entity"
	"rolelink/impl/auth"
	"rolelink/internal/issuer"
	"rolelink/internal/notify"
	"rolelink/lib/sl"

	"github.com/bwmarrin/discordgo"
)

const (
	msgManageGuildRequired = "❌ You need the Manage Server permission to use this command."
	msgLinkGone            = "❌ That invite link no longer exists."
	msgSomethingWrong      = "❌ Something went wrong. Please try again later."

	labelUnknownRole  = "unknown role"
	labelUnknownUser  = "unknown user"
	labelUnknownGuild = "unknown guild"
)

func message(text string) *reply {
	return &reply{content: text}
}

// actorOf reads the invoking user; Member is nil outside guilds.
func actorOf(i *discordgo.InteractionCreate) issuer.Actor {
	actor := issuer.Actor{GuildID: i.GuildID}
	if i.Member != nil {
		if i.Member.User != nil {
			actor.UserID = i.Member.User.ID
		}
		actor.CanManageGuild = auth.CanManageGuild(i.Member.Permissions)
	} else if i.User != nil {
		actor.UserID = i.User.ID
	}
	return actor
}

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

// stringOption also serves role options, whose value is the role id.
func stringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	opt, ok := opts[name]
	if !ok {
		return ""
	}
	value, _ := opt.Value.(string)
	return strings.TrimSpace(value)
}

func intOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) *int {
	opt, ok := opts[name]
	if !ok {
		return nil
	}
	value, ok := opt.Value.(float64)
	if !ok {
		return nil
	}
	n := int(value)
	return &n
}

func (b *Bot) guildName(ctx context.Context, guildID string) string {
	guild, err := b.lookup.Guild(ctx, guildID)
	if err != nil || guild == nil {
		return fmt.Sprintf("%s(%s)", labelUnknownGuild, guildID)
	}
	return guild.Name
}

func (b *Bot) roleName(ctx context.Context, link *entity.InviteLink) string {
	role, err := b.lookup.Role(ctx, link.GuildID, link.RoleID)
	if err != nil || role == nil {
		return labelUnknownRole
	}
	return role.Name
}

func statusIcon(status entity.LinkStatus) string {
	if status.Usable() {
		return "✅"
	}
	return "❌"
}

func statusText(status entity.LinkStatus) string {
	if status.Usable() {
		return "valid"
	}
	var reasons []string
	if status.Expired {
		reasons = append(reasons, "expired")
	}
	if status.Exhausted {
		reasons = append(reasons, "usage limit reached")
	}
	return strings.Join(reasons, "/")
}

func expiresText(link *entity.InviteLink) string {
	if link.ExpiresAt == "" {
		return "never"
	}
	return link.ExpiresAt
}

func roleMention(roleID string) string {
	return "<@&" + roleID + ">"
}

func userMention(userID string) string {
	return "<@" + userID + ">"
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}

// reportError logs the error, notifies admins with details, and returns a neutral message for the user.
func (b *Bot) reportError(i *discordgo.InteractionCreate, command string, err error) *reply {
	actor := actorOf(i)
	b.log.Error("bot command failed",
		slog.String("command", command),
		slog.String("user_id", actor.UserID),
		slog.String("guild_id", actor.GuildID),
		sl.Err(err),
	)
	if b.notifier != nil {
		b.notifier.SendMessageWithLevel(fmt.Sprintf(
			"Command `%s` failed\nUser: `%s`\nError: `%s`",
			notify.Sanitize(command), actor.UserID, notify.Sanitize(err.Error()),
		), slog.LevelError)
	}
	return message(msgSomethingWrong)
}
