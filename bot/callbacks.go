package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rolelink/entity"
	"rolelink/internal/issuer"

	"github.com/bwmarrin/discordgo"
)

// Component custom id prefixes. Discord limits custom ids to 100 characters.
// Format: prefix + scope [+ ":" + link id], e.g. "sel:guild", "del:mine:abcdefghij".
const (
	cbSelect = "sel:"
	cbDelete = "del:"
	cbCancel = "cancel"

	scopeGuild = "guild"
	scopeMine  = "mine"
)

// --- Component builders ---

// selectMenu lists up to selectMenuLimit links for deletion.
func (b *Bot) selectMenu(ctx context.Context, links []*entity.InviteLink, scope issuer.Scope) []discordgo.MessageComponent {
	if len(links) > selectMenuLimit {
		links = links[:selectMenuLimit]
	}
	options := make([]discordgo.SelectMenuOption, 0, len(links))
	for _, link := range links {
		label := fmt.Sprintf("%s (%s)", b.roleName(ctx, link), link.LinkID)
		if scope == issuer.ScopeMine {
			label = fmt.Sprintf("%s - %s (%s)", b.guildName(ctx, link.GuildID), b.roleName(ctx, link), link.LinkID)
		}
		options = append(options, discordgo.SelectMenuOption{
			Label:       truncate(statusIcon(b.issuer.Status(link))+" "+label, 100),
			Value:       link.LinkID,
			Description: "Uses: " + link.UsageText(),
		})
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				CustomID:    cbSelect + scopeName(scope),
				Placeholder: "Select an invite link to delete",
				Options:     options,
			},
		}},
	}
}

func confirmButtons(scope issuer.Scope, linkID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "🗑️ Delete",
				Style:    discordgo.DangerButton,
				CustomID: cbDelete + scopeName(scope) + ":" + linkID,
			},
			discordgo.Button{
				Label:    "Cancel",
				Style:    discordgo.SecondaryButton,
				CustomID: cbCancel,
			},
		}},
	}
}

// --- Component handlers ---

func (b *Bot) handleComponent(ctx context.Context, i *discordgo.InteractionCreate) (*reply, error) {
	data := i.MessageComponentData()
	switch {
	case strings.HasPrefix(data.CustomID, cbSelect):
		scope, ok := parseScope(strings.TrimPrefix(data.CustomID, cbSelect))
		if !ok || len(data.Values) == 0 {
			return nil, fmt.Errorf("malformed select %q", data.CustomID)
		}
		return b.onSelect(ctx, i, scope, data.Values[0])
	case strings.HasPrefix(data.CustomID, cbDelete):
		scopeValue, linkID, found := strings.Cut(strings.TrimPrefix(data.CustomID, cbDelete), ":")
		scope, ok := parseScope(scopeValue)
		if !found || !ok || linkID == "" {
			return nil, fmt.Errorf("malformed delete %q", data.CustomID)
		}
		return b.onDelete(ctx, i, scope, linkID)
	case data.CustomID == cbCancel:
		return &reply{content: "Deletion cancelled.", update: true}, nil
	}
	return nil, fmt.Errorf("unknown component %q", data.CustomID)
}

// onSelect shows the confirmation step for the chosen link.
func (b *Bot) onSelect(ctx context.Context, i *discordgo.InteractionCreate, scope issuer.Scope, linkID string) (*reply, error) {
	links, err := b.issuer.ListLinks(ctx, actorOf(i), scope)
	if err != nil {
		if r := userError(err); r != nil {
			return r, nil
		}
		return nil, err
	}
	var link *entity.InviteLink
	for _, l := range links {
		if l.LinkID == linkID {
			link = l
			break
		}
	}
	if link == nil {
		return message(msgLinkGone), nil
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🗑️ Delete invite link?",
		Description: "The following invite link will be deleted.",
		Color:       colorDelete,
	}
	if scope == issuer.ScopeMine {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Server", Value: b.guildName(ctx, link.GuildID), Inline: true,
		})
	}
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "Role", Value: b.roleName(ctx, link), Inline: true},
		&discordgo.MessageEmbedField{Name: "Link ID", Value: link.LinkID, Inline: true},
		&discordgo.MessageEmbedField{Name: "Uses", Value: link.UsageText(), Inline: true},
	)
	return &reply{
		embeds:     []*discordgo.MessageEmbed{embed},
		components: confirmButtons(scope, link.LinkID),
	}, nil
}

func (b *Bot) onDelete(ctx context.Context, i *discordgo.InteractionCreate, scope issuer.Scope, linkID string) (*reply, error) {
	link, err := b.issuer.DeleteLink(ctx, actorOf(i), scope, linkID)
	if errors.Is(err, entity.ErrLinkNotFound) {
		return &reply{content: msgLinkGone, update: true}, nil
	}
	if err != nil {
		if r := userError(err); r != nil {
			return r, nil
		}
		return nil, err
	}

	embed := &discordgo.MessageEmbed{
		Title:       "✅ Deleted",
		Description: fmt.Sprintf("Invite link `%s` (%s) was deleted.", link.LinkID, b.roleName(ctx, link)),
		Color:       colorCreated,
	}
	return &reply{embeds: []*discordgo.MessageEmbed{embed}, update: true}, nil
}

func scopeName(scope issuer.Scope) string {
	if scope == issuer.ScopeMine {
		return scopeMine
	}
	return scopeGuild
}

func parseScope(value string) (issuer.Scope, bool) {
	switch value {
	case scopeGuild:
		return issuer.ScopeGuild, true
	case scopeMine:
		return issuer.ScopeMine, true
	}
	return 0, false
}
