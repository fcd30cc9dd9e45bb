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

const (
	colorCreated = 0x00ff00
	colorList    = 0x0099ff
	colorDelete  = 0xff0000

	// selectMenuLimit is the Discord cap on select menu options.
	selectMenuLimit = 25
)

func (b *Bot) commandTable() map[string]command {
	return map[string]command{
		cmdGenerate:   {handler: b.generate, deferred: true},
		cmdListServer: {handler: b.listServer, deferred: true},
		cmdListMine:   {handler: b.listMine, deferred: true},
	}
}

func (b *Bot) generate(ctx context.Context, i *discordgo.InteractionCreate) (*reply, error) {
	actor := actorOf(i)
	if i.GuildID == "" || !actor.CanManageGuild {
		return message(msgManageGuildRequired), nil
	}

	opts := optionMap(i.ApplicationCommandData().Options)
	req := &entity.CreateLinkRequest{
		GuildID:        i.GuildID,
		RoleID:         stringOption(opts, optRole),
		ActorID:        actor.UserID,
		CanManageGuild: actor.CanManageGuild,
		MaxUses:        intOption(opts, optMaxUses),
		Expires:        stringOption(opts, optExpires),
	}

	link, err := b.issuer.CreateLink(ctx, req)
	if err != nil {
		if r := userError(err); r != nil {
			return r, nil
		}
		return nil, err
	}

	guildName := b.guildName(ctx, link.GuildID)
	url := b.issuer.URL(link.LinkID)
	embed := &discordgo.MessageEmbed{
		Title: "🎉 Invite link created",
		Color: colorCreated,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Server", Value: guildName, Inline: true},
			{Name: "Role", Value: roleMention(link.RoleID), Inline: true},
			{Name: "Link ID", Value: link.LinkID, Inline: true},
			{Name: "Created by", Value: userMention(link.CreatedByUserID), Inline: true},
			{Name: "Invite link", Value: fmt.Sprintf("[Click here](%s)", url)},
			{Name: "Direct URL", Value: "`" + url + "`"},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Created: " + link.CreatedAt},
	}
	if link.MaxUses != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Max uses", Value: fmt.Sprint(*link.MaxUses), Inline: true,
		})
	}
	if link.ExpiresAt != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Expires (JST)", Value: link.ExpiresAt, Inline: true,
		})
	}
	return &reply{embeds: []*discordgo.MessageEmbed{embed}}, nil
}

func (b *Bot) listServer(ctx context.Context, i *discordgo.InteractionCreate) (*reply, error) {
	actor := actorOf(i)
	if i.GuildID == "" || !actor.CanManageGuild {
		return message(msgManageGuildRequired), nil
	}

	links, err := b.issuer.ListLinks(ctx, actor, issuer.ScopeGuild)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return message("📝 This server has no invite links."), nil
	}

	embed := &discordgo.MessageEmbed{
		Title:       "📋 Server role invite links",
		Description: fmt.Sprintf("Invite links of %s", b.guildName(ctx, i.GuildID)),
		Color:       colorList,
	}
	for n, link := range b.page(links) {
		creator, err := b.lookup.UserName(ctx, link.CreatedByUserID)
		if err != nil {
			creator = labelUnknownUser
		}
		lines := []string{
			fmt.Sprintf("**Link ID:** `%s`", link.LinkID),
			fmt.Sprintf("**URL:** %s", b.issuer.URL(link.LinkID)),
			fmt.Sprintf("**Uses:** %s", link.UsageText()),
			fmt.Sprintf("**Expires:** %s", expiresText(link)),
			fmt.Sprintf("**Created by:** %s", creator),
			fmt.Sprintf("**Status:** %s", statusText(b.issuer.Status(link))),
		}
		embed.Fields = append(embed.Fields, linkField(n+1, b.issuer.Status(link), b.roleName(ctx, link), lines))
	}
	b.pageFooter(embed, len(links))

	return &reply{
		embeds:     []*discordgo.MessageEmbed{embed},
		components: b.selectMenu(ctx, links, issuer.ScopeGuild),
	}, nil
}

func (b *Bot) listMine(ctx context.Context, i *discordgo.InteractionCreate) (*reply, error) {
	actor := actorOf(i)

	links, err := b.issuer.ListLinks(ctx, actor, issuer.ScopeMine)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return message("📝 You have not created any invite links."), nil
	}

	embed := &discordgo.MessageEmbed{
		Title:       "📋 Your invite links",
		Description: fmt.Sprintf("Created by: %s", userMention(actor.UserID)),
		Color:       colorList,
	}
	for n, link := range b.page(links) {
		lines := []string{
			fmt.Sprintf("**Server:** %s", b.guildName(ctx, link.GuildID)),
			fmt.Sprintf("**Link ID:** `%s`", link.LinkID),
			fmt.Sprintf("**URL:** %s", b.issuer.URL(link.LinkID)),
			fmt.Sprintf("**Uses:** %s", link.UsageText()),
			fmt.Sprintf("**Expires:** %s", expiresText(link)),
			fmt.Sprintf("**Created:** %s", link.CreatedAt),
			fmt.Sprintf("**Status:** %s", statusText(b.issuer.Status(link))),
		}
		embed.Fields = append(embed.Fields, linkField(n+1, b.issuer.Status(link), b.roleName(ctx, link), lines))
	}
	b.pageFooter(embed, len(links))

	return &reply{
		embeds:     []*discordgo.MessageEmbed{embed},
		components: b.selectMenu(ctx, links, issuer.ScopeMine),
	}, nil
}

func (b *Bot) page(links []*entity.InviteLink) []*entity.InviteLink {
	if len(links) > b.pageSize {
		return links[:b.pageSize]
	}
	return links
}

func (b *Bot) pageFooter(embed *discordgo.MessageEmbed, total int) {
	if total > b.pageSize {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%d more invite links not shown", total-b.pageSize),
		}
	}
}

func linkField(n int, status entity.LinkStatus, roleName string, lines []string) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{
		Name:  fmt.Sprintf("%s %d. %s", statusIcon(status), n, roleName),
		Value: strings.Join(lines, "\n"),
	}
}

// userError turns rejections the actor can act on into a visible message.
func userError(err error) *reply {
	var ve *entity.ValidationError
	var qe *entity.QuotaError
	switch {
	case errors.Is(err, entity.ErrPermissionDenied):
		return message(msgManageGuildRequired)
	case errors.As(err, &ve):
		return message("❌ " + ve.Error())
	case errors.As(err, &qe):
		return message(fmt.Sprintf("❌ %s. Upgrade to premium or delete existing links.", qe.Error()))
	}
	return nil
}
