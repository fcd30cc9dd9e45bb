// Package bot implements the Discord side of invite links: slash commands to
// create, list and delete links.
//
//   - bot.go: Bot struct, Start/Stop and interaction dispatch
//   - menus.go: slash command definitions
//   - commands.go: /generate_invite_link, /list_server_invite_links, /list_my_invite_links
//   - callbacks.go: select menu and confirm/cancel buttons for deletion
//   - helpers.go: embeds, labels, option parsing, reportError
//
// Every reply is ephemeral. Handlers build a reply value; only dispatch talks to Discord.
package bot

import (
	"context"
	"log/slog"
	"time"

	"rolelink/entity"
	"rolelink/internal/issuer"
	"rolelink/lib/sl"

	"github.com/bwmarrin/discordgo"
)

const interactionTimeout = 10 * time.Second

type Issuer interface {
	CreateLink(ctx context.Context, req *entity.CreateLinkRequest) (*entity.InviteLink, error)
	ListLinks(ctx context.Context, actor issuer.Actor, scope issuer.Scope) ([]*entity.InviteLink, error)
	DeleteLink(ctx context.Context, actor issuer.Actor, scope issuer.Scope, linkID string) (*entity.InviteLink, error)
	URL(linkID string) string
	Status(link *entity.InviteLink) entity.LinkStatus
}

// Lookup resolves display names; nil results mean the object is gone.
type Lookup interface {
	Guild(ctx context.Context, guildID string) (*entity.Guild, error)
	Role(ctx context.Context, guildID, roleID string) (*entity.Role, error)
	UserName(ctx context.Context, userID string) (string, error)
}

// Notifier receives operator alerts; may be nil.
type Notifier interface {
	SendMessageWithLevel(msg string, level slog.Level)
}

type Bot struct {
	log      *slog.Logger
	session  *discordgo.Session
	issuer   Issuer
	lookup   Lookup
	notifier Notifier
	pageSize int
	commands map[string]command
	removeFn func()
}

type command struct {
	handler  func(ctx context.Context, i *discordgo.InteractionCreate) (*reply, error)
	deferred bool
}

// reply is what a handler wants shown; update replaces the message it came from.
type reply struct {
	content    string
	embeds     []*discordgo.MessageEmbed
	components []discordgo.MessageComponent
	update     bool
}

func New(session *discordgo.Session, iss Issuer, lookup Lookup, pageSize int, log *slog.Logger) *Bot {
	if pageSize <= 0 {
		pageSize = 10
	}
	b := &Bot{
		log:      log.With(sl.Module("bot")),
		session:  session,
		issuer:   iss,
		lookup:   lookup,
		pageSize: pageSize,
	}
	b.commands = b.commandTable()
	return b
}

func (b *Bot) SetNotifier(n Notifier) {
	b.notifier = n
}

// Start opens the gateway and registers the slash commands globally.
func (b *Bot) Start() error {
	b.removeFn = b.session.AddHandler(b.onInteraction)
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.log.Info("bot connected",
			slog.String("user", r.User.Username),
			slog.Int("guilds", len(r.Guilds)),
		)
	})

	if err := b.session.Open(); err != nil {
		return err
	}

	created, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, "", commandDefinitions)
	if err != nil {
		return err
	}
	b.log.Info("commands registered", slog.Int("count", len(created)))

	_ = b.session.UpdateWatchStatus(0, "invite links")
	return nil
}

func (b *Bot) Stop() {
	if b.removeFn != nil {
		b.removeFn()
	}
	if err := b.session.Close(); err != nil {
		b.log.Warn("closing session", sl.Err(err))
	}
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name := i.ApplicationCommandData().Name
		cmd, ok := b.commands[name]
		if !ok {
			return
		}
		if cmd.deferred {
			err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
			})
			if err != nil {
				b.log.Warn("defer response", slog.String("command", name), sl.Err(err))
				return
			}
		}
		r, err := cmd.handler(ctx, i)
		if err != nil {
			r = b.reportError(i, "/"+name, err)
		}
		b.send(s, i, r, cmd.deferred)
	case discordgo.InteractionMessageComponent:
		r, err := b.handleComponent(ctx, i)
		if err != nil {
			r = b.reportError(i, i.MessageComponentData().CustomID, err)
		}
		b.send(s, i, r, false)
	}
}

func (b *Bot) send(s *discordgo.Session, i *discordgo.InteractionCreate, r *reply, deferred bool) {
	if r == nil {
		return
	}
	// empty slices clear what an updated or deferred message carried
	if r.embeds == nil {
		r.embeds = []*discordgo.MessageEmbed{}
	}
	if r.components == nil {
		r.components = []discordgo.MessageComponent{}
	}
	var err error
	if deferred {
		edit := &discordgo.WebhookEdit{
			Content:    &r.content,
			Embeds:     &r.embeds,
			Components: &r.components,
		}
		_, err = s.InteractionResponseEdit(i.Interaction, edit)
	} else {
		responseType := discordgo.InteractionResponseChannelMessageWithSource
		if r.update {
			responseType = discordgo.InteractionResponseUpdateMessage
		}
		err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: responseType,
			Data: &discordgo.InteractionResponseData{
				Content:    r.content,
				Embeds:     r.embeds,
				Components: r.components,
				Flags:      discordgo.MessageFlagsEphemeral,
			},
		})
	}
	if err != nil {
		b.log.Warn("sending interaction response", sl.Err(err))
	}
}
