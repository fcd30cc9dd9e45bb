package bot

import (
	"github.com/bwmarrin/discordgo"
)

const (
	cmdGenerate   = "generate_invite_link"
	cmdListServer = "list_server_invite_links"
	cmdListMine   = "list_my_invite_links"

	optRole    = "role"
	optMaxUses = "max_uses"
	optExpires = "expires_at"
)

var (
	minMaxUses        = 1.0
	manageGuild int64 = discordgo.PermissionManageGuild
	dmAllowed         = false
)

// commandDefinitions are registered globally on start.
// Manage-guild commands are hidden from members without the permission,
// handlers still check it.
var commandDefinitions = []*discordgo.ApplicationCommand{
	{
		Name:                     cmdGenerate,
		Description:              "Create a role invite link",
		DefaultMemberPermissions: &manageGuild,
		DMPermission:             &dmAllowed,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionRole,
				Name:        optRole,
				Description: "Role granted by the link",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        optMaxUses,
				Description: "Maximum number of uses (e.g. 5)",
				MinValue:    &minMaxUses,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        optExpires,
				Description: "Expiry, JST (e.g. 7d, 24h, 2024-12-31, 2024-12-31 23:59)",
				MaxLength:   32,
			},
		},
	},
	{
		Name:                     cmdListServer,
		Description:              "List and delete this server's role invite links",
		DefaultMemberPermissions: &manageGuild,
		DMPermission:             &dmAllowed,
	},
	{
		Name:        cmdListMine,
		Description: "List and delete the invite links you created",
	},
}
