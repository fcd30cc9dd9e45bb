// Package auth decides what a guild member is allowed to do with invite links.
package auth

import (
	"context"
	"log/slog"
	"slices"

	"rolelink/lib/sl"

	"github.com/bwmarrin/discordgo"
)

type Members interface {
	MemberRoles(ctx context.Context, guildID, userID string) ([]string, error)
}

type Auth struct {
	members     Members
	homeGuildID string
	premiumRole string
	log         *slog.Logger
}

func New(members Members, homeGuildID, premiumRoleID string, log *slog.Logger) *Auth {
	return &Auth{
		members:     members,
		homeGuildID: homeGuildID,
		premiumRole: premiumRoleID,
		log:         log.With(sl.Module("auth")),
	}
}

// IsPremium reports membership in the premium role of the home guild.
// Lookup failures count as not premium.
func (a *Auth) IsPremium(ctx context.Context, userID string) bool {
	if a.members == nil || a.homeGuildID == "" || a.premiumRole == "" {
		return false
	}
	roles, err := a.members.MemberRoles(ctx, a.homeGuildID, userID)
	if err != nil {
		a.log.Warn("premium check",
			slog.String("user_id", userID),
			sl.Err(err),
		)
		return false
	}
	return slices.Contains(roles, a.premiumRole)
}

// CanManageGuild checks the interaction member permissions.
func CanManageGuild(permissions int64) bool {
	return permissions&(discordgo.PermissionManageGuild|discordgo.PermissionAdministrator) != 0
}
