package entity

import (
	"net/http"
	"rolelink/lib/validate"
)

// InviteLink binds a short public identifier to a guild role.
// CurrentUses only grows, and only after a successful join or role grant.
// ExpiresAt and CreatedAt are display strings; the *Unix fields are authoritative.
type InviteLink struct {
	LinkID          string `json:"link_id" bson:"link_id"`
	GuildID         string `json:"guild_id" bson:"guild_id"`
	RoleID          string `json:"role_id" bson:"role_id"`
	CreatedByUserID string `json:"created_by_user_id" bson:"created_by_user_id"`
	MaxUses         *int   `json:"max_uses,omitempty" bson:"max_uses,omitempty"`
	CurrentUses     int    `json:"current_uses" bson:"current_uses"`
	ExpiresAt       string `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
	ExpiresAtUnix   *int64 `json:"expires_at_unix,omitempty" bson:"expires_at_unix,omitempty"`
	CreatedAt       string `json:"created_at" bson:"created_at"`
	CreatedAtUnix   int64  `json:"created_at_unix" bson:"created_at_unix"`
}

// LinkStatus is the display classification of a link at a point in time.
type LinkStatus struct {
	Expired   bool
	Exhausted bool
}

func (s LinkStatus) Usable() bool {
	return !s.Expired && !s.Exhausted
}

// IsExpired reports whether the link is past its expiry; equality still counts as valid.
func (l *InviteLink) IsExpired(nowUnix int64) bool {
	if l.ExpiresAtUnix == nil {
		return false
	}
	return nowUnix > *l.ExpiresAtUnix
}

func (l *InviteLink) IsExhausted() bool {
	if l.MaxUses == nil {
		return false
	}
	return l.CurrentUses >= *l.MaxUses
}

func (l *InviteLink) Status(nowUnix int64) LinkStatus {
	return LinkStatus{
		Expired:   l.IsExpired(nowUnix),
		Exhausted: l.IsExhausted(),
	}
}

// UsageText renders "current/max", with "unlimited" when no cap is set.
func (l *InviteLink) UsageText() string {
	limit := "unlimited"
	if l.MaxUses != nil {
		limit = itoa(*l.MaxUses)
	}
	return itoa(l.CurrentUses) + "/" + limit
}

// CreateLinkRequest carries the issuer-side input for a new link.
type CreateLinkRequest struct {
	GuildID string `json:"guild_id" validate:"required,numeric"`
	RoleID  string `json:"role_id" validate:"required,numeric"`
	ActorID string `json:"actor_id" validate:"required,numeric"`
	// CanManageGuild is resolved by the caller from the actor's guild permissions.
	CanManageGuild bool   `json:"-"`
	MaxUses        *int   `json:"max_uses" validate:"omitempty,min=1"`
	Expires        string `json:"expires" validate:"omitempty,max=32"`
}

func (r *CreateLinkRequest) Bind(_ *http.Request) error {
	return validate.Struct(r)
}
