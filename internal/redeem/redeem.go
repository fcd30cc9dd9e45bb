// Package redeem runs the join-then-role flow that turns an invite link into
// guild membership.
package redeem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rolelink/entity"
	"rolelink/internal/session"
	"rolelink/lib/sl"
)

// DefaultRoleName is shown when the role name cannot be looked up after a grant.
const DefaultRoleName = "the selected role"

type Provider interface {
	ExchangeCode(ctx context.Context, code string) (string, error)
	CurrentUser(ctx context.Context, accessToken string) (*entity.User, error)
	AddGuildMember(ctx context.Context, guildID, userID, accessToken string, roleIDs []string) (entity.JoinStatus, error)
	AssignRole(ctx context.Context, guildID, userID, roleID string) error
	Guild(ctx context.Context, guildID string) (*entity.Guild, error)
	Role(ctx context.Context, guildID, roleID string) (*entity.Role, error)
}

type Store interface {
	GetByID(ctx context.Context, linkID string) (*entity.InviteLink, error)
	IncrementUses(ctx context.Context, linkID string) (bool, error)
}

type Service struct {
	store    Store
	provider Provider
	now      func() time.Time
	log      *slog.Logger
}

func New(store Store, provider Provider, log *slog.Logger) *Service {
	if store == nil || provider == nil {
		panic("redeem: store and provider are required")
	}
	return &Service{
		store:    store,
		provider: provider,
		now:      time.Now,
		log:      log.With(sl.Module("redeem")),
	}
}

// Resolve returns the invitation behind a usable link.
// Every kind of unusable link yields entity.ErrLinkInvalid; other errors are transient.
func (s *Service) Resolve(ctx context.Context, linkID string) (*entity.Invitation, error) {
	log := s.log.With(sl.Link(linkID), slog.String("state", StateResolved.String()))

	link, err := s.usableLink(ctx, linkID)
	if err != nil {
		log.Debug("link rejected", sl.Err(err))
		return nil, err
	}

	guild, err := s.provider.Guild(ctx, link.GuildID)
	if err != nil {
		log.Error("get guild", sl.Err(err))
		return nil, err
	}
	if guild == nil {
		log.Debug("guild not reachable", slog.String("guild_id", link.GuildID))
		return nil, entity.ErrLinkInvalid
	}

	role, err := s.provider.Role(ctx, link.GuildID, link.RoleID)
	if err != nil {
		log.Error("get role", sl.Err(err))
		return nil, err
	}
	if role == nil {
		log.Debug("role not found", slog.String("role_id", link.RoleID))
		return nil, entity.ErrLinkInvalid
	}

	return &entity.Invitation{Link: link, Guild: guild, Role: role}, nil
}

// Redeem completes the flow for a consumed session slot and an authorization code.
func (s *Service) Redeem(ctx context.Context, pass session.Pass, code string) (*entity.Redemption, error) {
	linkID := pass.LinkID()
	log := s.log.With(sl.Link(linkID))

	reject := func(state State, err error) (*entity.Redemption, error) {
		log.Warn("redemption rejected",
			slog.String("state", state.String()),
			sl.Err(err),
		)
		return nil, err
	}

	if code == "" {
		return reject(StateAuthorizing, fmt.Errorf("%w: missing authorization code", entity.ErrLinkInvalid))
	}

	token, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return reject(StateAuthorizing, upstream("exchange code", err))
	}

	user, err := s.provider.CurrentUser(ctx, token)
	if err != nil {
		return reject(StateTokenExchanged, upstream("current user", err))
	}
	log = log.With(slog.String("user_id", user.ID))

	link, err := s.usableLink(ctx, linkID)
	if err != nil {
		return reject(StateIdentified, err)
	}

	status, err := s.provider.AddGuildMember(ctx, link.GuildID, user.ID, token, []string{link.RoleID})
	if err != nil {
		return reject(StateJoining, upstream("add guild member", err))
	}

	switch status {
	case entity.JoinNew:
		// The role was requested with the join; a failed second grant is only logged.
		if err = s.provider.AssignRole(ctx, link.GuildID, user.ID, link.RoleID); err != nil {
			log.Warn("assign role after join", sl.Err(err))
		}
	case entity.JoinExisting:
		if err = s.provider.AssignRole(ctx, link.GuildID, user.ID, link.RoleID); err != nil {
			return reject(StateJoining, upstream("assign role", err))
		}
	default:
		return reject(StateJoining, upstream("add guild member", fmt.Errorf("unexpected join status %s", status)))
	}

	s.increment(ctx, log, linkID)

	log.Info("role granted",
		slog.String("guild_id", link.GuildID),
		slog.String("role_id", link.RoleID),
		slog.String("join", status.String()),
		slog.String("state", StateRoleGranted.String()),
	)
	return &entity.Redemption{
		Username:    user.Username,
		RoleName:    s.roleName(ctx, link),
		IsReturning: status == entity.JoinExisting,
	}, nil
}

// usableLink fetches a link and applies the validity rule on the record itself.
func (s *Service) usableLink(ctx context.Context, linkID string) (*entity.InviteLink, error) {
	if linkID == "" {
		return nil, entity.ErrLinkInvalid
	}
	link, err := s.store.GetByID(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	if link == nil {
		return nil, entity.ErrLinkInvalid
	}
	if !link.Status(s.now().Unix()).Usable() {
		return nil, entity.ErrLinkInvalid
	}
	return link, nil
}

// increment failures leave the counter low; the grant already happened.
func (s *Service) increment(ctx context.Context, log *slog.Logger, linkID string) {
	ok, err := s.store.IncrementUses(ctx, linkID)
	if err != nil {
		log.Error("increment uses", sl.Err(err))
		return
	}
	if !ok {
		log.Warn("increment uses: link no longer exists")
	}
}

func (s *Service) roleName(ctx context.Context, link *entity.InviteLink) string {
	role, err := s.provider.Role(ctx, link.GuildID, link.RoleID)
	if err != nil || role == nil || role.Name == "" {
		return DefaultRoleName
	}
	return role.Name
}

func upstream(op string, err error) error {
	var ue *entity.UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return entity.Upstream(op, err)
}

// IsInvalid reports whether err should be shown as an invalid link rather than
// a temporary failure.
func IsInvalid(err error) bool {
	return errors.Is(err, entity.ErrLinkInvalid) ||
		errors.Is(err, session.ErrNoSlot) ||
		errors.Is(err, session.ErrStateMismatch)
}
