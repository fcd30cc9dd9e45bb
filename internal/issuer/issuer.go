// Package issuer creates, lists and deletes invite links on behalf of guild members.
package issuer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rolelink/entity"
	"rolelink/internal/config"
	"rolelink/lib/clock"
	"rolelink/lib/sl"
	"rolelink/lib/validate"
)

type Store interface {
	Insert(ctx context.Context, link *entity.InviteLink) error
	GetByID(ctx context.Context, linkID string) (*entity.InviteLink, error)
	ListByGuild(ctx context.Context, guildID string) ([]*entity.InviteLink, error)
	ListByCreator(ctx context.Context, userID string) ([]*entity.InviteLink, error)
	DeleteByID(ctx context.Context, linkID string) (bool, error)
}

// PremiumChecker reports whether a user bypasses the free-plan quotas.
type PremiumChecker interface {
	IsPremium(ctx context.Context, userID string) bool
}

// Actor is the member issuing a command.
type Actor struct {
	UserID         string
	GuildID        string
	CanManageGuild bool
}

// Scope selects which links an actor may list or delete.
type Scope int

const (
	ScopeGuild Scope = iota
	ScopeMine
)

type Service struct {
	store   Store
	premium PremiumChecker
	conf    config.IssuerConfig
	now     func() time.Time
	newID   func() (string, error)
	log     *slog.Logger
}

func New(store Store, premium PremiumChecker, conf config.IssuerConfig, log *slog.Logger) *Service {
	if store == nil {
		panic("issuer: store is nil")
	}
	return &Service{
		store:   store,
		premium: premium,
		conf:    conf,
		now:     time.Now,
		newID:   NewLinkID,
		log:     log.With(sl.Module("issuer")),
	}
}

// URL is the public redemption address of a link.
func (s *Service) URL(linkID string) string {
	return strings.TrimRight(s.conf.BaseURL, "/") + "/join/" + linkID
}

func (s *Service) CreateLink(ctx context.Context, req *entity.CreateLinkRequest) (*entity.InviteLink, error) {
	if !req.CanManageGuild {
		return nil, entity.ErrPermissionDenied
	}
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	log := s.log.With(
		slog.String("guild_id", req.GuildID),
		slog.String("role_id", req.RoleID),
		slog.String("actor_id", req.ActorID),
	)

	if err := s.checkQuota(ctx, req.ActorID, req.GuildID); err != nil {
		log.Debug("quota check failed", sl.Err(err))
		return nil, err
	}

	now := s.now()
	expiry, err := ParseExpiry(req.Expires, now)
	if err != nil {
		return nil, err
	}

	linkID, err := s.newID()
	if err != nil {
		return nil, err
	}

	link := &entity.InviteLink{
		LinkID:          linkID,
		GuildID:         req.GuildID,
		RoleID:          req.RoleID,
		CreatedByUserID: req.ActorID,
		MaxUses:         req.MaxUses,
		CurrentUses:     0,
		CreatedAt:       clock.Seconds(now),
		CreatedAtUnix:   now.Unix(),
	}
	if expiry != nil {
		link.ExpiresAt = expiry.Display
		link.ExpiresAtUnix = &expiry.Unix
	}

	if err = s.store.Insert(ctx, link); err != nil {
		return nil, fmt.Errorf("save link: %w", err)
	}
	log.Info("invite link created", sl.Link(linkID))
	return link, nil
}

func (s *Service) checkQuota(ctx context.Context, userID, guildID string) error {
	if s.premium != nil && s.premium.IsPremium(ctx, userID) {
		return nil
	}
	if s.conf.PersonalLinkLimit > 0 {
		links, err := s.store.ListByCreator(ctx, userID)
		if err != nil {
			return fmt.Errorf("count personal links: %w", err)
		}
		if len(links) >= s.conf.PersonalLinkLimit {
			return &entity.QuotaError{Limit: entity.QuotaPersonal, Max: s.conf.PersonalLinkLimit}
		}
	}
	if s.conf.GuildLinkLimit > 0 {
		links, err := s.store.ListByGuild(ctx, guildID)
		if err != nil {
			return fmt.Errorf("count guild links: %w", err)
		}
		if len(links) >= s.conf.GuildLinkLimit {
			return &entity.QuotaError{Limit: entity.QuotaGuild, Max: s.conf.GuildLinkLimit}
		}
	}
	return nil
}

// ListLinks returns the links visible in the given scope, newest first.
func (s *Service) ListLinks(ctx context.Context, actor Actor, scope Scope) ([]*entity.InviteLink, error) {
	var links []*entity.InviteLink
	var err error
	switch scope {
	case ScopeGuild:
		if !actor.CanManageGuild || actor.GuildID == "" {
			return nil, entity.ErrPermissionDenied
		}
		links, err = s.store.ListByGuild(ctx, actor.GuildID)
	case ScopeMine:
		links, err = s.store.ListByCreator(ctx, actor.UserID)
	default:
		return nil, fmt.Errorf("unknown scope %d", scope)
	}
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

// DeleteLink removes a link the actor is allowed to manage and returns the removed record.
// A link that is already gone yields entity.ErrLinkNotFound.
func (s *Service) DeleteLink(ctx context.Context, actor Actor, scope Scope, linkID string) (*entity.InviteLink, error) {
	link, err := s.store.GetByID(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	if link == nil {
		return nil, entity.ErrLinkNotFound
	}

	switch scope {
	case ScopeGuild:
		if !actor.CanManageGuild || link.GuildID != actor.GuildID {
			return nil, entity.ErrPermissionDenied
		}
	case ScopeMine:
		if link.CreatedByUserID != actor.UserID {
			return nil, entity.ErrPermissionDenied
		}
	default:
		return nil, fmt.Errorf("unknown scope %d", scope)
	}

	deleted, err := s.store.DeleteByID(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("delete link: %w", err)
	}
	if !deleted {
		return nil, entity.ErrLinkNotFound
	}
	s.log.Info("invite link deleted",
		sl.Link(linkID),
		slog.String("actor_id", actor.UserID),
	)
	return link, nil
}

// Status classifies a link for display at the current time.
func (s *Service) Status(link *entity.InviteLink) entity.LinkStatus {
	return link.Status(s.now().Unix())
}

// IsQuota reports whether err is a quota rejection.
// validationError reports the first rejected field with its value.
func validationError(err error) *entity.ValidationError {
	var fields validate.Errors
	if errors.As(err, &fields) && len(fields) > 0 {
		return &entity.ValidationError{Value: fields[0].Value, Reason: fields[0].String()}
	}
	return &entity.ValidationError{Reason: err.Error()}
}

func IsQuota(err error) bool {
	var qe *entity.QuotaError
	return errors.As(err, &qe)
}
