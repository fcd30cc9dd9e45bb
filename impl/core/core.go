package core

import (
	"context"
	"fmt"
	"log/slog"

	"rolelink/entity"
	"rolelink/internal/session"
	"rolelink/lib/sl"
)

type Redeemer interface {
	Resolve(ctx context.Context, linkID string) (*entity.Invitation, error)
	Redeem(ctx context.Context, pass session.Pass, code string) (*entity.Redemption, error)
}

type Authorizer interface {
	AuthCodeURL(state string) string
}

type Core struct {
	sessions session.Store
	redeem   Redeemer
	oauth    Authorizer
	log      *slog.Logger
}

func New(sessions session.Store, redeem Redeemer, oauth Authorizer, log *slog.Logger) Core {
	if sessions == nil || redeem == nil || oauth == nil {
		panic("core: sessions, redeemer and authorizer are required")
	}
	return Core{
		sessions: sessions,
		redeem:   redeem,
		oauth:    oauth,
		log:      log.With(sl.Module("core")),
	}
}

// Resolve validates the link and binds it to the browser session.
func (c Core) Resolve(ctx context.Context, sid, linkID string) (*entity.Invitation, error) {
	inv, err := c.redeem.Resolve(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if err = c.sessions.Put(ctx, sid, linkID); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return inv, nil
}

// Authorize issues a fresh state for the session and returns the provider URL.
func (c Core) Authorize(ctx context.Context, sid string) (string, error) {
	state, err := c.sessions.Arm(ctx, sid)
	if err != nil {
		return "", err
	}
	c.log.Debug("state issued", sl.Secret("state", state))
	return c.oauth.AuthCodeURL(state), nil
}

// Callback consumes the session slot, then completes the redemption.
// A missing slot or a wrong state fails before any provider call.
func (c Core) Callback(ctx context.Context, sid, state, code string) (*entity.Redemption, error) {
	pass, err := c.sessions.Take(ctx, sid, state)
	if err != nil {
		return nil, err
	}
	return c.redeem.Redeem(ctx, pass, code)
}
