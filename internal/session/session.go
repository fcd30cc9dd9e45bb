// Package session keeps the per-browser redemption slot: the link chosen on the
// confirmation page and the anti-forgery state issued at authorize time.
//
// A slot is removed on the first Take, whatever the outcome, so a callback URL
// can never be replayed. The only way to obtain a Pass is a successful Take.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	ErrNoSlot        = errors.New("session slot not found")
	ErrStateMismatch = errors.New("oauth state mismatch")
)

// Pass proves that a session slot was consumed exactly once.
type Pass struct {
	linkID string
}

func (p Pass) LinkID() string {
	return p.linkID
}

type Store interface {
	// Put binds linkID to the session, discarding any previously issued state.
	Put(ctx context.Context, sid, linkID string) error
	// Arm issues a fresh state for an existing slot.
	Arm(ctx context.Context, sid string) (string, error)
	// Take pops the slot and checks state against the issued one.
	Take(ctx context.Context, sid, state string) (Pass, error)
}

type slot struct {
	LinkID string `json:"link_id"`
	State  string `json:"state,omitempty"`
}

// NewState returns 16 random bytes, URL-safe base64 encoded.
func NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// redeem validates a popped slot.
func redeem(s slot, state string) (Pass, error) {
	if s.LinkID == "" {
		return Pass{}, ErrNoSlot
	}
	if state == "" || s.State == "" || subtle.ConstantTimeCompare([]byte(state), []byte(s.State)) != 1 {
		return Pass{}, ErrStateMismatch
	}
	return Pass{linkID: s.LinkID}, nil
}
