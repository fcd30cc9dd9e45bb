package entity

import (
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	// ErrLinkInvalid covers absent, expired, exhausted and orphaned links alike.
	ErrLinkInvalid   = errors.New("invalid or expired link")
	ErrLinkNotFound  = errors.New("link not found")
	ErrDuplicateLink = errors.New("duplicate link id")
)

// ValidationError reports bad user input together with the offending value.
type ValidationError struct {
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return "invalid input: " + e.Reason
	}
	if e.Reason == "" {
		return fmt.Sprintf("invalid value: %q", e.Value)
	}
	return fmt.Sprintf("invalid value %q: %s", e.Value, e.Reason)
}

type QuotaLimit string

const (
	QuotaPersonal QuotaLimit = "personal"
	QuotaGuild    QuotaLimit = "guild"
)

type QuotaError struct {
	Limit QuotaLimit
	Max   int
}

func (e *QuotaError) Error() string {
	switch e.Limit {
	case QuotaPersonal:
		return fmt.Sprintf("personal link limit reached: at most %d links per user", e.Max)
	case QuotaGuild:
		return fmt.Sprintf("guild link limit reached: at most %d links per server", e.Max)
	}
	return fmt.Sprintf("%s limit reached: %d", e.Limit, e.Max)
}

// UpstreamError wraps a failed Identity Provider call.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func Upstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}
