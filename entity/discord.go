package entity

import "strconv"

// Guild is the subset of a Discord guild the redemption pages need.
type Guild struct {
	ID      string
	Name    string
	IconURL string
}

// Initial is the fallback shown when the guild has no icon.
func (g *Guild) Initial() string {
	for _, r := range g.Name {
		return string(r)
	}
	return "?"
}

type Role struct {
	ID   string
	Name string
}

// User is the identity returned by the OAuth user-info call.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Invitation is a resolved, currently valid link with its guild and role.
type Invitation struct {
	Link  *InviteLink
	Guild *Guild
	Role  *Role
}

// Redemption is the outcome of a completed join-then-role flow.
type Redemption struct {
	Username    string
	RoleName    string
	IsReturning bool
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// JoinStatus is the outcome of the add-member call.
type JoinStatus int

const (
	JoinUnknown JoinStatus = iota
	// JoinNew means the user was added to the guild (201 or 204).
	JoinNew
	// JoinExisting means the user was already a member (200).
	JoinExisting
)

func (s JoinStatus) String() string {
	switch s {
	case JoinNew:
		return "new"
	case JoinExisting:
		return "existing"
	}
	return "unknown"
}
