package redeem

// State is the step a redemption attempt has reached.
type State int

const (
	StateResolved State = iota
	StateAuthorizing
	StateTokenExchanged
	StateIdentified
	StateJoining
	StateRoleGranted
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateResolved:
		return "resolved"
	case StateAuthorizing:
		return "authorizing"
	case StateTokenExchanged:
		return "token_exchanged"
	case StateIdentified:
		return "identified"
	case StateJoining:
		return "joining"
	case StateRoleGranted:
		return "role_granted"
	case StateRejected:
		return "rejected"
	}
	return "unknown"
}
