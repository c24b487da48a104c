package domain

import "time"

// AccountStatus enumerates the lifecycle states of an account.
type AccountStatus string

const (
	// AccountStatusNormal marks an account that may authenticate.
	AccountStatusNormal AccountStatus = "normal"
	// AccountStatusBanned marks an account barred by an operator.
	AccountStatusBanned AccountStatus = "banned"
	// AccountStatusDeactivated marks an account retired by its owner.
	AccountStatusDeactivated AccountStatus = "deactivated"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusNormal, AccountStatusBanned, AccountStatusDeactivated:
		return true
	default:
		return false
	}
}

// Account is the aggregate root for authentication. UpdatedAt doubles as the
// timestamp of the latest status change, which the reactivation cooldown is
// measured against.
type Account struct {
	ID           string
	Email        string
	Nickname     string
	PasswordHash string
	Status       AccountStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Sanitized returns a copy safe to hand to transport layers: the password
// hash is blanked.
func (a Account) Sanitized() Account {
	a.PasswordHash = ""
	return a
}

// LoginResult bundles a successful authentication outcome.
type LoginResult struct {
	Account      Account
	AccessToken  string
	RefreshToken string
}
