package domain

import "time"

// AccountRegisteredEvent represents the payload for iam.account.registered messages.
// Reactivated is true when an existing deactivated account was restored
// through the registration flow instead of a new row being created.
type AccountRegisteredEvent struct {
	EventID      string
	AccountID    string
	Email        string
	Status       string
	Reactivated  bool
	RegisteredAt time.Time
}

// LoginLockedEvent represents the payload for iam.login.locked messages,
// emitted when consecutive failures trip the lockout threshold.
type LoginLockedEvent struct {
	EventID  string
	Email    string
	Failures int
	LockTTL  time.Duration
	LockedAt time.Time
}

// PasswordChangedEvent represents the payload for iam.account.password.changed messages.
type PasswordChangedEvent struct {
	EventID   string
	AccountID string
	ChangedAt time.Time
	ChangedBy string
}

// AccountDeactivatedEvent represents the payload for iam.account.deactivated messages.
type AccountDeactivatedEvent struct {
	EventID       string
	AccountID     string
	Email         string
	DeactivatedAt time.Time
}
