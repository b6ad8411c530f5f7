package model

import "time"

// Purpose scopes a verification code to one flow.
type Purpose string

const (
	PurposeRegister Purpose = "register"
	PurposeReset    Purpose = "reset"
)

// EmailCode is one issued verification code. Only the HMAC of the code is stored.
// PasswordHash carries the pending password of a registration.
type EmailCode struct {
	ID           int64
	Email        string
	Purpose      Purpose
	CodeHash     string
	PasswordHash string
	ExpiresAt    time.Time
	UsedAt       *time.Time
	AttemptCount int
	LockedUntil  *time.Time
	CreatedAt    time.Time
}

// LockedAt reports whether the code blocks issuing and verifying at now.
func (c *EmailCode) LockedAt(now time.Time) bool {
	return c.LockedUntil != nil && c.LockedUntil.After(now)
}

// ActiveAt reports whether the code can still be redeemed at now.
func (c *EmailCode) ActiveAt(now time.Time) bool {
	return c.UsedAt == nil && c.ExpiresAt.After(now)
}
