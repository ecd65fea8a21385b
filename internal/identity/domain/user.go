package domain

import "time"

const (
	UserStatusPending   = "pending"
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
	UserStatusDeleted   = "deleted"
)

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type User struct {
	ID           string
	OrgID        string
	Name         string
	PasswordHash *string // argon2 encoded, nil for SSO-only accounts
	Role         string
	Status       string

	MFAEnabled bool
	MFASecret  *string // TOTP secret (nullable, base32 encoded)

	FailedLoginCount  int
	LockedUntil       *time.Time
	PasswordChangedAt *time.Time
	LastLoginAt       *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Locked reports whether a lockout window is still active.
func (u *User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// SSOOnly reports whether the account has no password credential.
func (u *User) SSOOnly() bool {
	return u.PasswordHash == nil || *u.PasswordHash == ""
}
