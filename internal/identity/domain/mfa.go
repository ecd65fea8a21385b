package domain

import "time"

// MFAPendingToken bridges the two phases of an MFA login. The opaque token
// goes to the client, only its fingerprint is stored.
type MFAPendingToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// RecoveryCode is a single-use MFA fallback. Stored as a fingerprint,
// consumed by deletion.
type RecoveryCode struct {
	ID        string
	UserID    string
	CodeHash  string
	CreatedAt time.Time
}

// PasswordResetToken is emailed on forgot-password and consumed once.
type PasswordResetToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
