package domain

import "time"

const (
	OrgStatusActive    = "active"
	OrgStatusSuspended = "suspended"
	OrgStatusDeleted   = "deleted"
)

type Organization struct {
	ID        string
	Name      string
	Status    string
	Settings  OrgSettings
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrgSettings is stored as a JSONB column. Zero values fall back to the
// defaults below at load time.
type OrgSettings struct {
	MaxLoginAttempts         int            `json:"max_login_attempts"`
	LockoutDuration          time.Duration  `json:"lockout_duration"`
	RequireEmailVerification bool           `json:"require_email_verification"`
	DefaultUserQuotaBytes    int64          `json:"default_user_quota_bytes"`
	SessionTTL               time.Duration  `json:"session_ttl"`
	AccessTokenTTL           time.Duration  `json:"access_token_ttl"`
	PasswordPolicy           PasswordPolicy `json:"password_policy"`
}

// PasswordPolicy is evaluated by the policy package. HistoryCount bounds how
// many previous hashes are kept per user.
type PasswordPolicy struct {
	MinLength        int           `json:"min_length"`
	RequireUppercase bool          `json:"require_uppercase"`
	RequireLowercase bool          `json:"require_lowercase"`
	RequireNumbers   bool          `json:"require_numbers"`
	RequireSymbols   bool          `json:"require_symbols"`
	HistoryCount     int           `json:"history_count"`
	MaxAge           time.Duration `json:"max_age"` // 0 disables expiry
}

// DefaultOrgSettings are applied to organizations that have not overridden
// anything.
func DefaultOrgSettings() OrgSettings {
	return OrgSettings{
		MaxLoginAttempts:         5,
		LockoutDuration:          15 * time.Minute,
		RequireEmailVerification: true,
		DefaultUserQuotaBytes:    5 << 30,
		SessionTTL:               7 * 24 * time.Hour,
		AccessTokenTTL:           15 * time.Minute,
		PasswordPolicy:           DefaultPasswordPolicy(),
	}
}

func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        12,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumbers:   true,
		RequireSymbols:   false,
		HistoryCount:     5,
	}
}
