package domain

import "time"

// Login attempt methods.
const (
	LoginMethodPassword     = "password"
	LoginMethodRegistration = "registration"
	LoginMethodSSOSAML      = "sso_saml"
	LoginMethodSSOOIDC      = "sso_oidc"
)

// Audit actions written by the identity service.
const (
	AuditUserRegistered     = "user.registered"
	AuditUserLogin          = "user.login"
	AuditUserSSOLogin       = "user.sso_login"
	AuditUserLogout         = "user.logout"
	AuditUserLockedOut      = "user.locked_out"
	AuditPasswordChanged    = "user.password_changed"
	AuditPasswordReset      = "user.password_reset"
	AuditMFAEnabled         = "user.mfa_enabled"
	AuditMFADisabled        = "user.mfa_disabled"
	AuditEmailAdded         = "user.email_added"
	AuditEmailRemoved       = "user.email_removed"
	AuditPrimaryEmailSet    = "user.primary_email_changed"
	AuditSessionRevoked     = "session.revoked"
	AuditTokenRefreshed     = "token.refreshed"
	AuditTokenReuseDetected = "security.token_reuse_detected"
	AuditDomainCreated      = "domain.created"
	AuditDomainVerified     = "domain.verified"
	AuditSSOConfigured      = "domain.sso_configured"
	AuditSSODisabled        = "domain.sso_disabled"
)

// LoginAttempt is an append-only record of every authentication attempt,
// successful or not.
type LoginAttempt struct {
	ID        string
	OrgID     string
	UserID    *string // nil when the account does not exist
	Email     string
	Method    string
	Success   bool
	Reason    string // failure reason, empty on success
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// AuditLog is an append-only security event record.
type AuditLog struct {
	ID        string
	OrgID     string
	ActorID   *string // user who performed the action, nil for system
	Action    string
	TargetID  *string
	Detail    map[string]any
	IPAddress string
	CreatedAt time.Time
}
