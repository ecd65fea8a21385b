package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials deliberately covers unknown accounts, wrong
	// passwords and unusable domains so callers cannot enumerate users.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrAccountLocked   = errors.New("account temporarily locked")
	ErrAccountDisabled = errors.New("account disabled")
	ErrAccountPending  = errors.New("account pending email verification")

	// ErrOrganizationInactive blocks registration and login under a
	// suspended or deleted organization.
	ErrOrganizationInactive = errors.New("organization is not active")

	// ErrSSOEnforced rejects password login for domains whose SSO config
	// has enforce set, and for accounts without a password credential.
	ErrSSOEnforced = errors.New("single sign-on required for this domain")

	ErrMFAInvalidCode    = errors.New("invalid MFA code")
	ErrMFANotEnabled     = errors.New("MFA not enabled for this user")
	ErrMFAAlreadyEnabled = errors.New("MFA already enabled for this user")
	ErrMFANotEnrolled    = errors.New("MFA enrollment not started")

	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrSessionExpired means the token itself verified but its session is
	// revoked or past expiry. The caller must authenticate again.
	ErrSessionExpired = errors.New("session expired or revoked")

	// ErrTokenReuse means a rotated-away refresh token was presented. All
	// of the user's sessions are revoked before this is returned.
	ErrTokenReuse = errors.New("refresh token reuse detected")

	ErrEmailExists       = errors.New("email address already in use")
	ErrDomainExists      = errors.New("domain already registered")
	ErrDomainNotFound    = errors.New("domain not registered")
	ErrDomainNotVerified = errors.New("domain not verified")

	ErrPrimaryEmail     = errors.New("primary address cannot be removed")
	ErrEmailNotVerified = errors.New("address not verified")
	ErrPermissionDenied = errors.New("permission denied")

	ErrSSONotConfigured   = errors.New("single sign-on not configured for this domain")
	ErrUserNotProvisioned = errors.New("no account for this identity and auto-provisioning is off")
)

// MFARequiredError interrupts a login whose password checked out but whose
// account has MFA enabled. The token bridges to CompleteMFA.
type MFARequiredError struct {
	Token   string
	Methods []string
}

func (e *MFARequiredError) Error() string {
	return fmt.Sprintf("mfa required (methods: %v)", e.Methods)
}
