package store

import (
	"context"
	"errors"
	"time"

	"github.com/corvidmail/corvid/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrStaleToken is returned by RotateSessionToken when the stored
	// fingerprint no longer matches the presented one. The caller treats
	// this as token reuse.
	ErrStaleToken = errors.New("store: refresh token fingerprint mismatch")

	// ErrSessionExpired is returned by RotateSessionToken when the session
	// row exists but is revoked or past its expiry.
	ErrSessionExpired = errors.New("store: session expired or revoked")
)

// Store is the root data access interface. Concrete drivers (postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and a Tx wrapper so multi-step operations like refresh rotation
// stay atomic.
type Store interface {
	Organizations() Organizations
	Users() Users
	EmailAddresses() EmailAddresses
	Domains() Domains
	Sessions() Sessions
	SSOConfigs() SSOConfigs
	SSOIdentities() SSOIdentities
	SSORequests() SSORequests
	MFA() MFA
	PasswordResets() PasswordResets
	Audit() Audit
	SigningKeys() SigningKeys

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction. If fn returns an
	// error the transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying pool.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Organizations interface {
	GetOrganizationByID(ctx context.Context, id string) (domain.Organization, error)

	CreateOrganization(ctx context.Context, o domain.Organization) error

	UpdateOrganizationSettings(ctx context.Context, id string, s domain.OrgSettings) error

	UpdateOrganizationStatus(ctx context.Context, id, status string) error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail resolves any of the user's addresses,
	// case-insensitively. Soft-deleted users are not returned.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUserBundle atomically inserts the user, their primary email
	// address and their mailbox. Call inside a Tx.
	CreateUserBundle(ctx context.Context, u domain.User, e domain.EmailAddress, m domain.Mailbox) error

	// UpdateLoginFailure increments failed_login_count and, when the new
	// count reaches maxAttempts, sets locked_until. Returns the new count.
	UpdateLoginFailure(ctx context.Context, userID string, maxAttempts int, lockUntil time.Time) (int, error)

	// UpdateLoginSuccess resets the failure counter, clears the lock and
	// stamps last_login_at.
	UpdateLoginSuccess(ctx context.Context, userID string, at time.Time) error

	// UpdatePasswordHash sets the password hash, stamps
	// password_changed_at, appends the old hash to the bounded history.
	UpdatePasswordHash(ctx context.Context, userID, newHash string, historyLimit int) error

	// GetPasswordHistory returns up to limit previous hashes, newest first.
	GetPasswordHistory(ctx context.Context, userID string, limit int) ([]string, error)

	UpdateUserStatus(ctx context.Context, userID, status string) error

	// UpdateMFASecret stores the TOTP secret without enabling MFA.
	UpdateMFASecret(ctx context.Context, userID, secret string) error

	// EnableMFA marks MFA enabled. The secret must already be stored.
	EnableMFA(ctx context.Context, userID string) error

	// DisableMFA clears the flag, the secret and all recovery codes.
	DisableMFA(ctx context.Context, userID string) error

	// SoftDeleteUser stamps deleted_at and anonymizes credentials.
	SoftDeleteUser(ctx context.Context, userID string) error
}

type EmailAddresses interface {
	GetEmailByID(ctx context.Context, id string) (domain.EmailAddress, error)

	// GetEmailByAddress is a case-insensitive lookup.
	GetEmailByAddress(ctx context.Context, address string) (domain.EmailAddress, error)

	// GetEmailByVerificationToken resolves a pending verification link.
	GetEmailByVerificationToken(ctx context.Context, token string) (domain.EmailAddress, error)

	ListUserEmails(ctx context.Context, userID string) ([]domain.EmailAddress, error)

	CreateEmail(ctx context.Context, e domain.EmailAddress) error

	// SetPrimary atomically demotes the current primary and promotes the
	// given address. Call inside a Tx.
	SetPrimary(ctx context.Context, userID, emailID string) error

	MarkVerified(ctx context.Context, emailID string) error

	// DeleteEmail refuses to delete a primary address.
	DeleteEmail(ctx context.Context, emailID string) error
}

type Domains interface {
	GetDomainByID(ctx context.Context, id string) (domain.Domain, error)

	// GetDomainByName is a case-insensitive lookup by domain name.
	GetDomainByName(ctx context.Context, name string) (domain.Domain, error)

	ListOrgDomains(ctx context.Context, orgID string) ([]domain.Domain, error)

	CreateDomain(ctx context.Context, d domain.Domain) error

	// UpdateVerification records the outcome of a DNS check. Verified
	// domains also move to status active.
	UpdateVerification(ctx context.Context, domainID, verificationStatus string, verifiedAt *time.Time) error

	UpdateDomainStatus(ctx context.Context, domainID, status string) error
}

type Sessions interface {
	GetSessionByID(ctx context.Context, id string) (domain.Session, error)

	CreateSession(ctx context.Context, s domain.Session) error

	// RotateSessionToken swaps the stored refresh-token fingerprint from
	// oldHash to newHash in one compare-and-swap, extending the session to
	// expiresAt so the row outlives every token it has vouched for.
	// Returns ErrStaleToken when the stored fingerprint is not oldHash
	// (reuse), ErrSessionExpired when the session is revoked or past
	// expiry, ErrNotFound when it does not exist.
	RotateSessionToken(ctx context.Context, sessionID, oldHash, newHash string, expiresAt, lastActivity time.Time) error

	RevokeSession(ctx context.Context, sessionID string) error

	// RevokeAllUserSessions returns the number of sessions revoked.
	RevokeAllUserSessions(ctx context.Context, userID string) (int, error)

	ListUserSessions(ctx context.Context, userID string) ([]domain.Session, error)

	// DeleteExpiredSessions is housekeeping.
	DeleteExpiredSessions(ctx context.Context) error
}

type SSOConfigs interface {
	// GetSSOConfigByDomain returns the config regardless of enabled state.
	GetSSOConfigByDomain(ctx context.Context, domainID string) (domain.SSOConfig, error)

	// UpsertSSOConfig creates or replaces a domain's configuration.
	UpsertSSOConfig(ctx context.Context, c domain.SSOConfig) error

	// DisableSSOConfig flips is_enabled off, keeping the row.
	DisableSSOConfig(ctx context.Context, domainID string) error
}

type SSOIdentities interface {
	// GetSSOIdentity looks up by the unique (domain, provider, provider
	// user id) triple.
	GetSSOIdentity(ctx context.Context, domainID, provider, providerUserID string) (domain.SSOIdentity, error)

	CreateSSOIdentity(ctx context.Context, i domain.SSOIdentity) error

	TouchSSOIdentity(ctx context.Context, id string, at time.Time) error
}

type SSORequests interface {
	CreateSSORequest(ctx context.Context, r domain.SSORequest) error

	// ConsumeSSORequest deletes and returns the pending request for the
	// relay state. Expired requests are not returned.
	ConsumeSSORequest(ctx context.Context, relayState string) (domain.SSORequest, error)

	DeleteExpiredSSORequests(ctx context.Context) error
}

type MFA interface {
	// CreatePendingToken stores the fingerprint of a login's MFA bridge
	// token.
	CreatePendingToken(ctx context.Context, t domain.MFAPendingToken) error

	// ConsumePendingToken deletes and returns the pending token by
	// fingerprint. Expired tokens are not returned.
	ConsumePendingToken(ctx context.Context, tokenHash string) (domain.MFAPendingToken, error)

	// ReplaceRecoveryCodes deletes all of the user's codes and stores the
	// new fingerprints. Call inside a Tx.
	ReplaceRecoveryCodes(ctx context.Context, userID string, codeHashes []string) error

	// ConsumeRecoveryCode deletes the code matching the fingerprint.
	// Returns ErrNotFound when no code matched.
	ConsumeRecoveryCode(ctx context.Context, userID, codeHash string) error

	DeleteExpiredPendingTokens(ctx context.Context) error
}

type PasswordResets interface {
	CreatePasswordReset(ctx context.Context, t domain.PasswordResetToken) error

	// ConsumePasswordReset deletes and returns the token by fingerprint.
	// Expired tokens are not returned.
	ConsumePasswordReset(ctx context.Context, tokenHash string) (domain.PasswordResetToken, error)

	DeleteExpiredPasswordResets(ctx context.Context) error
}

type Audit interface {
	CreateLoginAttempt(ctx context.Context, a domain.LoginAttempt) error

	CreateAuditLog(ctx context.Context, a domain.AuditLog) error

	ListAuditLogs(ctx context.Context, orgID string, limit int) ([]domain.AuditLog, error)
}

type SigningKeys interface {
	ListAllSigningKeys(ctx context.Context) ([]domain.SigningKey, error)

	ListActiveSigningKeys(ctx context.Context, now time.Time) ([]domain.SigningKey, error)

	CreateSigningKey(ctx context.Context, k domain.SigningKey) error

	RetireSigningKey(ctx context.Context, kid string, at time.Time) error

	DeleteExpiredSigningKeys(ctx context.Context, now time.Time) error
}
