package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants. These provide sensible security defaults
// but can be overridden per-service via configuration.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	// Short-lived for security - typical range is 15m to 1h.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	// Longer-lived for user convenience - typical range is 7d to 30d.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenTypeRefresh marks a token as a refresh token via the token_type claim.
// Access tokens omit the claim entirely.
const TokenTypeRefresh = "refresh"

// Claims are the token claims used across the platform. A user can hold
// addresses on several domains of one organization, so the claims carry the
// full domain scope rather than a single tenant id. We keep changes additive
// to preserve compatibility for downstream services.
type Claims struct {
	jwt.RegisteredClaims

	/* Cross-service custom fields */

	// OrgID is the organization (tenant) the subject belongs to.
	OrgID string `json:"org_id,omitempty"`

	// PrimaryDomainID is the domain of the subject's primary email address.
	PrimaryDomainID string `json:"primary_domain_id,omitempty"`

	// Email is the subject's primary email address.
	Email string `json:"email,omitempty"`

	// Name is the display name for the subject.
	Name string `json:"name,omitempty"`

	// Role is the subject's organization-level role.
	Role string `json:"role,omitempty"`

	// Domains lists every domain the subject holds an address on.
	Domains []string `json:"domains,omitempty"`

	// DomainRoles maps domain id to the subject's role on that domain.
	DomainRoles map[string]string `json:"domain_roles,omitempty"`

	// SID is the session this token belongs to. Refresh validation uses it
	// to locate the session record.
	SID string `json:"sid,omitempty"`

	// MFAVerified reports whether this session passed an MFA challenge
	// (or federated SSO, which counts as verified).
	MFAVerified bool `json:"mfa_verified,omitempty"`

	// TokenType is "refresh" for refresh tokens and empty for access tokens.
	TokenType string `json:"token_type,omitempty"`
}

// IsRefresh reports whether the claims belong to a refresh token.
func (c *Claims) IsRefresh() bool { return c.TokenType == TokenTypeRefresh }

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}

// ValidateExpiryWithLeeway adds a small grace period for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(leeway time.Duration) error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}
