package identsdk

import (
	"time"

	"github.com/corvidmail/corvid/pkg/jwtx"
)

// ErrorResponse is the standard JSON error body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// TokenResponse is returned by login, MFA completion, refresh and SSO
// callbacks.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"` // always "Bearer"
	ExpiresIn    int    `json:"expires_in"` // access token lifetime in seconds

	// PasswordExpired signals that the password exceeded the policy's max
	// age. Authentication still succeeded.
	PasswordExpired bool `json:"password_expired,omitempty"`
}

// RegisterRequest creates a new account on a verified domain.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// RegisterResponse returns the new user and their first token pair.
type RegisterResponse struct {
	User  UserInfo      `json:"user"`
	Token TokenResponse `json:"token"`
}

// LoginRequest authenticates with email and password.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MFAVerifyRequest completes a login that was answered with mfa_required.
// Method is "totp" or "recovery_code".
type MFAVerifyRequest struct {
	MFAToken string `json:"mfa_token"`
	Method   string `json:"method"`
	Code     string `json:"code"`
}

// RefreshRequest rotates a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest revokes the session behind the given refresh token.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UserInfo is the public view of a user.
type UserInfo struct {
	ID           string    `json:"id"`
	OrgID        string    `json:"org_id"`
	Name         string    `json:"name"`
	PrimaryEmail string    `json:"primary_email"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	MFAEnabled   bool      `json:"mfa_enabled"`
	CreatedAt    time.Time `json:"created_at"`
}

// SessionInfo describes one device login.
type SessionInfo struct {
	ID           string    `json:"id"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
	Current      bool      `json:"current"`
}

// EmailAddressInfo is one address attached to a user.
type EmailAddressInfo struct {
	ID         string `json:"id"`
	Address    string `json:"address"`
	DomainID   string `json:"domain_id"`
	IsPrimary  bool   `json:"is_primary"`
	IsVerified bool   `json:"is_verified"`
}

// AddEmailRequest attaches an additional address to the caller.
type AddEmailRequest struct {
	Address string `json:"address"`
}

// MFAEnrollResponse starts TOTP enrollment. The secret is only returned
// here, never again.
type MFAEnrollResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
}

// MFAEnableRequest confirms enrollment with a live TOTP code.
type MFAEnableRequest struct {
	Code string `json:"code"`
}

// MFADisableRequest turns MFA off. Requires the current password.
type MFADisableRequest struct {
	Password string `json:"password"`
}

// RecoveryCodesResponse carries freshly generated single-use recovery
// codes. They are shown once.
type RecoveryCodesResponse struct {
	Codes []string `json:"codes"`
}

// RegenerateRecoveryCodesRequest replaces all recovery codes. Requires the
// current password.
type RegenerateRecoveryCodesRequest struct {
	Password string `json:"password"`
}

// ChangePasswordRequest rotates the caller's password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ForgotPasswordRequest starts a password reset. Always answers 204.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest completes a password reset with an emailed token.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// DomainInfo is the admin view of a mail domain.
type DomainInfo struct {
	ID                 string     `json:"id"`
	OrgID              string     `json:"org_id"`
	Name               string     `json:"name"`
	Status             string     `json:"status"`
	VerificationStatus string     `json:"verification_status"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// CreateDomainRequest registers a domain for the caller's organization.
// Method is "dns_txt" (default) or "dns_cname".
type CreateDomainRequest struct {
	Name   string `json:"name"`
	Method string `json:"method,omitempty"`
}

// DomainVerificationInstructions tells an admin which DNS record to create.
type DomainVerificationInstructions struct {
	Method      string `json:"method"`
	RecordName  string `json:"record_name"`
	RecordType  string `json:"record_type"`
	RecordValue string `json:"record_value"`
}

// CreateDomainResponse returns the pending domain and its DNS instructions.
type CreateDomainResponse struct {
	Domain       DomainInfo                     `json:"domain"`
	Instructions DomainVerificationInstructions `json:"instructions"`
}

// VerifyDomainResponse reports the outcome of a live DNS check.
type VerifyDomainResponse struct {
	Domain   DomainInfo `json:"domain"`
	Verified bool       `json:"verified"`
	Detail   string     `json:"detail,omitempty"`
}

// SSODiscoveryResponse tells a login UI whether a domain uses SSO.
type SSODiscoveryResponse struct {
	Configured bool   `json:"configured"`
	Provider   string `json:"provider,omitempty"` // "saml" or "oidc"
	Enforced   bool   `json:"enforced,omitempty"`
}

// InitiateSSOResponse carries the IdP redirect for a browser login.
type InitiateSSOResponse struct {
	RedirectURL string `json:"redirect_url"`
	RelayState  string `json:"relay_state"`
}

// SAMLConfigPayload configures a SAML identity provider for a domain.
type SAMLConfigPayload struct {
	IdPEntityID          string `json:"idp_entity_id"`
	IdPSSOURL            string `json:"idp_sso_url"`
	IdPSLOURL            string `json:"idp_slo_url,omitempty"`
	IdPCertificate       string `json:"idp_certificate"` // PEM
	WantAssertionsSigned *bool  `json:"want_assertions_signed,omitempty"`
	SPPrivateKey         string `json:"sp_private_key,omitempty"` // PEM
	SPCertificate        string `json:"sp_certificate,omitempty"` // PEM
}

// OIDCConfigPayload configures an OIDC identity provider for a domain.
type OIDCConfigPayload struct {
	Issuer       string   `json:"issuer"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RedirectURL  string   `json:"redirect_url,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
}

// ConfigureSSORequest upserts a domain's SSO configuration.
type ConfigureSSORequest struct {
	Provider      string             `json:"provider"` // "saml" or "oidc"
	Enabled       bool               `json:"enabled"`
	Enforce       bool               `json:"enforce"`
	AutoProvision bool               `json:"auto_provision"`
	DefaultRole   string             `json:"default_role,omitempty"`
	AttributeMap  map[string]string  `json:"attribute_map,omitempty"`
	SAML          *SAMLConfigPayload `json:"saml,omitempty"`
	OIDC          *OIDCConfigPayload `json:"oidc,omitempty"`
}

// SSOConfigInfo is the admin view of a domain's SSO configuration. Secrets
// are never echoed back.
type SSOConfigInfo struct {
	DomainID      string            `json:"domain_id"`
	Provider      string            `json:"provider"`
	Enabled       bool              `json:"enabled"`
	Enforce       bool              `json:"enforce"`
	AutoProvision bool              `json:"auto_provision"`
	DefaultRole   string            `json:"default_role"`
	AttributeMap  map[string]string `json:"attribute_map,omitempty"`
}

// HealthResponse is returned by the /livez and /readyz endpoints. Only
// /readyz fills Checks.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the status of critical dependencies.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// JWKSResponse contains the JSON Web Key Set served from
// /.well-known/jwks.json.
type JWKSResponse = jwtx.JWKS
