package domain

import "time"

const (
	ProviderSAML = "saml"
	ProviderOIDC = "oidc"
)

// SSOConfig holds a domain's single sign-on setup. Disabling keeps the row
// with IsEnabled=false so an admin can re-enable without re-entering
// certificates.
type SSOConfig struct {
	ID            string
	DomainID      string
	Provider      string // "saml" or "oidc"
	IsEnabled     bool
	Enforce       bool // block password login for the domain
	AutoProvision bool
	DefaultRole   string
	AttributeMap  map[string]string

	SAML *SAMLConfig
	OIDC *OIDCConfig

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SAMLConfig is the SAML 2.0 sub-configuration.
type SAMLConfig struct {
	IdPEntityID          string `json:"idp_entity_id"`
	IdPSSOURL            string `json:"idp_sso_url"`
	IdPSLOURL            string `json:"idp_slo_url,omitempty"`
	IdPCertificate       string `json:"idp_certificate"` // PEM
	WantAssertionsSigned bool   `json:"want_assertions_signed"`

	// Optional SP keypair. When present, AuthnRequests are signed and
	// encrypted assertions can be decrypted.
	SPPrivateKey  string `json:"sp_private_key,omitempty"` // PEM
	SPCertificate string `json:"sp_certificate,omitempty"` // PEM
}

// OIDCConfig is the OpenID Connect sub-configuration.
type OIDCConfig struct {
	Issuer       string   `json:"issuer"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RedirectURL  string   `json:"redirect_url,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
}

// SSOIdentity links a federated identity to a local user. Unique per
// (domain, provider, provider user id).
type SSOIdentity struct {
	ID             string
	UserID         string
	DomainID       string
	Provider       string
	ProviderUserID string
	Email          string
	LastLoginAt    *time.Time
	CreatedAt      time.Time
}

// ExternalIdentity is what a SAML or OIDC processor extracts from a
// validated response, normalized to the platform's attribute names.
type ExternalIdentity struct {
	ProviderUserID string
	Email          string
	Name           string
	Attributes     map[string]string
}

// SSORequest is a pending browser SSO flow. The relay state doubles as a
// CSRF token and is consumed exactly once by the callback.
type SSORequest struct {
	ID         string
	DomainID   string
	RelayState string
	RequestID  string // AuthnRequest ID / OIDC state
	ExpiresAt  time.Time
	CreatedAt  time.Time
}
