package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/oidc"
	"github.com/corvidmail/corvid/internal/identity/saml"
	"github.com/corvidmail/corvid/internal/identity/store"
	"github.com/corvidmail/corvid/pkg/cryptox"
	"github.com/corvidmail/corvid/pkg/idx"
	"github.com/corvidmail/corvid/pkg/slogx"
)

const ssoRequestTTL = 10 * time.Minute

// SSOService orchestrates federated login: discovery for the login UI,
// flow initiation with a single-use relay state, callback processing and
// admin configuration. Successful federation satisfies the MFA gate.
type SSOService struct {
	Store    store.Store
	SAML     *saml.Processor
	OIDC     *oidc.Processor
	Sessions *SessionService
}

// DiscoverResult tells a login UI whether to route a user to an IdP. It
// is never an authentication decision by itself.
type DiscoverResult struct {
	Configured bool
	Provider   string
	Enforced   bool
}

// Discover resolves an email's domain to its SSO posture.
func (s *SSOService) Discover(ctx context.Context, email string) (DiscoverResult, error) {
	_, domainName, ok := splitEmail(email)
	if !ok {
		return DiscoverResult{}, nil
	}
	dom, err := s.Store.Domains().GetDomainByName(ctx, domainName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return DiscoverResult{}, nil
		}
		return DiscoverResult{}, fmt.Errorf("lookup domain: %w", err)
	}

	cfg, err := s.Store.SSOConfigs().GetSSOConfigByDomain(ctx, dom.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return DiscoverResult{}, nil
		}
		return DiscoverResult{}, fmt.Errorf("lookup sso config: %w", err)
	}
	if !cfg.IsEnabled {
		return DiscoverResult{}, nil
	}
	return DiscoverResult{Configured: true, Provider: cfg.Provider, Enforced: cfg.Enforce}, nil
}

// Initiate starts a browser SSO flow for the address's domain. The relay
// state doubles as CSRF token and is consumed exactly once by the
// callback.
func (s *SSOService) Initiate(ctx context.Context, email string) (redirectURL, relayState string, err error) {
	_, domainName, ok := splitEmail(email)
	if !ok {
		return "", "", ErrSSONotConfigured
	}
	dom, err := s.Store.Domains().GetDomainByName(ctx, domainName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", "", ErrSSONotConfigured
		}
		return "", "", fmt.Errorf("lookup domain: %w", err)
	}

	cfg, err := s.enabledConfig(ctx, dom.ID)
	if err != nil {
		return "", "", err
	}

	relayState = cryptox.MustGenerateToken(cryptox.TokenSize256)

	var requestID string
	switch cfg.Provider {
	case domain.ProviderSAML:
		if cfg.SAML == nil {
			return "", "", ErrSSONotConfigured
		}
		requestID = saml.NewRequestID()
		redirectURL, err = s.SAML.BuildRedirectURL(cfg.SAML, requestID, relayState)
		if err != nil {
			return "", "", fmt.Errorf("build saml request: %w", err)
		}
	case domain.ProviderOIDC:
		if cfg.OIDC == nil {
			return "", "", ErrSSONotConfigured
		}
		// OIDC has no separate request ID; state is the relay token.
		requestID = relayState
		redirectURL, err = s.OIDC.AuthCodeURL(ctx, cfg.OIDC, relayState)
		if err != nil {
			return "", "", fmt.Errorf("build oidc auth url: %w", err)
		}
	default:
		return "", "", ErrSSONotConfigured
	}

	req := domain.SSORequest{
		ID:         idx.New().String(),
		DomainID:   dom.ID,
		RelayState: relayState,
		RequestID:  requestID,
		ExpiresAt:  time.Now().UTC().Add(ssoRequestTTL),
	}
	if err := s.Store.SSORequests().CreateSSORequest(ctx, req); err != nil {
		return "", "", fmt.Errorf("create sso request: %w", err)
	}
	return redirectURL, relayState, nil
}

// HandleSAMLCallback processes the IdP's POST to the ACS endpoint.
func (s *SSOService) HandleSAMLCallback(ctx context.Context, relayState, samlResponse, ip, ua string) (LoginResult, error) {
	req, dom, cfg, err := s.consumeRequest(ctx, relayState)
	if err != nil {
		return LoginResult{}, err
	}
	if cfg.Provider != domain.ProviderSAML || cfg.SAML == nil {
		return LoginResult{}, ErrSSONotConfigured
	}

	identity, err := s.SAML.ParseResponse(cfg.SAML, cfg.AttributeMap, samlResponse, req.RequestID)
	if err != nil {
		slogx.FromContext(ctx).Warn("saml response rejected", "domain_id", dom.ID, "error", err)
		return LoginResult{}, err
	}
	return s.ProcessLogin(ctx, dom, cfg, identity, domain.LoginMethodSSOSAML, ip, ua)
}

// HandleOIDCCallback processes the IdP redirect with state and code.
func (s *SSOService) HandleOIDCCallback(ctx context.Context, state, code, ip, ua string) (LoginResult, error) {
	_, dom, cfg, err := s.consumeRequest(ctx, state)
	if err != nil {
		return LoginResult{}, err
	}
	if cfg.Provider != domain.ProviderOIDC || cfg.OIDC == nil {
		return LoginResult{}, ErrSSONotConfigured
	}

	identity, err := s.OIDC.Exchange(ctx, cfg.OIDC, cfg.AttributeMap, code)
	if err != nil {
		slogx.FromContext(ctx).Warn("oidc exchange rejected", "domain_id", dom.ID, "error", err)
		return LoginResult{}, err
	}
	return s.ProcessLogin(ctx, dom, cfg, identity, domain.LoginMethodSSOOIDC, ip, ua)
}

func (s *SSOService) consumeRequest(ctx context.Context, relayState string) (domain.SSORequest, domain.Domain, domain.SSOConfig, error) {
	req, err := s.Store.SSORequests().ConsumeSSORequest(ctx, relayState)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SSORequest{}, domain.Domain{}, domain.SSOConfig{}, ErrInvalidToken
		}
		return domain.SSORequest{}, domain.Domain{}, domain.SSOConfig{}, fmt.Errorf("consume sso request: %w", err)
	}

	dom, err := s.Store.Domains().GetDomainByID(ctx, req.DomainID)
	if err != nil {
		return domain.SSORequest{}, domain.Domain{}, domain.SSOConfig{}, fmt.Errorf("lookup domain: %w", err)
	}
	cfg, err := s.enabledConfig(ctx, dom.ID)
	if err != nil {
		return domain.SSORequest{}, domain.Domain{}, domain.SSOConfig{}, err
	}
	return req, dom, cfg, nil
}

func (s *SSOService) enabledConfig(ctx context.Context, domainID string) (domain.SSOConfig, error) {
	cfg, err := s.Store.SSOConfigs().GetSSOConfigByDomain(ctx, domainID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SSOConfig{}, ErrSSONotConfigured
		}
		return domain.SSOConfig{}, fmt.Errorf("lookup sso config: %w", err)
	}
	if !cfg.IsEnabled {
		return domain.SSOConfig{}, ErrSSONotConfigured
	}
	return cfg, nil
}

// ProcessLogin resolves the external identity to a local user: identity
// match first, then account linking by email, then auto-provisioning.
// Running it twice with the same ProviderUserID never creates a second
// user.
func (s *SSOService) ProcessLogin(ctx context.Context, dom domain.Domain, cfg domain.SSOConfig, identity domain.ExternalIdentity, method, ip, ua string) (LoginResult, error) {
	now := time.Now().UTC()

	var user domain.User
	existing, err := s.Store.SSOIdentities().GetSSOIdentity(ctx, dom.ID, cfg.Provider, identity.ProviderUserID)
	switch {
	case err == nil:
		user, err = s.Store.Users().GetUserByID(ctx, existing.UserID)
		if err != nil {
			return LoginResult{}, fmt.Errorf("lookup user: %w", err)
		}
		if err := s.Store.SSOIdentities().TouchSSOIdentity(ctx, existing.ID, now); err != nil {
			slogx.FromContext(ctx).Warn("sso identity touch failed", "error", err)
		}

	case errors.Is(err, store.ErrNotFound):
		user, err = s.resolveOrProvision(ctx, dom, cfg, identity)
		if err != nil {
			return LoginResult{}, err
		}

	default:
		return LoginResult{}, fmt.Errorf("lookup sso identity: %w", err)
	}

	if user.Status == domain.UserStatusSuspended || user.Status == domain.UserStatusDeleted {
		recordAttempt(ctx, s.Store, user.OrgID, &user.ID, identity.Email, method, false, "account disabled", ip, ua)
		return LoginResult{}, ErrAccountDisabled
	}

	org, err := s.Store.Organizations().GetOrganizationByID(ctx, dom.OrgID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("lookup organization: %w", err)
	}

	if err := s.Store.Users().UpdateLoginSuccess(ctx, user.ID, now); err != nil {
		return LoginResult{}, fmt.Errorf("record login success: %w", err)
	}

	// Federated authentication satisfies the MFA gate.
	tokens, err := s.Sessions.Issue(ctx, user, effectiveSettings(org), true, ip, ua)
	if err != nil {
		return LoginResult{}, err
	}

	recordAttempt(ctx, s.Store, user.OrgID, &user.ID, identity.Email, method, true, "", ip, ua)
	recordAudit(ctx, s.Store, user.OrgID, &user.ID, domain.AuditUserSSOLogin, &user.ID, map[string]any{
		"provider":  cfg.Provider,
		"domain_id": dom.ID,
	}, ip)

	return LoginResult{User: user, Tokens: tokens}, nil
}

// resolveOrProvision is the no-identity path: link by verified email, or
// create the whole account when the domain auto-provisions.
func (s *SSOService) resolveOrProvision(ctx context.Context, dom domain.Domain, cfg domain.SSOConfig, identity domain.ExternalIdentity) (domain.User, error) {
	link := domain.SSOIdentity{
		ID:             idx.New().String(),
		DomainID:       dom.ID,
		Provider:       cfg.Provider,
		ProviderUserID: identity.ProviderUserID,
		Email:          normalizeEmail(identity.Email),
	}

	if identity.Email != "" {
		user, err := s.Store.Users().GetUserByEmail(ctx, identity.Email)
		switch {
		case err == nil:
			link.UserID = user.ID
			if err := s.Store.SSOIdentities().CreateSSOIdentity(ctx, link); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
				return domain.User{}, fmt.Errorf("link sso identity: %w", err)
			}
			return user, nil
		case !errors.Is(err, store.ErrNotFound):
			return domain.User{}, fmt.Errorf("lookup user by email: %w", err)
		}
	}

	if !cfg.AutoProvision {
		return domain.User{}, ErrUserNotProvisioned
	}
	if identity.Email == "" {
		return domain.User{}, fmt.Errorf("%w: identity has no email to provision with", ErrUserNotProvisioned)
	}

	org, err := s.Store.Organizations().GetOrganizationByID(ctx, dom.OrgID)
	if err != nil {
		return domain.User{}, fmt.Errorf("lookup organization: %w", err)
	}
	settings := effectiveSettings(org)

	role := cfg.DefaultRole
	if role == "" {
		role = domain.RoleMember
	}

	user := domain.User{
		ID:     idx.New().String(),
		OrgID:  org.ID,
		Name:   identity.Name,
		Role:   role,
		Status: domain.UserStatusActive,
	}
	email := domain.EmailAddress{
		ID:         idx.New().String(),
		UserID:     user.ID,
		DomainID:   dom.ID,
		Address:    normalizeEmail(identity.Email),
		IsPrimary:  true,
		IsVerified: true, // the IdP asserted it
	}
	mailbox := domain.Mailbox{
		ID:         idx.New().String(),
		UserID:     user.ID,
		QuotaBytes: settings.DefaultUserQuotaBytes,
	}
	link.UserID = user.ID

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUserBundle(ctx, user, email, mailbox); err != nil {
			return fmt.Errorf("create user bundle: %w", err)
		}
		if err := tx.SSOIdentities().CreateSSOIdentity(ctx, link); err != nil {
			return fmt.Errorf("create sso identity: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// ConfigureInput is an admin upsert of a domain's SSO configuration.
type ConfigureInput struct {
	Provider      string
	Enabled       bool
	Enforce       bool
	AutoProvision bool
	DefaultRole   string
	AttributeMap  map[string]string
	SAML          *domain.SAMLConfig
	OIDC          *domain.OIDCConfig
}

// Configure upserts SSO for a domain the actor's organization owns.
func (s *SSOService) Configure(ctx context.Context, actorOrgID, actorID, domainID string, in ConfigureInput, ip string) (domain.SSOConfig, error) {
	dom, err := s.ownedDomain(ctx, actorOrgID, domainID)
	if err != nil {
		return domain.SSOConfig{}, err
	}
	if dom.VerificationStatus != domain.VerificationVerified {
		return domain.SSOConfig{}, ErrDomainNotVerified
	}

	switch in.Provider {
	case domain.ProviderSAML:
		if in.SAML == nil || in.SAML.IdPEntityID == "" || in.SAML.IdPSSOURL == "" || in.SAML.IdPCertificate == "" {
			return domain.SSOConfig{}, fmt.Errorf("%w: incomplete saml configuration", ErrSSONotConfigured)
		}
	case domain.ProviderOIDC:
		if in.OIDC == nil || in.OIDC.Issuer == "" || in.OIDC.ClientID == "" || in.OIDC.ClientSecret == "" {
			return domain.SSOConfig{}, fmt.Errorf("%w: incomplete oidc configuration", ErrSSONotConfigured)
		}
	default:
		return domain.SSOConfig{}, fmt.Errorf("%w: unknown provider %q", ErrSSONotConfigured, in.Provider)
	}

	cfg := domain.SSOConfig{
		ID:            idx.New().String(),
		DomainID:      dom.ID,
		Provider:      in.Provider,
		IsEnabled:     in.Enabled,
		Enforce:       in.Enforce,
		AutoProvision: in.AutoProvision,
		DefaultRole:   in.DefaultRole,
		AttributeMap:  in.AttributeMap,
		SAML:          in.SAML,
		OIDC:          in.OIDC,
	}
	if err := s.Store.SSOConfigs().UpsertSSOConfig(ctx, cfg); err != nil {
		return domain.SSOConfig{}, fmt.Errorf("upsert sso config: %w", err)
	}

	recordAudit(ctx, s.Store, actorOrgID, &actorID, domain.AuditSSOConfigured, &dom.ID, map[string]any{
		"provider": in.Provider,
		"enforce":  in.Enforce,
	}, ip)
	return cfg, nil
}

// Disable flips a domain's SSO off without deleting the configuration.
func (s *SSOService) Disable(ctx context.Context, actorOrgID, actorID, domainID, ip string) error {
	dom, err := s.ownedDomain(ctx, actorOrgID, domainID)
	if err != nil {
		return err
	}
	if err := s.Store.SSOConfigs().DisableSSOConfig(ctx, dom.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSSONotConfigured
		}
		return fmt.Errorf("disable sso config: %w", err)
	}
	recordAudit(ctx, s.Store, actorOrgID, &actorID, domain.AuditSSODisabled, &dom.ID, nil, ip)
	return nil
}

// GetConfig returns a domain's SSO configuration for its org's admins.
func (s *SSOService) GetConfig(ctx context.Context, actorOrgID, domainID string) (domain.SSOConfig, error) {
	dom, err := s.ownedDomain(ctx, actorOrgID, domainID)
	if err != nil {
		return domain.SSOConfig{}, err
	}
	cfg, err := s.Store.SSOConfigs().GetSSOConfigByDomain(ctx, dom.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SSOConfig{}, ErrSSONotConfigured
		}
		return domain.SSOConfig{}, fmt.Errorf("lookup sso config: %w", err)
	}
	return cfg, nil
}

func (s *SSOService) ownedDomain(ctx context.Context, orgID, domainID string) (domain.Domain, error) {
	dom, err := s.Store.Domains().GetDomainByID(ctx, domainID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Domain{}, ErrDomainNotFound
		}
		return domain.Domain{}, fmt.Errorf("lookup domain: %w", err)
	}
	if dom.OrgID != orgID {
		return domain.Domain{}, ErrPermissionDenied
	}
	return dom, nil
}

// SPMetadata renders the service-provider SAML metadata document. When a
// domain is given and its config carries an SP certificate, the metadata
// advertises signing and encryption keys.
func (s *SSOService) SPMetadata(ctx context.Context, domainID string) (string, error) {
	var cert string
	if domainID != "" {
		cfg, err := s.Store.SSOConfigs().GetSSOConfigByDomain(ctx, domainID)
		if err == nil && cfg.SAML != nil {
			cert = cfg.SAML.SPCertificate
		} else if err != nil && !errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("lookup sso config: %w", err)
		}
	}
	return s.SAML.Metadata(cert)
}
