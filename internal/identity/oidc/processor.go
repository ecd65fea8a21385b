// Package oidc exchanges OpenID Connect authorization codes for verified
// identities using provider discovery.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/corvidmail/corvid/internal/identity/domain"
)

var (
	ErrDiscovery    = errors.New("oidc: provider discovery failed")
	ErrExchange     = errors.New("oidc: code exchange failed")
	ErrNoIDToken    = errors.New("oidc: token response has no id_token")
	ErrVerification = errors.New("oidc: id token verification failed")
	ErrNoSubject    = errors.New("oidc: id token has no subject")
)

var defaultScopes = []string{gooidc.ScopeOpenID, "profile", "email"}

// Processor drives the authorization-code flow for one domain's OIDC
// configuration. Discovery happens per flow so config changes take
// effect without a restart.
type Processor struct {
	// RedirectURL is the callback this service registered with the IdP.
	// A per-config redirect URL overrides it.
	RedirectURL string
}

// NewProcessor builds a Processor with the given default callback URL.
func NewProcessor(redirectURL string) *Processor {
	return &Processor{RedirectURL: redirectURL}
}

// AuthCodeURL returns the IdP authorization endpoint URL for a login,
// with state carrying the relay token consumed by the callback.
func (p *Processor) AuthCodeURL(ctx context.Context, cfg *domain.OIDCConfig, state string) (string, error) {
	_, oauthCfg, err := p.discover(ctx, cfg)
	if err != nil {
		return "", err
	}
	return oauthCfg.AuthCodeURL(state), nil
}

// Exchange redeems the authorization code, verifies the ID token and
// maps its claims onto an external identity. attrMap maps canonical keys
// ("email", "name") to claim names when the IdP uses non-standard ones.
func (p *Processor) Exchange(ctx context.Context, cfg *domain.OIDCConfig, attrMap map[string]string, code string) (domain.ExternalIdentity, error) {
	var zero domain.ExternalIdentity

	provider, oauthCfg, err := p.discover(ctx, cfg)
	if err != nil {
		return zero, err
	}

	token, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrExchange, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return zero, ErrNoIDToken
	}

	verifier := provider.Verifier(&gooidc.Config{ClientID: cfg.ClientID})
	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrVerification, err)
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrVerification, err)
	}

	// The userinfo endpoint often carries attributes the ID token omits.
	// Its failure is not fatal; the verified ID token is authoritative.
	if userInfo, err := provider.UserInfo(ctx, oauth2.StaticTokenSource(token)); err == nil {
		var extra map[string]any
		if err := userInfo.Claims(&extra); err == nil {
			for k, v := range extra {
				if _, exists := claims[k]; !exists {
					claims[k] = v
				}
			}
		}
	}

	return mapIdentity(idToken.Subject, claims, attrMap)
}

func (p *Processor) discover(ctx context.Context, cfg *domain.OIDCConfig) (*gooidc.Provider, *oauth2.Config, error) {
	provider, err := gooidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDiscovery, err)
	}

	redirectURL := cfg.RedirectURL
	if redirectURL == "" {
		redirectURL = p.RedirectURL
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  redirectURL,
		Scopes:       scopes,
	}
	return provider, oauthCfg, nil
}

func mapIdentity(subject string, claims map[string]any, attrMap map[string]string) (domain.ExternalIdentity, error) {
	if subject == "" {
		return domain.ExternalIdentity{}, ErrNoSubject
	}

	attrs := make(map[string]string)
	for k, v := range claims {
		if s, ok := v.(string); ok {
			attrs[k] = s
		}
	}

	identity := domain.ExternalIdentity{
		ProviderUserID: subject,
		Email:          claimValue(attrs, attrMap, "email", "email"),
		Name:           claimValue(attrs, attrMap, "name", "name"),
		Attributes:     attrs,
	}
	if identity.Name == "" {
		given, family := attrs["given_name"], attrs["family_name"]
		if given != "" && family != "" {
			identity.Name = given + " " + family
		}
	}
	identity.Email = strings.ToLower(strings.TrimSpace(identity.Email))
	return identity, nil
}

// claimValue resolves a canonical key through the attribute map, falling
// back to the standard OIDC claim name.
func claimValue(attrs map[string]string, attrMap map[string]string, canonical, standard string) string {
	if mapped, ok := attrMap[canonical]; ok && mapped != "" {
		if v := attrs[mapped]; v != "" {
			return v
		}
	}
	return attrs[standard]
}
