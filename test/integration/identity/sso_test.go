//go:build integration

package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/service"
)

func (env *testEnv) ssoService() *service.SSOService {
	return &service.SSOService{Store: env.store, Sessions: env.Sessions}
}

func (env *testEnv) seededDomain(t *testing.T) domain.Domain {
	t.Helper()
	dom, err := env.store.Domains().GetDomainByName(context.Background(), testDomainName)
	require.NoError(t, err)
	return dom
}

func TestSSOAutoProvisionIsIdempotent(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	sso := env.ssoService()
	dom := env.seededDomain(t)
	cfg := domain.SSOConfig{
		DomainID:      dom.ID,
		Provider:      domain.ProviderSAML,
		IsEnabled:     true,
		AutoProvision: true,
	}
	identity := domain.ExternalIdentity{
		ProviderUserID: "idp-user-42",
		Email:          "bob@" + testDomainName,
		Name:           "Bob",
	}

	first, err := sso.ProcessLogin(ctx, dom, cfg, identity, domain.LoginMethodSSOSAML, "203.0.113.10", "integration-test")
	require.NoError(t, err)
	require.NotEmpty(t, first.Tokens.AccessToken)
	require.Equal(t, domain.RoleMember, first.User.Role)

	second, err := sso.ProcessLogin(ctx, dom, cfg, identity, domain.LoginMethodSSOSAML, "203.0.113.10", "integration-test")
	require.NoError(t, err)
	require.Equal(t, first.User.ID, second.User.ID)

	emails, err := env.store.EmailAddresses().ListUserEmails(ctx, first.User.ID)
	require.NoError(t, err)
	require.Len(t, emails, 1)
	require.True(t, emails[0].IsPrimary)
	require.True(t, emails[0].IsVerified)
}

func TestSSOLinksExistingAccountByEmail(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	registered := env.register(t, "carol@"+testDomainName)

	sso := env.ssoService()
	dom := env.seededDomain(t)
	cfg := domain.SSOConfig{
		DomainID:      dom.ID,
		Provider:      domain.ProviderOIDC,
		IsEnabled:     true,
		AutoProvision: false,
	}

	res, err := sso.ProcessLogin(ctx, dom, cfg, domain.ExternalIdentity{
		ProviderUserID: "sub-carol",
		Email:          "carol@" + testDomainName,
	}, domain.LoginMethodSSOOIDC, "203.0.113.10", "integration-test")
	require.NoError(t, err)
	require.Equal(t, registered.User.ID, res.User.ID)

	link, err := env.store.SSOIdentities().GetSSOIdentity(ctx, dom.ID, domain.ProviderOIDC, "sub-carol")
	require.NoError(t, err)
	require.Equal(t, registered.User.ID, link.UserID)
}

func TestSSOProvisioningDisabledFails(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	sso := env.ssoService()
	dom := env.seededDomain(t)
	cfg := domain.SSOConfig{
		DomainID:  dom.ID,
		Provider:  domain.ProviderSAML,
		IsEnabled: true,
	}

	_, err := sso.ProcessLogin(ctx, dom, cfg, domain.ExternalIdentity{
		ProviderUserID: "idp-stranger",
		Email:          "stranger@" + testDomainName,
	}, domain.LoginMethodSSOSAML, "203.0.113.10", "integration-test")
	require.ErrorIs(t, err, service.ErrUserNotProvisioned)
}
