//go:build e2e

package identity_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvidmail/corvid/pkg/identsdk"
)

func TestDomainRegistrationAndVerification(t *testing.T) {
	st := setupStack(t)
	ctx := t.Context()
	admin := st.adminSession(t)

	created, err := admin.CreateDomain(ctx, identsdk.CreateDomainRequest{
		Name: "mail.example.test",
	})
	require.NoError(t, err)
	require.Equal(t, "pending", created.Domain.Status)
	require.Equal(t, "TXT", created.Instructions.RecordType)
	require.Contains(t, created.Instructions.RecordName, "_email-verify.")

	// No such DNS record exists; the check fails without being an error.
	verify, err := admin.VerifyDomain(ctx, created.Domain.ID)
	require.NoError(t, err)
	require.False(t, verify.Verified)
	require.Equal(t, "failed", verify.Domain.VerificationStatus)

	domains, err := admin.ListDomains(ctx)
	require.NoError(t, err)
	require.Len(t, domains, 2) // the seeded domain plus the new one
}

func TestDomainAdminOnly(t *testing.T) {
	st := setupStack(t)
	ctx := t.Context()
	client := st.client()

	_, member, err := client.Register(ctx, identsdk.RegisterRequest{
		Email:    "erin@corvid.test",
		Password: userPassword,
	})
	require.NoError(t, err)

	_, err = member.CreateDomain(ctx, identsdk.CreateDomainRequest{Name: "sneaky.test"})
	requireAPIError(t, err, identsdk.ErrorCodePermissionDenied)
}

func TestSSOConfigurationLifecycle(t *testing.T) {
	st := setupStack(t)
	ctx := t.Context()
	client := st.client()
	admin := st.adminSession(t)

	cfg, err := admin.ConfigureSSO(ctx, st.DomainID, identsdk.ConfigureSSORequest{
		Provider:      "oidc",
		Enabled:       true,
		AutoProvision: true,
		OIDC: &identsdk.OIDCConfigPayload{
			Issuer:       "https://idp.example.test",
			ClientID:     "corvid-e2e",
			ClientSecret: "secret",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "oidc", cfg.Provider)
	require.True(t, cfg.Enabled)

	disc, err := client.DiscoverSSO(ctx, adminEmail)
	require.NoError(t, err)
	require.True(t, disc.Configured)
	require.Equal(t, "oidc", disc.Provider)

	require.NoError(t, admin.DisableSSO(ctx, st.DomainID))

	disc, err = client.DiscoverSSO(ctx, adminEmail)
	require.NoError(t, err)
	require.False(t, disc.Configured)
}
