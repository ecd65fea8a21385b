//go:build integration

package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvidmail/corvid/internal/identity/policy"
	"github.com/corvidmail/corvid/internal/identity/service"
)

func TestEmailLifecycle(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	res := env.register(t, "carol@corvid.test")
	userID := res.User.ID

	added, err := env.Emails.Add(ctx, userID, "carol.alt@corvid.test", "203.0.113.10")
	require.NoError(t, err)
	require.False(t, added.IsPrimary)
	require.False(t, added.IsVerified)
	require.NotNil(t, added.VerificationToken)

	// Unverified addresses cannot be promoted.
	err = env.Emails.SetPrimary(ctx, userID, added.ID, "203.0.113.10")
	require.ErrorIs(t, err, service.ErrEmailNotVerified)

	require.NoError(t, env.Emails.Verify(ctx, *added.VerificationToken))
	require.NoError(t, env.Emails.SetPrimary(ctx, userID, added.ID, "203.0.113.10"))

	// Exactly one primary at all times.
	emails, err := env.Emails.List(ctx, userID)
	require.NoError(t, err)
	var primaries int
	for _, e := range emails {
		if e.IsPrimary {
			primaries++
			require.Equal(t, added.ID, e.ID)
		}
	}
	require.Equal(t, 1, primaries)

	// The primary cannot be deleted; the demoted one can.
	err = env.Emails.Delete(ctx, userID, added.ID, "203.0.113.10")
	require.ErrorIs(t, err, service.ErrPrimaryEmail)

	for _, e := range emails {
		if !e.IsPrimary {
			require.NoError(t, env.Emails.Delete(ctx, userID, e.ID, "203.0.113.10"))
		}
	}
}

func TestLoginWorksWithAnyVerifiedAddress(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	res := env.register(t, "dave@corvid.test")

	added, err := env.Emails.Add(ctx, res.User.ID, "dave.alt@corvid.test", "203.0.113.10")
	require.NoError(t, err)
	require.NoError(t, env.Emails.Verify(ctx, *added.VerificationToken))

	login, err := env.login(ctx, "dave.alt@corvid.test", testPassword)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, login.User.ID)
}

func TestPasswordChangeEnforcesHistory(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	res := env.register(t, "erin@corvid.test")
	userID := res.User.ID

	const nextPassword = "An0therStrongPw!"
	require.NoError(t, env.Passwords.Change(ctx, userID, testPassword, nextPassword, "203.0.113.10"))

	// Changing back to a remembered password is refused.
	err := env.Passwords.Change(ctx, userID, nextPassword, testPassword, "203.0.113.10")
	require.ErrorIs(t, err, policy.ErrReused)

	_, err = env.login(ctx, "erin@corvid.test", nextPassword)
	require.NoError(t, err)
}

func TestPasswordResetRevokesSessions(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	res := env.register(t, "frank@corvid.test")

	require.NoError(t, env.Passwords.Forgot(ctx, "frank@corvid.test"))

	// The raw token only travels by email.
	reset := env.Mail.lastToken(t)

	const newPassword = "BrandNewPassw0rd!"
	require.NoError(t, env.Passwords.Reset(ctx, reset, newPassword, "203.0.113.10"))

	// The old session died with the reset.
	_, err := env.Sessions.Refresh(ctx, res.Tokens.RefreshToken, "203.0.113.10", "integration-test")
	require.ErrorIs(t, err, service.ErrSessionExpired)

	_, err = env.login(ctx, "frank@corvid.test", newPassword)
	require.NoError(t, err)
}
