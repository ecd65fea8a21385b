//go:build integration

package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/service"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	env.register(t, "alice@corvid.test")

	res, err := env.login(ctx, "alice@corvid.test", testPassword)
	require.NoError(t, err)
	require.NotEmpty(t, res.Tokens.AccessToken)
	require.Equal(t, "Bearer", res.Tokens.TokenType)

	// Unknown domains and duplicate addresses are rejected.
	_, err = env.Auth.Register(ctx, service.RegisterInput{
		Email:    "bob@elsewhere.test",
		Password: testPassword,
	})
	require.ErrorIs(t, err, service.ErrDomainNotFound)

	_, err = env.Auth.Register(ctx, service.RegisterInput{
		Email:    "alice@corvid.test",
		Password: testPassword,
	})
	require.ErrorIs(t, err, service.ErrEmailExists)
}

func TestRegisterRejectsInactiveOrganization(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.Organizations().UpdateOrganizationStatus(ctx, env.OrgID, domain.OrgStatusSuspended))

	_, err := env.Auth.Register(ctx, service.RegisterInput{
		Email:     "eve@corvid.test",
		Password:  testPassword,
		Name:      "Eve",
		IPAddress: "203.0.113.10",
		UserAgent: "integration-test",
	})
	require.ErrorIs(t, err, service.ErrOrganizationInactive)

	// Nothing was created under the suspended organization.
	_, err = env.store.Users().GetUserByEmail(ctx, "eve@corvid.test")
	require.Error(t, err)
}

func TestLockoutAfterRepeatedFailures(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	env.register(t, "locked@corvid.test")

	// Three bad passwords hit the org's MaxLoginAttempts.
	for i := 0; i < 3; i++ {
		_, err := env.login(ctx, "locked@corvid.test", "WrongPassword1!")
		require.ErrorIs(t, err, service.ErrInvalidCredentials)
	}

	// Even the right password is refused while locked.
	_, err := env.login(ctx, "locked@corvid.test", testPassword)
	require.ErrorIs(t, err, service.ErrAccountLocked)
}

func TestUnknownUserIsIndistinguishable(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	_, err := env.login(ctx, "ghost@corvid.test", testPassword)
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestMFALoginFlow(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	res := env.register(t, "mfa@corvid.test")
	userID := res.User.ID

	enroll, err := env.MFA.Enroll(ctx, userID, "mfa@corvid.test")
	require.NoError(t, err)
	require.NotEmpty(t, enroll.Secret)

	code, err := totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)

	recovery, err := env.MFA.VerifyAndEnable(ctx, userID, code, "203.0.113.10")
	require.NoError(t, err)
	require.NotEmpty(t, recovery)

	// Password alone no longer completes the login.
	_, err = env.login(ctx, "mfa@corvid.test", testPassword)
	var mfaErr *service.MFARequiredError
	require.True(t, errors.As(err, &mfaErr))
	require.NotEmpty(t, mfaErr.Token)
	require.Contains(t, mfaErr.Methods, "totp")

	// A fresh TOTP code redeems the pending token.
	code, err = totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)

	done, err := env.Auth.CompleteMFA(ctx, mfaErr.Token, "totp", code, "203.0.113.10", "integration-test")
	require.NoError(t, err)
	require.NotEmpty(t, done.Tokens.AccessToken)

	// The pending token is single use.
	_, err = env.Auth.CompleteMFA(ctx, mfaErr.Token, "totp", code, "203.0.113.10", "integration-test")
	require.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestRecoveryCodeIsSingleUse(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	res := env.register(t, "recovery@corvid.test")
	userID := res.User.ID

	enroll, err := env.MFA.Enroll(ctx, userID, "recovery@corvid.test")
	require.NoError(t, err)

	code, err := totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)

	recovery, err := env.MFA.VerifyAndEnable(ctx, userID, code, "203.0.113.10")
	require.NoError(t, err)

	_, err = env.login(ctx, "recovery@corvid.test", testPassword)
	var mfaErr *service.MFARequiredError
	require.True(t, errors.As(err, &mfaErr))

	_, err = env.Auth.CompleteMFA(ctx, mfaErr.Token, "recovery_code", recovery[0], "203.0.113.10", "integration-test")
	require.NoError(t, err)

	// The burned code is rejected on the next login.
	_, err = env.login(ctx, "recovery@corvid.test", testPassword)
	require.True(t, errors.As(err, &mfaErr))

	_, err = env.Auth.CompleteMFA(ctx, mfaErr.Token, "recovery_code", recovery[0], "203.0.113.10", "integration-test")
	require.ErrorIs(t, err, service.ErrMFAInvalidCode)
}
