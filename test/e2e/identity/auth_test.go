//go:build e2e

package identity_test

import (
	"errors"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/corvidmail/corvid/pkg/identsdk"
)

func TestHealthAndJWKS(t *testing.T) {
	st := setupStack(t)
	ctx := t.Context()
	client := st.client()

	live, err := client.Livez(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := client.Readyz(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)

	jwks, err := client.JWKS(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, jwks.Keys)
}

func TestRegisterLoginRefresh(t *testing.T) {
	st := setupStack(t)
	ctx := t.Context()
	client := st.client()

	reg, session, err := client.Register(ctx, identsdk.RegisterRequest{
		Email:    "alice@corvid.test",
		Password: userPassword,
		Name:     "Alice",
	})
	require.NoError(t, err)
	require.Equal(t, "alice@corvid.test", reg.User.PrimaryEmail)

	me, err := session.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, reg.User.ID, me.ID)

	// A fresh login and an explicit rotation.
	login, err := client.Login(ctx, "alice@corvid.test", userPassword)
	require.NoError(t, err)

	old := login.RefreshToken()
	pair, err := client.Refresh(ctx, old)
	require.NoError(t, err)
	require.NotEqual(t, old, pair.RefreshToken)

	// Replaying the rotated-out token trips theft detection.
	_, err = client.Refresh(ctx, old)
	requireAPIError(t, err, identsdk.ErrorCodeTokenReuse)

	// The response revoked everything, the fresh pair included.
	_, err = client.Refresh(ctx, pair.RefreshToken)
	requireAPIError(t, err, identsdk.ErrorCodeSessionExpired)
}

func TestWrongPasswordIsGeneric(t *testing.T) {
	st := setupStack(t)
	ctx := t.Context()
	client := st.client()

	_, _, err := client.Register(ctx, identsdk.RegisterRequest{
		Email:    "bob@corvid.test",
		Password: userPassword,
	})
	require.NoError(t, err)

	_, err = client.Login(ctx, "bob@corvid.test", "WrongPassword1!")
	requireAPIError(t, err, identsdk.ErrorCodeInvalidCredentials)

	_, err = client.Login(ctx, "nobody@corvid.test", userPassword)
	requireAPIError(t, err, identsdk.ErrorCodeInvalidCredentials)
}

func TestMFAEndToEnd(t *testing.T) {
	st := setupStack(t)
	ctx := t.Context()
	client := st.client()

	_, session, err := client.Register(ctx, identsdk.RegisterRequest{
		Email:    "mfa@corvid.test",
		Password: userPassword,
	})
	require.NoError(t, err)

	enroll, err := session.EnrollMFA(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, enroll.Secret)
	require.Contains(t, enroll.OTPAuthURL, "otpauth://")

	code, err := totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)

	recovery, err := session.EnableMFA(ctx, code)
	require.NoError(t, err)
	require.NotEmpty(t, recovery.Codes)

	// Password alone now stops at the MFA gate.
	_, err = client.Login(ctx, "mfa@corvid.test", userPassword)
	var mfaErr *identsdk.MFARequiredError
	require.True(t, errors.As(err, &mfaErr))
	require.Contains(t, mfaErr.Methods, "totp")

	code, err = totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)

	full, err := client.CompleteMFA(ctx, mfaErr, "totp", code)
	require.NoError(t, err)

	me, err := full.Me(ctx)
	require.NoError(t, err)
	require.True(t, me.MFAEnabled)

	// Recovery codes work as a fallback and burn on use.
	_, err = client.Login(ctx, "mfa@corvid.test", userPassword)
	require.True(t, errors.As(err, &mfaErr))

	_, err = client.CompleteMFA(ctx, mfaErr, "recovery_code", recovery.Codes[0])
	require.NoError(t, err)

	_, err = client.Login(ctx, "mfa@corvid.test", userPassword)
	require.True(t, errors.As(err, &mfaErr))
	_, err = client.CompleteMFA(ctx, mfaErr, "recovery_code", recovery.Codes[0])
	requireAPIError(t, err, identsdk.ErrorCodeMFAInvalidCode)
}

// requireAPIError asserts err is an *identsdk.APIError with the given code.
func requireAPIError(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *identsdk.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got: %v", err)
	require.Equal(t, code, apiErr.Code)
}
