package service

import (
	"testing"
	"time"

	"github.com/corvidmail/corvid/pkg/cryptox"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestNewRecoveryCodes(t *testing.T) {
	t.Parallel()

	codes, hashes, err := newRecoveryCodes()
	require.NoError(t, err)
	require.Len(t, codes, recoveryCodeCount)
	require.Len(t, hashes, recoveryCodeCount)

	seen := make(map[string]bool)
	for i, code := range codes {
		require.NotEmpty(t, code)
		require.False(t, seen[code], "duplicate recovery code")
		seen[code] = true
		require.Equal(t, cryptox.FingerprintToken(code), hashes[i])
	}
}

func TestValidateTOTP(t *testing.T) {
	t.Parallel()

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "corvid",
		AccountName: "jo@corvid.example",
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	require.NoError(t, err)

	code, err := totp.GenerateCode(key.Secret(), time.Now().UTC())
	require.NoError(t, err)
	require.True(t, validateTOTP(code, key.Secret()))

	t.Run("accepts the previous period", func(t *testing.T) {
		old, err := totp.GenerateCode(key.Secret(), time.Now().UTC().Add(-30*time.Second))
		require.NoError(t, err)
		require.True(t, validateTOTP(old, key.Secret()))
	})

	t.Run("rejects stale and garbage codes", func(t *testing.T) {
		stale, err := totp.GenerateCode(key.Secret(), time.Now().UTC().Add(-5*time.Minute))
		require.NoError(t, err)
		require.False(t, validateTOTP(stale, key.Secret()))
		require.False(t, validateTOTP("000000", key.Secret()))
		require.False(t, validateTOTP("not-a-code", key.Secret()))
	})
}
