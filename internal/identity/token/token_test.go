package token_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corvidmail/corvid/internal/identity/token"
	"github.com/corvidmail/corvid/pkg/jwtx"
)

func newTestService(t *testing.T) *token.Service {
	t.Helper()

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:   "identity-test",
		Audience: []string{"corvid"},
		NumKeys:  1,
	})
	require.NoError(t, err)

	return token.NewService(km, "identity-test", []string{"corvid"})
}

func testSubject() token.Subject {
	return token.Subject{
		UserID:          "user-01",
		OrgID:           "org-01",
		PrimaryDomainID: "dom-01",
		Email:           "willow@ufgood.example",
		Name:            "Willow Ufgood",
		Role:            "member",
		Domains:         []string{"dom-01", "dom-02"},
		DomainRoles:     map[string]string{"dom-02": "admin"},
		MFAVerified:     true,
	}
}

func TestMintPairRoundTrip(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	pair, err := svc.MintPair(testSubject(), "sess-01", 0, 0)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	require.Equal(t, "Bearer", pair.TokenType)
	require.Equal(t, jwtx.DefaultAccessTokenTTL, pair.ExpiresIn)
	require.Equal(t, "sess-01", pair.SessionID)

	access, err := svc.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-01", access.Subject)
	require.Equal(t, "org-01", access.OrgID)
	require.Equal(t, "dom-01", access.PrimaryDomainID)
	require.Equal(t, "willow@ufgood.example", access.Email)
	require.Equal(t, "member", access.Role)
	require.ElementsMatch(t, []string{"dom-01", "dom-02"}, access.Domains)
	require.Equal(t, "admin", access.DomainRoles["dom-02"])
	require.Equal(t, "sess-01", access.SID)
	require.True(t, access.MFAVerified)
	require.False(t, access.IsRefresh())

	refresh, err := svc.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, "user-01", refresh.Subject)
	require.Equal(t, "sess-01", refresh.SID)
	require.True(t, refresh.IsRefresh())

	// Refresh claims must not leak identity attributes.
	require.Empty(t, refresh.Email)
	require.Empty(t, refresh.DomainRoles)
}

func TestVerifyRejectsWrongType(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	pair, err := svc.MintPair(testSubject(), "sess-02", 0, 0)
	require.NoError(t, err)

	_, err = svc.VerifyAccess(pair.RefreshToken)
	require.ErrorIs(t, err, token.ErrWrongType)

	_, err = svc.VerifyRefresh(pair.AccessToken)
	require.ErrorIs(t, err, token.ErrWrongType)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	_, err := svc.VerifyAccess("not-a-jwt")
	require.ErrorIs(t, err, token.ErrInvalidToken)

	_, err = svc.VerifyRefresh("")
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	other := newTestService(t) // different ephemeral keys

	pair, err := other.MintPair(testSubject(), "sess-03", 0, 0)
	require.NoError(t, err)

	_, err = svc.VerifyAccess(pair.AccessToken)
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestFingerprintIsDeterministic(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	pair, err := svc.MintPair(testSubject(), "sess-04", time.Minute, time.Hour)
	require.NoError(t, err)

	require.Equal(t, token.Fingerprint(pair.RefreshToken), token.Fingerprint(pair.RefreshToken))
	require.NotEqual(t, token.Fingerprint(pair.RefreshToken), token.Fingerprint(pair.AccessToken))
}
