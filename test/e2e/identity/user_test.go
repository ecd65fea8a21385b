//go:build e2e

package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvidmail/corvid/pkg/identsdk"
)

func TestEmailManagement(t *testing.T) {
	st := setupStack(t)
	ctx := t.Context()
	client := st.client()

	_, session, err := client.Register(ctx, identsdk.RegisterRequest{
		Email:    "carol@corvid.test",
		Password: userPassword,
	})
	require.NoError(t, err)

	added, err := session.AddEmail(ctx, "carol.alt@corvid.test")
	require.NoError(t, err)
	require.False(t, added.IsVerified)

	// No SMTP relay runs in this stack, so read the verification token
	// out of the database the way the emailed link would carry it.
	require.NoError(t, client.VerifyEmail(ctx, verificationToken(t, st, added.ID)))

	require.NoError(t, session.SetPrimaryEmail(ctx, added.ID))

	emails, err := session.ListEmails(ctx)
	require.NoError(t, err)
	var primary string
	for _, e := range emails {
		if e.IsPrimary {
			primary = e.ID
		}
	}
	require.Equal(t, added.ID, primary)

	// The primary address is not deletable.
	err = session.DeleteEmail(ctx, added.ID)
	requireAPIError(t, err, identsdk.ErrorCodeConflict)
}

func TestSessionManagement(t *testing.T) {
	st := setupStack(t)
	ctx := t.Context()
	client := st.client()

	_, first, err := client.Register(ctx, identsdk.RegisterRequest{
		Email:    "dave@corvid.test",
		Password: userPassword,
	})
	require.NoError(t, err)

	second, err := client.Login(ctx, "dave@corvid.test", userPassword)
	require.NoError(t, err)

	sessions, err := first.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	// Revoke the other session, then prove its refresh token is dead.
	var current, other string
	for _, s := range sessions {
		if s.Current {
			current = s.ID
		} else {
			other = s.ID
		}
	}
	require.NotEmpty(t, current)
	require.NotEmpty(t, other)

	require.NoError(t, first.RevokeSession(ctx, other))

	_, err = client.Refresh(ctx, second.RefreshToken())
	requireAPIError(t, err, identsdk.ErrorCodeSessionExpired)

	require.NoError(t, first.Logout(ctx))
}

// verificationToken reads an address's pending token straight from the store.
func verificationToken(t *testing.T, st *stack, emailID string) string {
	t.Helper()

	email, err := st.Store.EmailAddresses().GetEmailByID(context.Background(), emailID)
	require.NoError(t, err)
	require.NotNil(t, email.VerificationToken)
	return *email.VerificationToken
}
