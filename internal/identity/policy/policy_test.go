package policy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/policy"
	"github.com/corvidmail/corvid/pkg/cryptox"
)

func strictPolicy() domain.PasswordPolicy {
	return domain.PasswordPolicy{
		MinLength:        12,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumbers:   true,
		RequireSymbols:   true,
		HistoryCount:     3,
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	p := strictPolicy()

	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"all classes present", "Correct-Horse-7battery", nil},
		{"too short", "Ab1!x", policy.ErrTooShort},
		{"missing uppercase", "correct-horse-7battery", policy.ErrMissingUppercase},
		{"missing lowercase", "CORRECT-HORSE-7BATTERY", policy.ErrMissingLowercase},
		{"missing digit", "Correct-Horse-Battery", policy.ErrMissingNumber},
		{"missing symbol", "CorrectHorse7Battery", policy.ErrMissingSymbol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := policy.Validate(p, tt.password)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidate_MinLengthCountsRunes(t *testing.T) {
	t.Parallel()

	p := domain.PasswordPolicy{MinLength: 8}
	require.NoError(t, policy.Validate(p, "pässwörd"))
	require.ErrorIs(t, policy.Validate(p, "pässwör"), policy.ErrTooShort)
}

func TestValidate_ClassesOnlyWhenRequired(t *testing.T) {
	t.Parallel()

	p := domain.PasswordPolicy{MinLength: 8, RequireLowercase: true}
	require.NoError(t, policy.Validate(p, "lowercase only"))
}

func TestCheckHistory(t *testing.T) {
	t.Parallel()

	oldHash, err := cryptox.HashPassword("OldPassword-1")
	require.NoError(t, err)
	olderHash, err := cryptox.HashPassword("OldPassword-2")
	require.NoError(t, err)
	history := []string{oldHash, olderHash}

	require.ErrorIs(t, policy.CheckHistory("OldPassword-1", history), policy.ErrReused)
	require.ErrorIs(t, policy.CheckHistory("OldPassword-2", history), policy.ErrReused)
	require.NoError(t, policy.CheckHistory("BrandNewPassword-3", history))
	require.NoError(t, policy.CheckHistory("anything", nil))
}

func TestExpired(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	old := now.Add(-91 * 24 * time.Hour)
	recent := now.Add(-24 * time.Hour)

	p := domain.PasswordPolicy{MaxAge: 90 * 24 * time.Hour}
	require.True(t, policy.Expired(p, &old, now))
	require.False(t, policy.Expired(p, &recent, now))

	// Zero MaxAge disables expiry
	require.False(t, policy.Expired(domain.PasswordPolicy{}, &old, now))

	// Unknown change time never expires
	require.False(t, policy.Expired(p, nil, now))
}
