package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/mailer"
	"github.com/corvidmail/corvid/internal/identity/policy"
	"github.com/corvidmail/corvid/internal/identity/store"
	"github.com/corvidmail/corvid/pkg/cryptox"
	"github.com/corvidmail/corvid/pkg/idx"
	"github.com/corvidmail/corvid/pkg/slogx"
)

const resetTokenTTL = time.Hour

// PasswordService rotates credentials: voluntary change, forgot/reset by
// emailed token. A reset is treated as possible account recovery from
// compromise, so it ends every session.
type PasswordService struct {
	Store    store.Store
	Sessions *SessionService
	Mailer   mailer.Sender
	BaseURL  string
}

// Change rotates the caller's password after checking the current one.
func (s *PasswordService) Change(ctx context.Context, userID, oldPassword, newPassword, ip string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if user.SSOOnly() {
		return ErrSSOEnforced
	}
	if err := cryptox.VerifyPassword(oldPassword, *user.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	return s.applyNewPassword(ctx, user, newPassword, domain.AuditPasswordChanged, ip)
}

// Forgot starts a reset flow. It always succeeds outwardly; whether the
// address exists is never revealed.
func (s *PasswordService) Forgot(ctx context.Context, email string) error {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slogx.FromContext(ctx).Info("password reset requested for unknown address")
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if user.Status == domain.UserStatusSuspended || user.Status == domain.UserStatusDeleted || user.SSOOnly() {
		return nil
	}

	raw := cryptox.MustGenerateToken(cryptox.TokenSize256)
	reset := domain.PasswordResetToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(raw),
		ExpiresAt: time.Now().UTC().Add(resetTokenTTL),
	}
	if err := s.Store.PasswordResets().CreatePasswordReset(ctx, reset); err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.BaseURL, raw)
	subject, body := mailer.PasswordResetEmail(user.Name, resetURL)
	if err := s.Mailer.Send(ctx, normalizeEmail(email), subject, body); err != nil {
		// The token stays valid; the user can retry the flow.
		slogx.FromContext(ctx).Warn("reset email not sent", "error", err)
	}
	return nil
}

// Reset completes a forgot-password flow. The token is single-use and all
// sessions are revoked once the new password lands.
func (s *PasswordService) Reset(ctx context.Context, token, newPassword, ip string) error {
	reset, err := s.Store.PasswordResets().ConsumePasswordReset(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	user, err := s.Store.Users().GetUserByID(ctx, reset.UserID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}

	if err := s.applyNewPassword(ctx, user, newPassword, domain.AuditPasswordReset, ip); err != nil {
		return err
	}

	if _, err := s.Sessions.LogoutAll(ctx, user.ID, ip); err != nil {
		return fmt.Errorf("revoke sessions after reset: %w", err)
	}
	return nil
}

func (s *PasswordService) applyNewPassword(ctx context.Context, user domain.User, newPassword, action, ip string) error {
	org, err := s.Store.Organizations().GetOrganizationByID(ctx, user.OrgID)
	if err != nil {
		return fmt.Errorf("lookup organization: %w", err)
	}
	pwPolicy := effectiveSettings(org).PasswordPolicy

	if err := policy.Validate(pwPolicy, newPassword); err != nil {
		return err
	}

	history, err := s.Store.Users().GetPasswordHistory(ctx, user.ID, pwPolicy.HistoryCount)
	if err != nil {
		return fmt.Errorf("load password history: %w", err)
	}
	if user.PasswordHash != nil {
		history = append([]string{*user.PasswordHash}, history...)
	}
	if err := policy.CheckHistory(newPassword, history); err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, hash, pwPolicy.HistoryCount); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		recordAudit(ctx, tx, user.OrgID, &user.ID, action, &user.ID, nil, ip)
		return nil
	})
}
