package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/mailer"
	"github.com/corvidmail/corvid/internal/identity/store"
	"github.com/corvidmail/corvid/pkg/cryptox"
	"github.com/corvidmail/corvid/pkg/idx"
	"github.com/corvidmail/corvid/pkg/slogx"
)

// EmailService manages the addresses attached to a user. The invariant it
// protects: every user has exactly one primary address at all times.
type EmailService struct {
	Store   store.Store
	Mailer  mailer.Sender
	BaseURL string
}

// List returns the caller's addresses, primary first.
func (s *EmailService) List(ctx context.Context, userID string) ([]domain.EmailAddress, error) {
	return s.Store.EmailAddresses().ListUserEmails(ctx, userID)
}

// Add attaches an extra address on one of the organization's verified
// domains. The address starts unverified and never primary.
func (s *EmailService) Add(ctx context.Context, userID, address, ip string) (domain.EmailAddress, error) {
	_, domainName, ok := splitEmail(address)
	if !ok {
		return domain.EmailAddress{}, fmt.Errorf("%w: malformed address", ErrDomainNotFound)
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.EmailAddress{}, fmt.Errorf("lookup user: %w", err)
	}

	dom, err := s.Store.Domains().GetDomainByName(ctx, domainName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.EmailAddress{}, ErrDomainNotFound
		}
		return domain.EmailAddress{}, fmt.Errorf("lookup domain: %w", err)
	}
	if dom.OrgID != user.OrgID {
		return domain.EmailAddress{}, ErrPermissionDenied
	}
	if dom.VerificationStatus != domain.VerificationVerified || dom.Status != domain.DomainStatusActive {
		return domain.EmailAddress{}, ErrDomainNotVerified
	}

	token := cryptox.MustGenerateToken(cryptox.TokenSize128)
	email := domain.EmailAddress{
		ID:                idx.New().String(),
		UserID:            userID,
		DomainID:          dom.ID,
		Address:           normalizeEmail(address),
		VerificationToken: &token,
	}
	if err := s.Store.EmailAddresses().CreateEmail(ctx, email); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.EmailAddress{}, ErrEmailExists
		}
		return domain.EmailAddress{}, fmt.Errorf("create address: %w", err)
	}

	recordAudit(ctx, s.Store, user.OrgID, &userID, domain.AuditEmailAdded, &email.ID, map[string]any{"address": email.Address}, ip)

	verifyURL := fmt.Sprintf("%s/v1/users/me/emails/verify?token=%s", s.BaseURL, token)
	subject, body := mailer.VerificationEmail(user.Name, verifyURL)
	if err := s.Mailer.Send(ctx, email.Address, subject, body); err != nil {
		slogx.FromContext(ctx).Warn("verification email not sent", "address", email.Address, "error", err)
	}
	return email, nil
}

// Verify marks the address behind an emailed token as verified. Users who
// were pending on their primary address become active.
func (s *EmailService) Verify(ctx context.Context, token string) error {
	email, err := s.Store.EmailAddresses().GetEmailByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("lookup verification token: %w", err)
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.EmailAddresses().MarkVerified(ctx, email.ID); err != nil {
			return fmt.Errorf("mark verified: %w", err)
		}
		if email.IsPrimary {
			user, err := tx.Users().GetUserByID(ctx, email.UserID)
			if err != nil {
				return fmt.Errorf("lookup user: %w", err)
			}
			if user.Status == domain.UserStatusPending {
				if err := tx.Users().UpdateUserStatus(ctx, user.ID, domain.UserStatusActive); err != nil {
					return fmt.Errorf("activate user: %w", err)
				}
			}
		}
		return nil
	})
}

// SetPrimary promotes one of the caller's verified addresses. The demote
// and promote happen in one transaction so the uniqueness invariant holds
// at every commit point.
func (s *EmailService) SetPrimary(ctx context.Context, userID, emailID, ip string) error {
	email, err := s.Store.EmailAddresses().GetEmailByID(ctx, emailID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrNotFound
		}
		return fmt.Errorf("lookup address: %w", err)
	}
	if email.UserID != userID {
		return ErrPermissionDenied
	}
	if !email.IsVerified {
		return ErrEmailNotVerified
	}
	if email.IsPrimary {
		return nil
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.EmailAddresses().SetPrimary(ctx, userID, emailID); err != nil {
			return fmt.Errorf("set primary: %w", err)
		}
		recordAudit(ctx, tx, "", &userID, domain.AuditPrimaryEmailSet, &emailID, map[string]any{"address": email.Address}, ip)
		return nil
	})
	return err
}

// Delete removes a non-primary address.
func (s *EmailService) Delete(ctx context.Context, userID, emailID, ip string) error {
	email, err := s.Store.EmailAddresses().GetEmailByID(ctx, emailID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrNotFound
		}
		return fmt.Errorf("lookup address: %w", err)
	}
	if email.UserID != userID {
		return ErrPermissionDenied
	}
	if email.IsPrimary {
		return ErrPrimaryEmail
	}

	if err := s.Store.EmailAddresses().DeleteEmail(ctx, emailID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPrimaryEmail
		}
		return fmt.Errorf("delete address: %w", err)
	}
	recordAudit(ctx, s.Store, "", &userID, domain.AuditEmailRemoved, &emailID, map[string]any{"address": email.Address}, ip)
	return nil
}
