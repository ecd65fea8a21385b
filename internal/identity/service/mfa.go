package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/store"
	"github.com/corvidmail/corvid/pkg/cryptox"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	recoveryCodeCount = 10
	recoveryCodeBytes = cryptox.TokenSize128
)

// MFAService manages TOTP enrollment and recovery codes. Enrollment is
// two-phase: the secret is stored immediately but MFA only gates logins
// once the user proves they can produce a code.
type MFAService struct {
	Store  store.Store
	Issuer string // otpauth issuer shown in authenticator apps
}

// EnrollResult carries the secret back to the client exactly once.
type EnrollResult struct {
	Secret     string
	OTPAuthURL string
}

// Enroll generates and stores a TOTP secret without enabling MFA.
func (s *MFAService) Enroll(ctx context.Context, userID, accountName string) (EnrollResult, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return EnrollResult{}, fmt.Errorf("lookup user: %w", err)
	}
	if user.MFAEnabled {
		return EnrollResult{}, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: accountName,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return EnrollResult{}, fmt.Errorf("generate totp key: %w", err)
	}

	if err := s.Store.Users().UpdateMFASecret(ctx, userID, key.Secret()); err != nil {
		return EnrollResult{}, fmt.Errorf("store totp secret: %w", err)
	}
	return EnrollResult{Secret: key.Secret(), OTPAuthURL: key.URL()}, nil
}

// VerifyAndEnable turns MFA on after the user proves possession of the
// enrolled secret, and hands out the recovery codes.
func (s *MFAService) VerifyAndEnable(ctx context.Context, userID, code, ip string) ([]string, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user.MFAEnabled {
		return nil, ErrMFAAlreadyEnabled
	}
	if user.MFASecret == nil || *user.MFASecret == "" {
		return nil, ErrMFANotEnrolled
	}
	if !validateTOTP(code, *user.MFASecret) {
		return nil, ErrMFAInvalidCode
	}

	codes, hashes, err := newRecoveryCodes()
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.MFA().ReplaceRecoveryCodes(ctx, userID, hashes); err != nil {
			return fmt.Errorf("store recovery codes: %w", err)
		}
		if err := tx.Users().EnableMFA(ctx, userID); err != nil {
			return fmt.Errorf("enable mfa: %w", err)
		}
		recordAudit(ctx, tx, user.OrgID, &userID, domain.AuditMFAEnabled, &userID, nil, ip)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// Disable turns MFA off. The current password is required so a hijacked
// session cannot silently weaken the account.
func (s *MFAService) Disable(ctx context.Context, userID, password, ip string) error {
	user, err := s.requirePassword(ctx, userID, password)
	if err != nil {
		return err
	}
	if !user.MFAEnabled {
		return ErrMFANotEnabled
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().DisableMFA(ctx, userID); err != nil {
			return fmt.Errorf("disable mfa: %w", err)
		}
		recordAudit(ctx, tx, user.OrgID, &userID, domain.AuditMFADisabled, &userID, nil, ip)
		return nil
	})
}

// RegenerateRecoveryCodes replaces all recovery codes. Requires the
// current password for the same reason Disable does.
func (s *MFAService) RegenerateRecoveryCodes(ctx context.Context, userID, password string) ([]string, error) {
	user, err := s.requirePassword(ctx, userID, password)
	if err != nil {
		return nil, err
	}
	if !user.MFAEnabled {
		return nil, ErrMFANotEnabled
	}

	codes, hashes, err := newRecoveryCodes()
	if err != nil {
		return nil, err
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.MFA().ReplaceRecoveryCodes(ctx, userID, hashes)
	})
	if err != nil {
		return nil, fmt.Errorf("replace recovery codes: %w", err)
	}
	return codes, nil
}

func (s *MFAService) requirePassword(ctx context.Context, userID, password string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if user.SSOOnly() {
		return domain.User{}, ErrSSOEnforced
	}
	if err := cryptox.VerifyPassword(password, *user.PasswordHash); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func validateTOTP(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func newRecoveryCodes() (codes, hashes []string, err error) {
	codes = make([]string, recoveryCodeCount)
	hashes = make([]string, recoveryCodeCount)
	for i := range codes {
		code, err := cryptox.GenerateToken(recoveryCodeBytes)
		if err != nil {
			return nil, nil, fmt.Errorf("generate recovery code: %w", err)
		}
		codes[i] = code
		hashes[i] = cryptox.FingerprintToken(code)
	}
	return codes, hashes, nil
}
