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
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	mfaPendingTTL     = 5 * time.Minute
	mfaMethodTOTP     = "totp"
	mfaMethodRecovery = "recovery_code"
)

// AuthService handles registration and password login. Federated login
// lives in SSOService; both funnel into SessionService for token issuance.
type AuthService struct {
	Store    store.Store
	Sessions *SessionService
	Mailer   mailer.Sender
	BaseURL  string
}

type RegisterInput struct {
	Email     string
	Password  string
	Name      string
	IPAddress string
	UserAgent string
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginResult is returned by every operation that completes a login.
type LoginResult struct {
	User            domain.User
	Tokens          domain.TokenPair
	PasswordExpired bool
}

// Register creates a user on a verified domain, together with their
// primary email address and mailbox, and logs them straight in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (LoginResult, error) {
	_, domainName, ok := splitEmail(in.Email)
	if !ok {
		return LoginResult{}, fmt.Errorf("%w: malformed address", ErrDomainNotFound)
	}

	dom, err := s.Store.Domains().GetDomainByName(ctx, domainName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrDomainNotFound
		}
		return LoginResult{}, fmt.Errorf("lookup domain: %w", err)
	}
	if dom.VerificationStatus != domain.VerificationVerified || dom.Status != domain.DomainStatusActive {
		return LoginResult{}, ErrDomainNotVerified
	}

	org, err := s.Store.Organizations().GetOrganizationByID(ctx, dom.OrgID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("lookup organization: %w", err)
	}
	if org.Status != domain.OrgStatusActive {
		return LoginResult{}, ErrOrganizationInactive
	}
	settings := effectiveSettings(org)

	if _, err := s.Store.EmailAddresses().GetEmailByAddress(ctx, in.Email); err == nil {
		return LoginResult{}, ErrEmailExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return LoginResult{}, fmt.Errorf("check address: %w", err)
	}

	if err := policy.Validate(settings.PasswordPolicy, in.Password); err != nil {
		return LoginResult{}, err
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return LoginResult{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	status := domain.UserStatusActive
	var verificationToken *string
	if settings.RequireEmailVerification {
		status = domain.UserStatusPending
		verificationToken = ptr(cryptox.MustGenerateToken(cryptox.TokenSize128))
	}

	user := domain.User{
		ID:                idx.New().String(),
		OrgID:             org.ID,
		Name:              in.Name,
		PasswordHash:      &hash,
		Role:              domain.RoleMember,
		Status:            status,
		PasswordChangedAt: &now,
	}
	email := domain.EmailAddress{
		ID:                idx.New().String(),
		UserID:            user.ID,
		DomainID:          dom.ID,
		Address:           normalizeEmail(in.Email),
		IsPrimary:         true,
		IsVerified:        !settings.RequireEmailVerification,
		VerificationToken: verificationToken,
	}
	mailbox := domain.Mailbox{
		ID:         idx.New().String(),
		UserID:     user.ID,
		QuotaBytes: settings.DefaultUserQuotaBytes,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUserBundle(ctx, user, email, mailbox); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrEmailExists
			}
			return fmt.Errorf("create user bundle: %w", err)
		}
		recordAttempt(ctx, tx, org.ID, &user.ID, in.Email, domain.LoginMethodRegistration, true, "", in.IPAddress, in.UserAgent)
		recordAudit(ctx, tx, org.ID, &user.ID, domain.AuditUserRegistered, &user.ID, map[string]any{"email": email.Address}, in.IPAddress)
		return nil
	})
	if err != nil {
		return LoginResult{}, err
	}

	if verificationToken != nil {
		s.sendVerificationEmail(ctx, user, email.Address, *verificationToken)
	}

	tokens, err := s.Sessions.Issue(ctx, user, settings, false, in.IPAddress, in.UserAgent)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: user, Tokens: tokens}, nil
}

// Login authenticates with email and password. Accounts with MFA enabled
// get a *MFARequiredError instead of tokens; CompleteMFA finishes the
// flow. Failures are deliberately indistinguishable to callers.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	_, domainName, ok := splitEmail(in.Email)
	if !ok {
		return LoginResult{}, ErrInvalidCredentials
	}

	dom, err := s.Store.Domains().GetDomainByName(ctx, domainName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("lookup domain: %w", err)
	}

	// SSO enforcement is checked before credentials so enforced domains
	// route to the IdP even for unknown accounts.
	if cfg, err := s.Store.SSOConfigs().GetSSOConfigByDomain(ctx, dom.ID); err == nil {
		if cfg.IsEnabled && cfg.Enforce {
			return LoginResult{}, ErrSSOEnforced
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return LoginResult{}, fmt.Errorf("lookup sso config: %w", err)
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			recordAttempt(ctx, s.Store, dom.OrgID, nil, in.Email, domain.LoginMethodPassword, false, "unknown account", in.IPAddress, in.UserAgent)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}

	org, err := s.Store.Organizations().GetOrganizationByID(ctx, user.OrgID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("lookup organization: %w", err)
	}
	settings := effectiveSettings(org)

	now := time.Now().UTC()
	switch {
	case user.Status == domain.UserStatusSuspended || user.Status == domain.UserStatusDeleted || org.Status != domain.OrgStatusActive:
		recordAttempt(ctx, s.Store, user.OrgID, &user.ID, in.Email, domain.LoginMethodPassword, false, "account disabled", in.IPAddress, in.UserAgent)
		return LoginResult{}, ErrAccountDisabled
	case user.Status == domain.UserStatusPending:
		recordAttempt(ctx, s.Store, user.OrgID, &user.ID, in.Email, domain.LoginMethodPassword, false, "account pending", in.IPAddress, in.UserAgent)
		return LoginResult{}, ErrAccountPending
	case user.Locked(now):
		recordAttempt(ctx, s.Store, user.OrgID, &user.ID, in.Email, domain.LoginMethodPassword, false, "locked out", in.IPAddress, in.UserAgent)
		return LoginResult{}, ErrAccountLocked
	case user.SSOOnly():
		recordAttempt(ctx, s.Store, user.OrgID, &user.ID, in.Email, domain.LoginMethodPassword, false, "sso-only account", in.IPAddress, in.UserAgent)
		return LoginResult{}, ErrSSOEnforced
	}

	if err := cryptox.VerifyPassword(in.Password, *user.PasswordHash); err != nil {
		return LoginResult{}, s.handlePasswordFailure(ctx, user, settings, in)
	}

	if user.MFAEnabled {
		return LoginResult{}, s.startMFAChallenge(ctx, user)
	}

	return s.finishLogin(ctx, user, settings, domain.LoginMethodPassword, false, in.IPAddress, in.UserAgent)
}

// CompleteMFA redeems the pending token from a password login and checks
// the second factor: a TOTP code (one period of skew either way) or a
// single-use recovery code.
func (s *AuthService) CompleteMFA(ctx context.Context, mfaToken, method, code, ip, ua string) (LoginResult, error) {
	pending, err := s.Store.MFA().ConsumePendingToken(ctx, cryptox.FingerprintToken(mfaToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrInvalidToken
		}
		return LoginResult{}, fmt.Errorf("consume pending token: %w", err)
	}

	user, err := s.Store.Users().GetUserByID(ctx, pending.UserID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}
	if !user.MFAEnabled || user.MFASecret == nil {
		return LoginResult{}, ErrMFANotEnabled
	}

	switch method {
	case mfaMethodTOTP:
		ok, err := totp.ValidateCustom(code, *user.MFASecret, time.Now().UTC(), totp.ValidateOpts{
			Period:    30,
			Skew:      1,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		})
		if err != nil || !ok {
			recordAttempt(ctx, s.Store, user.OrgID, &user.ID, "", domain.LoginMethodPassword, false, "invalid totp code", ip, ua)
			return LoginResult{}, ErrMFAInvalidCode
		}
	case mfaMethodRecovery:
		err := s.Store.MFA().ConsumeRecoveryCode(ctx, user.ID, cryptox.FingerprintToken(code))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				recordAttempt(ctx, s.Store, user.OrgID, &user.ID, "", domain.LoginMethodPassword, false, "invalid recovery code", ip, ua)
				return LoginResult{}, ErrMFAInvalidCode
			}
			return LoginResult{}, fmt.Errorf("consume recovery code: %w", err)
		}
	default:
		return LoginResult{}, ErrMFAInvalidCode
	}

	org, err := s.Store.Organizations().GetOrganizationByID(ctx, user.OrgID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("lookup organization: %w", err)
	}
	return s.finishLogin(ctx, user, effectiveSettings(org), domain.LoginMethodPassword, true, ip, ua)
}

func (s *AuthService) handlePasswordFailure(ctx context.Context, user domain.User, settings domain.OrgSettings, in LoginInput) error {
	lockUntil := time.Now().UTC().Add(settings.LockoutDuration)
	count, err := s.Store.Users().UpdateLoginFailure(ctx, user.ID, settings.MaxLoginAttempts, lockUntil)
	if err != nil {
		return fmt.Errorf("record login failure: %w", err)
	}

	recordAttempt(ctx, s.Store, user.OrgID, &user.ID, in.Email, domain.LoginMethodPassword, false, "wrong password", in.IPAddress, in.UserAgent)
	if count >= settings.MaxLoginAttempts {
		recordAudit(ctx, s.Store, user.OrgID, &user.ID, domain.AuditUserLockedOut, &user.ID, map[string]any{
			"failed_attempts": count,
			"locked_until":    lockUntil,
		}, in.IPAddress)
		return ErrAccountLocked
	}
	return ErrInvalidCredentials
}

func (s *AuthService) startMFAChallenge(ctx context.Context, user domain.User) error {
	raw := cryptox.MustGenerateToken(cryptox.TokenSize256)
	pending := domain.MFAPendingToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(raw),
		ExpiresAt: time.Now().UTC().Add(mfaPendingTTL),
	}
	if err := s.Store.MFA().CreatePendingToken(ctx, pending); err != nil {
		return fmt.Errorf("create pending token: %w", err)
	}
	return &MFARequiredError{Token: raw, Methods: []string{mfaMethodTOTP, mfaMethodRecovery}}
}

func (s *AuthService) finishLogin(ctx context.Context, user domain.User, settings domain.OrgSettings, method string, mfaVerified bool, ip, ua string) (LoginResult, error) {
	now := time.Now().UTC()
	if err := s.Store.Users().UpdateLoginSuccess(ctx, user.ID, now); err != nil {
		return LoginResult{}, fmt.Errorf("record login success: %w", err)
	}

	tokens, err := s.Sessions.Issue(ctx, user, settings, mfaVerified, ip, ua)
	if err != nil {
		return LoginResult{}, err
	}

	recordAttempt(ctx, s.Store, user.OrgID, &user.ID, "", method, true, "", ip, ua)
	recordAudit(ctx, s.Store, user.OrgID, &user.ID, domain.AuditUserLogin, &user.ID, map[string]any{"method": method}, ip)

	return LoginResult{
		User:            user,
		Tokens:          tokens,
		PasswordExpired: policy.Expired(settings.PasswordPolicy, user.PasswordChangedAt, now),
	}, nil
}

func (s *AuthService) sendVerificationEmail(ctx context.Context, user domain.User, address, token string) {
	verifyURL := fmt.Sprintf("%s/v1/users/me/emails/verify?token=%s", s.BaseURL, token)
	subject, body := mailer.VerificationEmail(user.Name, verifyURL)
	if err := s.Mailer.Send(ctx, address, subject, body); err != nil {
		slogx.FromContext(ctx).Warn("verification email not sent", "address", address, "error", err)
	}
}
