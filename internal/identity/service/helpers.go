package service

import (
	"context"
	"sort"
	"strings"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/store"
	"github.com/corvidmail/corvid/internal/identity/token"
	"github.com/corvidmail/corvid/pkg/idx"
	"github.com/corvidmail/corvid/pkg/slogx"
)

// normalizeEmail lowercases and trims an address for lookups and storage.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// splitEmail returns the local part and the domain of an address.
func splitEmail(email string) (local, domainName string, ok bool) {
	local, domainName, ok = strings.Cut(normalizeEmail(email), "@")
	if !ok || local == "" || domainName == "" {
		return "", "", false
	}
	return local, domainName, true
}

// effectiveSettings fills zero-valued org settings with platform defaults
// so older rows keep working after new settings are introduced.
func effectiveSettings(org domain.Organization) domain.OrgSettings {
	s := org.Settings
	defaults := domain.DefaultOrgSettings()

	if s.MaxLoginAttempts <= 0 {
		s.MaxLoginAttempts = defaults.MaxLoginAttempts
	}
	if s.LockoutDuration <= 0 {
		s.LockoutDuration = defaults.LockoutDuration
	}
	if s.DefaultUserQuotaBytes <= 0 {
		s.DefaultUserQuotaBytes = defaults.DefaultUserQuotaBytes
	}
	if s.SessionTTL <= 0 {
		s.SessionTTL = defaults.SessionTTL
	}
	if s.AccessTokenTTL <= 0 {
		s.AccessTokenTTL = defaults.AccessTokenTTL
	}
	if s.PasswordPolicy.MinLength <= 0 {
		s.PasswordPolicy = defaults.PasswordPolicy
	}
	return s
}

// buildSubject assembles the access-token identity from the user's
// addresses. Every domain the user holds an address on appears in the
// claims with the user's org role.
func buildSubject(ctx context.Context, st store.Store, user domain.User, mfaVerified bool) (token.Subject, error) {
	emails, err := st.EmailAddresses().ListUserEmails(ctx, user.ID)
	if err != nil {
		return token.Subject{}, err
	}

	sub := token.Subject{
		UserID:      user.ID,
		OrgID:       user.OrgID,
		Name:        user.Name,
		Role:        user.Role,
		DomainRoles: make(map[string]string),
		MFAVerified: mfaVerified,
	}

	seen := make(map[string]bool)
	for _, e := range emails {
		if e.IsPrimary {
			sub.Email = e.Address
			sub.PrimaryDomainID = e.DomainID
		}
		if !seen[e.DomainID] {
			seen[e.DomainID] = true
			sub.Domains = append(sub.Domains, e.DomainID)
			sub.DomainRoles[e.DomainID] = user.Role
		}
	}
	sort.Strings(sub.Domains)
	return sub, nil
}

// recordAttempt writes a login attempt row. Best effort: a failed write is
// logged and never fails the authentication path.
func recordAttempt(ctx context.Context, st store.Store, orgID string, userID *string, email, method string, success bool, reason, ip, ua string) {
	attempt := domain.LoginAttempt{
		ID:        idx.New().String(),
		OrgID:     orgID,
		UserID:    userID,
		Email:     normalizeEmail(email),
		Method:    method,
		Success:   success,
		Reason:    reason,
		IPAddress: ip,
		UserAgent: ua,
	}
	if err := st.Audit().CreateLoginAttempt(ctx, attempt); err != nil {
		slogx.FromContext(ctx).Warn("login attempt not recorded", "error", err)
	}
}

// recordAudit writes an audit log row, best effort outside transactions.
func recordAudit(ctx context.Context, st store.Store, orgID string, actorID *string, action string, targetID *string, detail map[string]any, ip string) {
	entry := domain.AuditLog{
		ID:        idx.New().String(),
		OrgID:     orgID,
		ActorID:   actorID,
		Action:    action,
		TargetID:  targetID,
		Detail:    detail,
		IPAddress: ip,
	}
	if err := st.Audit().CreateAuditLog(ctx, entry); err != nil {
		slogx.FromContext(ctx).Warn("audit log not recorded", "action", action, "error", err)
	}
}

func ptr[T any](v T) *T { return &v }
