package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/store"
	"github.com/corvidmail/corvid/internal/identity/token"
	"github.com/corvidmail/corvid/pkg/idx"
	"github.com/corvidmail/corvid/pkg/slogx"
)

// SessionService owns the refresh-token rotation engine. A session stores
// only the fingerprint of its current refresh token; every refresh swaps
// that fingerprint with a compare-and-swap, and a CAS miss on a live
// session is treated as theft.
type SessionService struct {
	Store  store.Store
	Tokens *token.Service
}

// Issue creates a session and its first token pair for a freshly
// authenticated user.
func (s *SessionService) Issue(ctx context.Context, user domain.User, settings domain.OrgSettings, mfaVerified bool, ip, ua string) (domain.TokenPair, error) {
	sub, err := buildSubject(ctx, s.Store, user, mfaVerified)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("build subject: %w", err)
	}

	sessionID := idx.New().String()
	pair, err := s.Tokens.MintPair(sub, sessionID, settings.AccessTokenTTL, settings.SessionTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}

	now := time.Now().UTC()
	session := domain.Session{
		ID:               sessionID,
		UserID:           user.ID,
		RefreshTokenHash: token.Fingerprint(pair.RefreshToken),
		IPAddress:        ip,
		UserAgent:        ua,
		ExpiresAt:        now.Add(settings.SessionTTL),
		LastActivity:     now,
	}
	if err := s.Store.Sessions().CreateSession(ctx, session); err != nil {
		return domain.TokenPair{}, fmt.Errorf("create session: %w", err)
	}
	return pair, nil
}

// Refresh rotates a refresh token. Exactly one of two concurrent calls
// with the same token wins the swap; the loser, and any later replay of
// the old token, revokes every session the user has before returning
// ErrTokenReuse.
func (s *SessionService) Refresh(ctx context.Context, refreshToken, ip, ua string) (domain.TokenPair, error) {
	claims, err := s.Tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return domain.TokenPair{}, ErrInvalidToken
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidToken
		}
		return domain.TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}
	if user.Status == domain.UserStatusSuspended || user.Status == domain.UserStatusDeleted {
		return domain.TokenPair{}, ErrAccountDisabled
	}

	org, err := s.Store.Organizations().GetOrganizationByID(ctx, user.OrgID)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("lookup organization: %w", err)
	}
	settings := effectiveSettings(org)

	// Claims are rebuilt from the database on every rotation so role and
	// address changes propagate within one access-token lifetime.
	sub, err := buildSubject(ctx, s.Store, user, claims.MFAVerified)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("build subject: %w", err)
	}

	pair, err := s.Tokens.MintPair(sub, claims.SID, settings.AccessTokenTTL, settings.SessionTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}

	oldHash := token.Fingerprint(refreshToken)
	newHash := token.Fingerprint(pair.RefreshToken)

	// The row's expiry moves with the new refresh token so the session
	// always outlives the token it currently vouches for.
	now := time.Now().UTC()
	err = s.Store.Sessions().RotateSessionToken(ctx, claims.SID, oldHash, newHash, now.Add(settings.SessionTTL), now)
	switch {
	case err == nil:
		recordAudit(ctx, s.Store, user.OrgID, &user.ID, domain.AuditTokenRefreshed, &claims.SID, map[string]any{
			"session_id": claims.SID,
		}, ip)
		return pair, nil
	case errors.Is(err, store.ErrStaleToken):
		return domain.TokenPair{}, s.handleReuse(ctx, user, claims.SID, ip)
	case errors.Is(err, store.ErrSessionExpired):
		return domain.TokenPair{}, ErrSessionExpired
	case errors.Is(err, store.ErrNotFound):
		return domain.TokenPair{}, ErrInvalidToken
	default:
		return domain.TokenPair{}, fmt.Errorf("rotate session token: %w", err)
	}
}

// handleReuse revokes everything the user has, in the same request, and
// records the security event before the caller returns ErrTokenReuse.
func (s *SessionService) handleReuse(ctx context.Context, user domain.User, sessionID, ip string) error {
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		revoked, err := tx.Sessions().RevokeAllUserSessions(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("revoke all sessions: %w", err)
		}
		recordAudit(ctx, tx, user.OrgID, &user.ID, domain.AuditTokenReuseDetected, &sessionID, map[string]any{
			"session_id":       sessionID,
			"sessions_revoked": revoked,
		}, ip)
		return nil
	})
	if err != nil {
		return fmt.Errorf("token reuse response: %w", err)
	}

	slogx.FromContext(ctx).Warn("refresh token reuse detected, all sessions revoked",
		"user_id", user.ID, "session_id", sessionID)
	return ErrTokenReuse
}

// Logout revokes the session behind a refresh token. An already-invalid
// token is not an error; logout is idempotent from the client's view.
func (s *SessionService) Logout(ctx context.Context, refreshToken, ip string) error {
	claims, err := s.Tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil
	}

	if err := s.Store.Sessions().RevokeSession(ctx, claims.SID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("revoke session: %w", err)
	}
	recordAudit(ctx, s.Store, "", ptr(claims.Subject), domain.AuditUserLogout, &claims.SID, nil, ip)
	return nil
}

// LogoutAll revokes every session the user has.
func (s *SessionService) LogoutAll(ctx context.Context, userID, ip string) (int, error) {
	revoked, err := s.Store.Sessions().RevokeAllUserSessions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke all sessions: %w", err)
	}
	recordAudit(ctx, s.Store, "", &userID, domain.AuditUserLogout, &userID, map[string]any{
		"sessions_revoked": revoked,
	}, ip)
	return revoked, nil
}

// List returns the user's sessions, active ones first.
func (s *SessionService) List(ctx context.Context, userID string) ([]domain.Session, error) {
	return s.Store.Sessions().ListUserSessions(ctx, userID)
}

// Revoke ends one session after checking it belongs to the caller.
func (s *SessionService) Revoke(ctx context.Context, userID, sessionID, ip string) error {
	session, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrNotFound
		}
		return fmt.Errorf("lookup session: %w", err)
	}
	if session.UserID != userID {
		return ErrPermissionDenied
	}

	if err := s.Store.Sessions().RevokeSession(ctx, sessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("revoke session: %w", err)
	}
	recordAudit(ctx, s.Store, "", &userID, domain.AuditSessionRevoked, &sessionID, nil, ip)
	return nil
}
