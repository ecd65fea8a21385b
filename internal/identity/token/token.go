// Package token mints and verifies the service's JWT pairs. Access tokens
// carry the multi-domain identity claims; refresh tokens carry only the
// subject, the session ID and a token_type marker.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/pkg/cryptox"
	"github.com/corvidmail/corvid/pkg/jwtx"
)

var (
	ErrInvalidToken = errors.New("token: invalid token")
	ErrWrongType    = errors.New("token: wrong token type")
)

// Subject is everything the access token says about a user.
type Subject struct {
	UserID          string
	OrgID           string
	PrimaryDomainID string
	Email           string
	Name            string
	Role            string
	Domains         []string
	DomainRoles     map[string]string
	MFAVerified     bool
}

// Service signs and verifies token pairs with the key manager's Ed25519 keys.
type Service struct {
	Keys     *jwtx.KeyManager
	Issuer   string
	Audience []string

	AccessTTL  time.Duration // default when the org does not override
	RefreshTTL time.Duration
}

func NewService(keys *jwtx.KeyManager, issuer string, audience []string) *Service {
	return &Service{
		Keys:       keys,
		Issuer:     issuer,
		Audience:   audience,
		AccessTTL:  jwtx.DefaultAccessTokenTTL,
		RefreshTTL: jwtx.DefaultRefreshTokenTTL,
	}
}

// MintPair signs an access/refresh pair bound to the given session. Zero
// TTLs fall back to the service defaults.
func (s *Service) MintPair(sub Subject, sessionID string, accessTTL, refreshTTL time.Duration) (domain.TokenPair, error) {
	if accessTTL <= 0 {
		accessTTL = s.AccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = s.RefreshTTL
	}

	now := time.Now().UTC()

	signer := s.Keys.GetSigner()
	if signer == nil {
		return domain.TokenPair{}, fmt.Errorf("token: no signing key available")
	}

	access := jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.UserID,
			Issuer:    s.Issuer,
			Audience:  s.Audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTTL)),
			ID:        jwtx.NewJTI(),
		},
		OrgID:           sub.OrgID,
		PrimaryDomainID: sub.PrimaryDomainID,
		Email:           sub.Email,
		Name:            sub.Name,
		Role:            sub.Role,
		Domains:         sub.Domains,
		DomainRoles:     sub.DomainRoles,
		SID:             sessionID,
		MFAVerified:     sub.MFAVerified,
	}

	accessToken, err := signer.Sign(access)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("token: sign access: %w", err)
	}

	refresh := jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.UserID,
			Issuer:    s.Issuer,
			Audience:  s.Audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(refreshTTL)),
			ID:        jwtx.NewJTI(),
		},
		SID:       sessionID,
		TokenType: jwtx.TokenTypeRefresh,
	}

	refreshToken, err := signer.Sign(refresh)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("token: sign refresh: %w", err)
	}

	return domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    accessTTL,
		SessionID:    sessionID,
	}, nil
}

// VerifyAccess validates an access token and rejects refresh tokens.
func (s *Service) VerifyAccess(tokenStr string) (jwtx.Claims, error) {
	claims, err := s.Keys.Verifier.Verify(tokenStr)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.IsRefresh() {
		return jwtx.Claims{}, ErrWrongType
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token: signature, expiry and the
// token_type marker. The session check happens against the store.
func (s *Service) VerifyRefresh(tokenStr string) (jwtx.Claims, error) {
	claims, err := s.Keys.Verifier.Verify(tokenStr)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !claims.IsRefresh() {
		return jwtx.Claims{}, ErrWrongType
	}
	if claims.SID == "" {
		return jwtx.Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// Fingerprint is the deterministic digest stored next to sessions. Only the
// fingerprint ever touches the database.
func Fingerprint(tokenStr string) string {
	return cryptox.FingerprintToken(tokenStr)
}
