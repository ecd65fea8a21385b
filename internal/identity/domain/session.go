package domain

import "time"

// Session is one device or browser login. Only the fingerprint of the
// current refresh token is stored; rotation swaps it atomically.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string // base64url SHA-256 of the current refresh token
	IPAddress        string
	UserAgent        string
	ExpiresAt        time.Time
	LastActivity     time.Time
	RevokedAt        *time.Time
	CreatedAt        time.Time
}

// Active reports whether the session can still be refreshed.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
