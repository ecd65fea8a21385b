package domain

import "time"

// TokenPair is what authentication operations hand back the short-lived
// access token and the rotating refresh token, both JWTs.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // access token lifetime
	SessionID    string        `json:"-"`
}
