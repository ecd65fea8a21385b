package identsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Session represents an authenticated session with automatic token refresh.
// All Session methods refresh the access token transparently when it expires.
type Session struct {
	client *Client

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

// newSession creates an authenticated session from a token response.
func newSession(client *Client, token *TokenResponse) *Session {
	expiresAt := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)

	// Subtract 30 seconds buffer to refresh before actual expiry
	expiresAt = expiresAt.Add(-30 * time.Second)

	return &Session{
		client:       client,
		accessToken:  token.AccessToken,
		refreshToken: token.RefreshToken,
		expiresAt:    expiresAt,
	}
}

// AccessToken returns the current access token without checking expiration.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// getValidToken returns a valid access token, refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring the write lock, another goroutine may
	// have refreshed already.
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	if s.refreshToken == "" {
		return "", fmt.Errorf("access token expired and no refresh token available")
	}

	token, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}

	s.accessToken = token.AccessToken
	s.refreshToken = token.RefreshToken
	s.expiresAt = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - 30*time.Second)

	return s.accessToken, nil
}

// doAuthJSON performs an authenticated JSON request with auto-refresh.
func (s *Session) doAuthJSON(ctx context.Context, method, path string, body any) (*http.Response, error) {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.client.url(path), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// Logout revokes this session's refresh token on the server.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.RLock()
	refreshToken := s.refreshToken
	s.mu.RUnlock()

	if refreshToken == "" {
		return fmt.Errorf("no refresh token to revoke")
	}

	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/auth/logout", LogoutRequest{
		RefreshToken: refreshToken,
	})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// LogoutAll revokes every session belonging to the user.
func (s *Session) LogoutAll(ctx context.Context) error {
	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/auth/logout-all", nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// Me returns the authenticated user.
func (s *Session) Me(ctx context.Context) (*UserInfo, error) {
	resp, err := s.doAuthJSON(ctx, http.MethodGet, "/v1/users/me", nil)
	if err != nil {
		return nil, err
	}

	var out UserInfo
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSessions returns the user's active sessions.
func (s *Session) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	resp, err := s.doAuthJSON(ctx, http.MethodGet, "/v1/sessions", nil)
	if err != nil {
		return nil, err
	}

	var out []SessionInfo
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// RevokeSession revokes one of the user's sessions by ID.
func (s *Session) RevokeSession(ctx context.Context, sessionID string) error {
	resp, err := s.doAuthJSON(ctx, http.MethodDelete, "/v1/sessions/"+sessionID, nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// ListEmails returns the user's email addresses.
func (s *Session) ListEmails(ctx context.Context) ([]EmailAddressInfo, error) {
	resp, err := s.doAuthJSON(ctx, http.MethodGet, "/v1/users/me/emails", nil)
	if err != nil {
		return nil, err
	}

	var out []EmailAddressInfo
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// AddEmail attaches an additional address to the user.
func (s *Session) AddEmail(ctx context.Context, address string) (*EmailAddressInfo, error) {
	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/users/me/emails", AddEmailRequest{
		Address: address,
	})
	if err != nil {
		return nil, err
	}

	var out EmailAddressInfo
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetPrimaryEmail promotes one of the user's addresses to primary.
func (s *Session) SetPrimaryEmail(ctx context.Context, emailID string) error {
	resp, err := s.doAuthJSON(ctx, http.MethodPut, "/v1/users/me/emails/"+emailID+"/primary", nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// DeleteEmail removes a non-primary address from the user.
func (s *Session) DeleteEmail(ctx context.Context, emailID string) error {
	resp, err := s.doAuthJSON(ctx, http.MethodDelete, "/v1/users/me/emails/"+emailID, nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// EnrollMFA starts TOTP enrollment. MFA is not active until EnableMFA
// confirms a live code.
func (s *Session) EnrollMFA(ctx context.Context) (*MFAEnrollResponse, error) {
	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/auth/mfa/enroll", nil)
	if err != nil {
		return nil, err
	}

	var out MFAEnrollResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnableMFA confirms enrollment with a live TOTP code and returns the
// recovery codes. The codes are shown exactly once.
func (s *Session) EnableMFA(ctx context.Context, code string) (*RecoveryCodesResponse, error) {
	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/auth/mfa/enable", MFAEnableRequest{Code: code})
	if err != nil {
		return nil, err
	}

	var out RecoveryCodesResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// DisableMFA turns MFA off. Requires the current password.
func (s *Session) DisableMFA(ctx context.Context, password string) error {
	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/auth/mfa/disable", MFADisableRequest{Password: password})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// RegenerateRecoveryCodes replaces all recovery codes. Requires the current
// password.
func (s *Session) RegenerateRecoveryCodes(ctx context.Context, password string) (*RecoveryCodesResponse, error) {
	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/auth/mfa/recovery-codes", RegenerateRecoveryCodesRequest{Password: password})
	if err != nil {
		return nil, err
	}

	var out RecoveryCodesResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword rotates the user's password.
func (s *Session) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/auth/password/change", ChangePasswordRequest{
		OldPassword: oldPassword,
		NewPassword: newPassword,
	})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// CreateDomain registers a domain for the caller's organization. Admin only.
func (s *Session) CreateDomain(ctx context.Context, reqBody CreateDomainRequest) (*CreateDomainResponse, error) {
	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/domains", reqBody)
	if err != nil {
		return nil, err
	}

	var out CreateDomainResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDomains returns the organization's domains. Admin only.
func (s *Session) ListDomains(ctx context.Context) ([]DomainInfo, error) {
	resp, err := s.doAuthJSON(ctx, http.MethodGet, "/v1/domains", nil)
	if err != nil {
		return nil, err
	}

	var out []DomainInfo
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// VerifyDomain triggers a live DNS ownership check. Admin only.
func (s *Session) VerifyDomain(ctx context.Context, domainID string) (*VerifyDomainResponse, error) {
	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/domains/"+domainID+"/verify", nil)
	if err != nil {
		return nil, err
	}

	var out VerifyDomainResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfigureSSO upserts a domain's SSO configuration. Admin only.
func (s *Session) ConfigureSSO(ctx context.Context, domainID string, reqBody ConfigureSSORequest) (*SSOConfigInfo, error) {
	resp, err := s.doAuthJSON(ctx, http.MethodPut, "/v1/domains/"+domainID+"/sso", reqBody)
	if err != nil {
		return nil, err
	}

	var out SSOConfigInfo
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// DisableSSO turns a domain's SSO off without deleting its configuration.
// Admin only.
func (s *Session) DisableSSO(ctx context.Context, domainID string) error {
	resp, err := s.doAuthJSON(ctx, http.MethodDelete, "/v1/domains/"+domainID+"/sso", nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
