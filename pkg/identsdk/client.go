package identsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/corvidmail/corvid/pkg/jwtx"
)

// Client is a client for the identity service. It provides access to
// unauthenticated operations and can create authenticated Sessions.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new identity service client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// url builds a complete URL by appending the path to the base URL.
func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// doJSON performs an unauthenticated JSON request.
func (c *Client) doJSON(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// Register creates a new account and returns an authenticated session.
func (c *Client) Register(ctx context.Context, reqBody RegisterRequest) (*RegisterResponse, *Session, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/register", reqBody)
	if err != nil {
		return nil, nil, err
	}

	var out RegisterResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, nil, err
	}
	return &out, newSession(c, &out.Token), nil
}

// Login authenticates with email and password. When the account has MFA
// enabled the returned error is a *MFARequiredError carrying the pending
// token; complete the login with CompleteMFA.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/login", LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	var token TokenResponse
	if err := decodeJSON(resp, &token, http.StatusOK); err != nil {
		return nil, err
	}
	return newSession(c, &token), nil
}

// CompleteMFA finishes a login that was answered with mfa_required.
func (c *Client) CompleteMFA(ctx context.Context, mfaErr *MFARequiredError, method, code string) (*Session, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/mfa/verify", MFAVerifyRequest{
		MFAToken: mfaErr.MFAToken,
		Method:   method,
		Code:     code,
	})
	if err != nil {
		return nil, err
	}

	var token TokenResponse
	if err := decodeJSON(resp, &token, http.StatusOK); err != nil {
		return nil, err
	}
	return newSession(c, &token), nil
}

// Refresh rotates a refresh token and returns the new pair. The old refresh
// token is dead after this call whatever the outcome.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/refresh", RefreshRequest{
		RefreshToken: refreshToken,
	})
	if err != nil {
		return nil, err
	}

	var token TokenResponse
	if err := decodeJSON(resp, &token, http.StatusOK); err != nil {
		return nil, err
	}
	return &token, nil
}

// NewSessionFromTokens creates an authenticated session from stored tokens.
// The session still auto-refreshes when the access token expires.
func (c *Client) NewSessionFromTokens(accessToken, refreshToken string, expiresIn int) *Session {
	expiresAt := time.Now().Add(time.Duration(expiresIn) * time.Second)
	expiresAt = expiresAt.Add(-30 * time.Second) // refresh before actual expiry

	return &Session{
		client:       c,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		expiresAt:    expiresAt,
	}
}

// DiscoverSSO reports whether the given email domain is configured for SSO.
func (c *Client) DiscoverSSO(ctx context.Context, email string) (*SSODiscoveryResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/v1/sso/discover?email="+url.QueryEscape(email), nil)
	if err != nil {
		return nil, err
	}

	var out SSODiscoveryResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// InitiateSSO starts a browser SSO login for the given email domain.
func (c *Client) InitiateSSO(ctx context.Context, email string) (*InitiateSSOResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/v1/sso/initiate?email="+url.QueryEscape(email), nil)
	if err != nil {
		return nil, err
	}

	var out InitiateSSOResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForgotPassword requests a password-reset email. It succeeds outwardly
// whether or not the address exists.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/password/forgot", ForgotPasswordRequest{
		Email: email,
	})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// ResetPassword completes a password reset using an emailed token. All of
// the user's sessions are revoked on success.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/password/reset", ResetPasswordRequest{
		Token:       token,
		NewPassword: newPassword,
	})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// VerifyEmail redeems an emailed address-verification token.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	resp, err := c.doJSON(ctx, http.MethodGet, "/v1/users/me/emails/verify?token="+url.QueryEscape(token), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// Livez checks that the service process is up.
func (c *Client) Livez(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/livez", nil)
	if err != nil {
		return nil, err
	}

	var out HealthResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Readyz checks that the service and its dependencies are ready.
func (c *Client) Readyz(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/readyz", nil)
	if err != nil {
		return nil, err
	}

	var out HealthResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// JWKS fetches the service's public signing keys.
func (c *Client) JWKS(ctx context.Context) (*jwtx.JWKS, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/.well-known/jwks.json", nil)
	if err != nil {
		return nil, err
	}

	var out jwtx.JWKS
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
