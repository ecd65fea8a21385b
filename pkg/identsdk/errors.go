package identsdk

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/corvidmail/corvid/pkg/httpx"
)

// Error codes returned by the identity service. Handlers write these and the
// SDK client parses them back into typed errors.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeInvalidToken       = "invalid_token"
	ErrorCodeSessionExpired     = "session_expired"
	ErrorCodeTokenReuse         = "token_reuse"
	ErrorCodeAccountLocked      = "account_locked"
	ErrorCodeAccountDisabled    = "account_disabled"
	ErrorCodeAccountPending     = "account_pending"
	ErrorCodeOrgInactive        = "organization_inactive"
	ErrorCodeSSORequired        = "sso_required"
	ErrorCodeMFARequired        = "mfa_required"
	ErrorCodeMFAInvalidCode     = "mfa_invalid_code"
	ErrorCodeEmailExists        = "email_exists"
	ErrorCodeWeakPassword       = "weak_password"
	ErrorCodePasswordReused     = "password_reused"
	ErrorCodeDomainNotFound     = "domain_not_found"
	ErrorCodeDomainNotVerified  = "domain_not_verified"
	ErrorCodeNotFound           = "not_found"
	ErrorCodePermissionDenied   = "permission_denied"
	ErrorCodeConflict           = "conflict"
	ErrorCodeRateLimited        = "rate_limited"
	ErrorCodeServerError        = "server_error"
)

// APIError is the JSON error body the identity service returns. It implements
// the error interface so both handlers and the SDK client can pass it around.
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the machine-readable error code
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

var (
	// ErrInvalidRequest is returned when the request body is malformed or
	// missing required fields.
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidCredentials is the generic login failure. It deliberately
	// does not distinguish unknown accounts from wrong passwords.
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid credentials",
	}

	// ErrInvalidToken is returned when a refresh or access token is missing,
	// malformed, expired or revoked.
	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the token is missing, invalid, expired or revoked",
	}

	// ErrTokenReuse is returned when a rotated-out refresh token is replayed.
	// All sessions for the user have been revoked by the time the caller
	// sees this.
	ErrTokenReuse = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeTokenReuse,
		Description: "refresh token reuse detected, all sessions revoked",
	}

	// ErrAccountLocked is returned while a lockout window is active.
	ErrAccountLocked = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAccountLocked,
		Description: "account temporarily locked after repeated failures",
	}

	// ErrAccountDisabled is returned for suspended or deleted accounts,
	// and for accounts in suspended or deleted organizations.
	ErrAccountDisabled = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAccountDisabled,
		Description: "account disabled",
	}

	// ErrAccountPending is returned when the account has not completed
	// verification.
	ErrAccountPending = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAccountPending,
		Description: "account pending verification",
	}

	// ErrOrgInactive is returned when the organization behind the email
	// domain is suspended or deleted.
	ErrOrgInactive = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeOrgInactive,
		Description: "organization is not active",
	}

	// ErrSessionExpired is returned when the refresh token's session has
	// been revoked or has passed its expiry. The client must log in again.
	ErrSessionExpired = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeSessionExpired,
		Description: "session expired or revoked",
	}

	// ErrSSORequired is returned when the email's domain enforces SSO and
	// password login is not available.
	ErrSSORequired = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeSSORequired,
		Description: "single sign-on is required for this domain",
	}

	// ErrMFAInvalidCode is returned when a TOTP or recovery code does not
	// verify.
	ErrMFAInvalidCode = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeMFAInvalidCode,
		Description: "invalid verification code",
	}

	// ErrEmailExists is returned when the address is already taken within
	// the domain.
	ErrEmailExists = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeEmailExists,
		Description: "email address already in use",
	}

	// ErrWeakPassword is returned when the candidate password fails the
	// organization's password policy.
	ErrWeakPassword = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeWeakPassword,
		Description: "password does not meet the policy requirements",
	}

	// ErrPasswordReused is returned when the candidate password matches a
	// recently used one.
	ErrPasswordReused = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodePasswordReused,
		Description: "password was used recently",
	}

	// ErrDomainNotFound is returned when the email's domain is not
	// registered with any organization.
	ErrDomainNotFound = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeDomainNotFound,
		Description: "domain is not registered",
	}

	// ErrDomainNotVerified is returned when the domain exists but has not
	// passed DNS verification.
	ErrDomainNotVerified = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeDomainNotVerified,
		Description: "domain ownership has not been verified",
	}

	// ErrNotFound is returned when the addressed resource does not exist or
	// is not visible to the caller.
	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "resource not found",
	}

	// ErrPermissionDenied is returned when the caller lacks the role the
	// operation requires.
	ErrPermissionDenied = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodePermissionDenied,
		Description: "permission denied",
	}

	// ErrConflict is returned for state conflicts like removing a primary
	// address.
	ErrConflict = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeConflict,
		Description: "request conflicts with current state",
	}

	// ErrServerError is the catch-all for unexpected failures.
	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}

	// ErrMethodNotAllowed is returned when the HTTP method is not allowed.
	ErrMethodNotAllowed = &APIError{
		StatusCode:  http.StatusMethodNotAllowed,
		Code:        ErrorCodeInvalidRequest,
		Description: "method not allowed",
	}
)

// NewAPIError creates an APIError with a custom description while keeping the
// wire format consistent.
func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{
		StatusCode:  statusCode,
		Code:        code,
		Description: description,
	}
}

// MFARequiredError is returned when a password login needs a second factor.
// It carries the short-lived pending token the client must present together
// with a TOTP or recovery code. HTTP 409 Conflict: the credentials were valid
// but the user's MFA state requires an extra step.
type MFARequiredError struct {
	// MFAToken is the pending token to present when completing the login
	MFAToken string `json:"mfa_token"`

	// Methods lists the available MFA methods (e.g., ["totp", "recovery_code"])
	Methods []string `json:"mfa_methods"`
}

// Error implements the error interface.
func (e *MFARequiredError) Error() string {
	return fmt.Sprintf("MFA required: available methods=%v", e.Methods)
}

// WriteError writes the MFA required error as a 409 Conflict.
func (e *MFARequiredError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":             ErrorCodeMFARequired,
		"error_description": "multi-factor authentication is required to complete this request",
		"mfa_token":         e.MFAToken,
		"mfa_methods":       e.Methods,
	})
}

// parseErrorResponse parses an HTTP error response into a typed error.
// Returns nil for 2xx responses.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// MFA challenge (409 Conflict with a pending token)
	if resp.StatusCode == http.StatusConflict {
		var mfaResp struct {
			Error      string   `json:"error"`
			MFAToken   string   `json:"mfa_token"`
			MFAMethods []string `json:"mfa_methods"`
		}
		if err := json.Unmarshal(body, &mfaResp); err == nil {
			if mfaResp.Error == ErrorCodeMFARequired && mfaResp.MFAToken != "" {
				return &MFARequiredError{
					MFAToken: mfaResp.MFAToken,
					Methods:  mfaResp.MFAMethods,
				}
			}
		}
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	// Fallback: generic error from status code
	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}

// decodeJSON decodes a JSON response into the target, mapping non-2xx
// responses to typed errors.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, bodyBytes)
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// checkStatusNoContent returns a typed error unless the response is 204.
func checkStatusNoContent(resp *http.Response) error {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return parseErrorResponse(resp, bodyBytes)
	}

	return nil
}
