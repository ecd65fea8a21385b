package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/policy"
	"github.com/corvidmail/corvid/internal/identity/service"
	"github.com/corvidmail/corvid/internal/identity/store"
	"github.com/corvidmail/corvid/pkg/httpx"
	"github.com/corvidmail/corvid/pkg/identsdk"
	"github.com/corvidmail/corvid/pkg/slogx"
)

// requestIP resolves the client address, honoring proxy headers the same
// way the rate limiter does so audit rows and limits agree.
func requestIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, _ := strings.Cut(xff, ","); first != "" {
			return strings.TrimSpace(first)
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// decodeBody parses a JSON request body. A false return means the error
// response has already been written.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		identsdk.ErrInvalidRequest.WriteError(w)
		return false
	}
	return true
}

// authedUserID returns the caller injected by AuthnMiddleware.
func authedUserID(w http.ResponseWriter, ctx context.Context) (string, bool) {
	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		identsdk.ErrInvalidToken.WriteError(w)
		return "", false
	}
	return userID, true
}

// writeServiceError maps service sentinels to the wire errors. Unknown
// errors are logged and become a 500 without leaking detail.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var mfaErr *service.MFARequiredError
	if errors.As(err, &mfaErr) {
		(&identsdk.MFARequiredError{MFAToken: mfaErr.Token, Methods: mfaErr.Methods}).WriteError(w)
		return
	}

	switch {
	case errors.Is(err, policy.ErrReused):
		identsdk.ErrPasswordReused.WriteError(w)
	case errors.Is(err, policy.ErrTooShort),
		errors.Is(err, policy.ErrMissingUppercase),
		errors.Is(err, policy.ErrMissingLowercase),
		errors.Is(err, policy.ErrMissingNumber),
		errors.Is(err, policy.ErrMissingSymbol):
		identsdk.NewAPIError(http.StatusBadRequest, identsdk.ErrorCodeWeakPassword, err.Error()).WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		identsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrAccountLocked):
		identsdk.ErrAccountLocked.WriteError(w)
	case errors.Is(err, service.ErrAccountDisabled):
		identsdk.ErrAccountDisabled.WriteError(w)
	case errors.Is(err, service.ErrAccountPending):
		identsdk.ErrAccountPending.WriteError(w)
	case errors.Is(err, service.ErrOrganizationInactive):
		identsdk.ErrOrgInactive.WriteError(w)
	case errors.Is(err, service.ErrSSOEnforced):
		identsdk.ErrSSORequired.WriteError(w)
	case errors.Is(err, service.ErrTokenReuse):
		identsdk.ErrTokenReuse.WriteError(w)
	case errors.Is(err, service.ErrInvalidToken):
		identsdk.ErrInvalidToken.WriteError(w)
	case errors.Is(err, service.ErrSessionExpired):
		identsdk.ErrSessionExpired.WriteError(w)
	case errors.Is(err, service.ErrMFAInvalidCode):
		identsdk.ErrMFAInvalidCode.WriteError(w)
	case errors.Is(err, service.ErrMFANotEnabled),
		errors.Is(err, service.ErrMFAAlreadyEnabled),
		errors.Is(err, service.ErrMFANotEnrolled),
		errors.Is(err, service.ErrPrimaryEmail),
		errors.Is(err, service.ErrEmailNotVerified):
		identsdk.NewAPIError(http.StatusConflict, identsdk.ErrorCodeConflict, err.Error()).WriteError(w)
	case errors.Is(err, service.ErrEmailExists):
		identsdk.ErrEmailExists.WriteError(w)
	case errors.Is(err, service.ErrDomainExists):
		identsdk.NewAPIError(http.StatusConflict, identsdk.ErrorCodeConflict, err.Error()).WriteError(w)
	case errors.Is(err, service.ErrDomainNotFound):
		identsdk.ErrDomainNotFound.WriteError(w)
	case errors.Is(err, service.ErrDomainNotVerified):
		identsdk.ErrDomainNotVerified.WriteError(w)
	case errors.Is(err, service.ErrPermissionDenied):
		identsdk.ErrPermissionDenied.WriteError(w)
	case errors.Is(err, service.ErrSSONotConfigured):
		identsdk.NewAPIError(http.StatusNotFound, identsdk.ErrorCodeNotFound, err.Error()).WriteError(w)
	case errors.Is(err, service.ErrUserNotProvisioned):
		identsdk.NewAPIError(http.StatusForbidden, identsdk.ErrorCodePermissionDenied, err.Error()).WriteError(w)
	case errors.Is(err, store.ErrNotFound):
		identsdk.ErrNotFound.WriteError(w)
	default:
		slogx.FromContext(ctx).Error("request failed", "error", err)
		identsdk.ErrServerError.WriteError(w)
	}
}

func tokenResponse(res service.LoginResult) identsdk.TokenResponse {
	return identsdk.TokenResponse{
		AccessToken:     res.Tokens.AccessToken,
		RefreshToken:    res.Tokens.RefreshToken,
		TokenType:       res.Tokens.TokenType,
		ExpiresIn:       int(res.Tokens.ExpiresIn.Seconds()),
		PasswordExpired: res.PasswordExpired,
	}
}

func userInfo(u domain.User, primaryEmail string) identsdk.UserInfo {
	return identsdk.UserInfo{
		ID:           u.ID,
		OrgID:        u.OrgID,
		Name:         u.Name,
		PrimaryEmail: primaryEmail,
		Role:         u.Role,
		Status:       u.Status,
		MFAEnabled:   u.MFAEnabled,
		CreatedAt:    u.CreatedAt,
	}
}

func emailInfo(e domain.EmailAddress) identsdk.EmailAddressInfo {
	return identsdk.EmailAddressInfo{
		ID:         e.ID,
		Address:    e.Address,
		DomainID:   e.DomainID,
		IsPrimary:  e.IsPrimary,
		IsVerified: e.IsVerified,
	}
}

func sessionInfo(s domain.Session, currentSID string) identsdk.SessionInfo {
	return identsdk.SessionInfo{
		ID:           s.ID,
		IPAddress:    s.IPAddress,
		UserAgent:    s.UserAgent,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
		ExpiresAt:    s.ExpiresAt,
		Current:      s.ID == currentSID,
	}
}

func domainInfo(d domain.Domain) identsdk.DomainInfo {
	return identsdk.DomainInfo{
		ID:                 d.ID,
		OrgID:              d.OrgID,
		Name:               d.Name,
		Status:             d.Status,
		VerificationStatus: d.VerificationStatus,
		VerifiedAt:         d.VerifiedAt,
		CreatedAt:          d.CreatedAt,
	}
}

func instructionsInfo(in service.VerificationInstructions) identsdk.DomainVerificationInstructions {
	recordType := "TXT"
	if in.Method == domain.VerifyMethodCNAME {
		recordType = "CNAME"
	}
	return identsdk.DomainVerificationInstructions{
		Method:      in.Method,
		RecordName:  in.Record,
		RecordType:  recordType,
		RecordValue: in.Value,
	}
}

func ssoConfigInfo(c domain.SSOConfig) identsdk.SSOConfigInfo {
	return identsdk.SSOConfigInfo{
		DomainID:      c.DomainID,
		Provider:      c.Provider,
		Enabled:       c.IsEnabled,
		Enforce:       c.Enforce,
		AutoProvision: c.AutoProvision,
		DefaultRole:   c.DefaultRole,
		AttributeMap:  c.AttributeMap,
	}
}
