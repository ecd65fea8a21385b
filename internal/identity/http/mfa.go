package http

import (
	"net/http"

	"github.com/corvidmail/corvid/internal/identity/service"
	"github.com/corvidmail/corvid/pkg/httpx"
	"github.com/corvidmail/corvid/pkg/identsdk"
)

// MFAHandler manages TOTP enrollment and recovery codes for the caller.
type MFAHandler struct {
	MFAService *service.MFAService
}

// HandleEnroll handles POST /v1/auth/mfa/enroll
//
//	@Summary		Start TOTP enrollment
//	@Description	Generates and stores a TOTP secret. MFA does not gate logins until the secret is confirmed with a live code.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	identsdk.MFAEnrollResponse	"Secret and otpauth URL, shown once"
//	@Failure		401	{object}	identsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		409	{object}	identsdk.ErrorResponse		"MFA already enabled"
//	@Router			/v1/auth/mfa/enroll [post].
func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := authedUserID(w, ctx)
	if !ok {
		return
	}
	claims, _ := httpx.ClaimsFromContext(ctx)

	res, err := h.MFAService.Enroll(ctx, userID, claims.Email)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, identsdk.MFAEnrollResponse{
		Secret:     res.Secret,
		OTPAuthURL: res.OTPAuthURL,
	})
}

// HandleEnable handles POST /v1/auth/mfa/enable
//
//	@Summary		Confirm enrollment and enable MFA
//	@Description	Verifies a live TOTP code against the enrolled secret, enables MFA and returns the recovery codes.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		identsdk.MFAEnableRequest		true	"Live TOTP code"
//	@Success		200		{object}	identsdk.RecoveryCodesResponse	"Recovery codes, shown once"
//	@Failure		401		{object}	identsdk.ErrorResponse			"Invalid code"
//	@Failure		409		{object}	identsdk.ErrorResponse			"MFA already enabled or not enrolled"
//	@Router			/v1/auth/mfa/enable [post].
func (h *MFAHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := authedUserID(w, ctx)
	if !ok {
		return
	}

	var req identsdk.MFAEnableRequest
	if !decodeBody(w, r, &req) {
		return
	}

	codes, err := h.MFAService.VerifyAndEnable(ctx, userID, req.Code, requestIP(r))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, identsdk.RecoveryCodesResponse{Codes: codes})
}

// HandleDisable handles POST /v1/auth/mfa/disable
//
//	@Summary		Disable MFA
//	@Description	Turns MFA off. The current password is required so a hijacked session cannot weaken the account.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Success		204	"MFA disabled"
//	@Failure		401	{object}	identsdk.ErrorResponse	"Wrong password"
//	@Failure		409	{object}	identsdk.ErrorResponse	"MFA not enabled"
//	@Router			/v1/auth/mfa/disable [post].
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := authedUserID(w, ctx)
	if !ok {
		return
	}

	var req identsdk.MFADisableRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.MFAService.Disable(ctx, userID, req.Password, requestIP(r)); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRecoveryCodes handles POST /v1/auth/mfa/recovery-codes
//
//	@Summary		Regenerate recovery codes
//	@Description	Replaces all recovery codes with a fresh set. Requires the current password.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		identsdk.RegenerateRecoveryCodesRequest	true	"Current password"
//	@Success		200		{object}	identsdk.RecoveryCodesResponse			"Recovery codes, shown once"
//	@Failure		401		{object}	identsdk.ErrorResponse					"Wrong password"
//	@Failure		409		{object}	identsdk.ErrorResponse					"MFA not enabled"
//	@Router			/v1/auth/mfa/recovery-codes [post].
func (h *MFAHandler) HandleRecoveryCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := authedUserID(w, ctx)
	if !ok {
		return
	}

	var req identsdk.RegenerateRecoveryCodesRequest
	if !decodeBody(w, r, &req) {
		return
	}

	codes, err := h.MFAService.RegenerateRecoveryCodes(ctx, userID, req.Password)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, identsdk.RecoveryCodesResponse{Codes: codes})
}
