package http

import (
	"net/http"

	"github.com/corvidmail/corvid/internal/identity/service"
	"github.com/corvidmail/corvid/pkg/identsdk"
)

// PasswordHandler covers voluntary change and the forgot/reset flow.
type PasswordHandler struct {
	PasswordService *service.PasswordService
}

// HandleChange handles POST /v1/auth/password/change
//
//	@Summary		Change password
//	@Description	Rotates the caller's password after verifying the current one. The new password must satisfy the org policy and may not repeat recent ones.
//	@Tags			Password
//	@Security		BearerAuth
//	@Accept			json
//	@Success		204	"Password changed"
//	@Failure		400	{object}	identsdk.ErrorResponse	"Weak or reused password"
//	@Failure		401	{object}	identsdk.ErrorResponse	"Wrong current password"
//	@Router			/v1/auth/password/change [post].
func (h *PasswordHandler) HandleChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := authedUserID(w, ctx)
	if !ok {
		return
	}

	var req identsdk.ChangePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.PasswordService.Change(ctx, userID, req.OldPassword, req.NewPassword, requestIP(r)); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleForgot handles POST /v1/auth/password/forgot
//
//	@Summary		Request a password reset
//	@Description	Emails a single-use reset link. Responds 204 whether or not the address exists.
//	@Tags			Password
//	@Accept			json
//	@Success		204	"Reset requested"
//	@Router			/v1/auth/password/forgot [post].
func (h *PasswordHandler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req identsdk.ForgotPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" {
		identsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.PasswordService.Forgot(ctx, req.Email); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReset handles POST /v1/auth/password/reset
//
//	@Summary		Complete a password reset
//	@Description	Sets a new password using an emailed token. All of the user's sessions are revoked on success.
//	@Tags			Password
//	@Accept			json
//	@Success		204	"Password reset"
//	@Failure		400	{object}	identsdk.ErrorResponse	"Weak or reused password"
//	@Failure		401	{object}	identsdk.ErrorResponse	"Invalid or expired token"
//	@Router			/v1/auth/password/reset [post].
func (h *PasswordHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req identsdk.ResetPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		identsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.PasswordService.Reset(ctx, req.Token, req.NewPassword, requestIP(r)); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
