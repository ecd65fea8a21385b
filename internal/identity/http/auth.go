package http

import (
	"net/http"

	"github.com/corvidmail/corvid/internal/identity/service"
	"github.com/corvidmail/corvid/pkg/httpx"
	"github.com/corvidmail/corvid/pkg/identsdk"
)

// AuthHandler covers registration, password login, the MFA bridge and the
// refresh/logout lifecycle.
type AuthHandler struct {
	AuthService    *service.AuthService
	SessionService *service.SessionService
}

// HandleRegister handles POST /v1/auth/register
//
//	@Summary		Register a new account
//	@Description	Creates a user on a verified domain together with their primary address and mailbox, and logs them in.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		identsdk.RegisterRequest	true	"Registration details"
//	@Success		201		{object}	identsdk.RegisterResponse	"New user and first token pair"
//	@Failure		400		{object}	identsdk.ErrorResponse		"Unknown domain or weak password"
//	@Failure		409		{object}	identsdk.ErrorResponse		"Address already in use"
//	@Router			/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req identsdk.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		identsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.AuthService.Register(ctx, service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		Name:      req.Name,
		IPAddress: requestIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, identsdk.RegisterResponse{
		User:  userInfo(res.User, req.Email),
		Token: tokenResponse(res),
	})
}

// HandleLogin handles POST /v1/auth/login
//
//	@Summary		Log in with email and password
//	@Description	Authenticates a user. Accounts with MFA enabled receive a 409 with a pending token instead of a pair.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		identsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	identsdk.TokenResponse	"Access and refresh tokens"
//	@Failure		401		{object}	identsdk.ErrorResponse	"Invalid credentials"
//	@Failure		403		{object}	identsdk.ErrorResponse	"Account locked or disabled"
//	@Failure		409		{object}	identsdk.ErrorResponse	"MFA required or SSO enforced"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req identsdk.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.AuthService.Login(ctx, service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: requestIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(res))
}

// HandleMFAVerify handles POST /v1/auth/mfa/verify
//
//	@Summary		Complete an MFA-gated login
//	@Description	Redeems the pending token from a password login together with a TOTP or recovery code.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		identsdk.MFAVerifyRequest	true	"Pending token and code"
//	@Success		200		{object}	identsdk.TokenResponse		"Access and refresh tokens"
//	@Failure		401		{object}	identsdk.ErrorResponse		"Invalid pending token or code"
//	@Router			/v1/auth/mfa/verify [post].
func (h *AuthHandler) HandleMFAVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req identsdk.MFAVerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.MFAToken == "" || req.Code == "" {
		identsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.AuthService.CompleteMFA(ctx, req.MFAToken, req.Method, req.Code, requestIP(r), r.UserAgent())
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(res))
}

// HandleRefresh handles POST /v1/auth/refresh
//
//	@Summary		Rotate a refresh token
//	@Description	Exchanges a refresh token for a fresh pair. Replaying a rotated-out token revokes every session the user has.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		identsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	identsdk.TokenResponse	"New access and refresh tokens"
//	@Failure		401		{object}	identsdk.ErrorResponse	"Invalid token or reuse detected"
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req identsdk.RefreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		identsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.SessionService.Refresh(ctx, req.RefreshToken, requestIP(r), r.UserAgent())
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, identsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
	})
}

// HandleLogout handles POST /v1/auth/logout
//
//	@Summary		Log out
//	@Description	Revokes the session behind the given refresh token. Idempotent.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Success		204	"Session revoked"
//	@Failure		401	{object}	identsdk.ErrorResponse	"Invalid or missing access token"
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req identsdk.LogoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.SessionService.Logout(ctx, req.RefreshToken, requestIP(r)); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLogoutAll handles POST /v1/auth/logout-all
//
//	@Summary		Log out everywhere
//	@Description	Revokes every session belonging to the caller.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Success		204	"All sessions revoked"
//	@Failure		401	{object}	identsdk.ErrorResponse	"Invalid or missing access token"
//	@Router			/v1/auth/logout-all [post].
func (h *AuthHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := authedUserID(w, ctx)
	if !ok {
		return
	}

	if _, err := h.SessionService.LogoutAll(ctx, userID, requestIP(r)); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
