package http

import (
	"net/http"

	"github.com/corvidmail/corvid/internal/identity/service"
	"github.com/corvidmail/corvid/pkg/httpx"
	"github.com/corvidmail/corvid/pkg/identsdk"
)

// UsersHandler serves the caller's profile and their email addresses.
type UsersHandler struct {
	UserService  *service.UserService
	EmailService *service.EmailService
}

// HandleMe handles GET /v1/users/me
//
//	@Summary		Get the authenticated user
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	identsdk.UserInfo		"The caller's profile"
//	@Failure		401	{object}	identsdk.ErrorResponse	"Invalid or missing access token"
//	@Router			/v1/users/me [get].
func (h *UsersHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := authedUserID(w, ctx)
	if !ok {
		return
	}

	user, primary, err := h.UserService.Get(ctx, userID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userInfo(user, primary))
}

// HandleListEmails handles GET /v1/users/me/emails
//
//	@Summary		List the caller's email addresses
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		identsdk.EmailAddressInfo	"Addresses, primary first"
//	@Failure		401	{object}	identsdk.ErrorResponse		"Invalid or missing access token"
//	@Router			/v1/users/me/emails [get].
func (h *UsersHandler) HandleListEmails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := authedUserID(w, ctx)
	if !ok {
		return
	}

	emails, err := h.EmailService.List(ctx, userID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	out := make([]identsdk.EmailAddressInfo, 0, len(emails))
	for _, e := range emails {
		out = append(out, emailInfo(e))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleAddEmail handles POST /v1/users/me/emails
//
//	@Summary		Add an email address
//	@Description	Attaches an extra address on one of the organization's verified domains. The address starts unverified.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		identsdk.AddEmailRequest	true	"The new address"
//	@Success		201		{object}	identsdk.EmailAddressInfo	"The pending address"
//	@Failure		400		{object}	identsdk.ErrorResponse		"Unknown or unverified domain"
//	@Failure		409		{object}	identsdk.ErrorResponse		"Address already in use"
//	@Router			/v1/users/me/emails [post].
func (h *UsersHandler) HandleAddEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := authedUserID(w, ctx)
	if !ok {
		return
	}

	var req identsdk.AddEmailRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Address == "" {
		identsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	email, err := h.EmailService.Add(ctx, userID, req.Address, requestIP(r))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, emailInfo(email))
}

// HandleVerifyEmail handles GET /v1/users/me/emails/verify
//
//	@Summary		Verify an email address
//	@Description	Consumes the token from a verification email. Pending users become active when their primary address verifies.
//	@Tags			Users
//	@Param			token	query	string	true	"Verification token"
//	@Success		204		"Address verified"
//	@Failure		401		{object}	identsdk.ErrorResponse	"Invalid or expired token"
//	@Router			/v1/users/me/emails/verify [get].
func (h *UsersHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := r.URL.Query().Get("token")
	if token == "" {
		identsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.EmailService.Verify(ctx, token); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetPrimaryEmail handles PUT /v1/users/me/emails/{id}/primary
//
//	@Summary		Promote an address to primary
//	@Description	The address must be verified. The old primary is demoted in the same transaction.
//	@Tags			Users
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Email address ID"
//	@Success		204	"Primary changed"
//	@Failure		404	{object}	identsdk.ErrorResponse	"Address not found"
//	@Failure		409	{object}	identsdk.ErrorResponse	"Address not verified"
//	@Router			/v1/users/me/emails/{id}/primary [put].
func (h *UsersHandler) HandleSetPrimaryEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := authedUserID(w, ctx)
	if !ok {
		return
	}

	if err := h.EmailService.SetPrimary(ctx, userID, r.PathValue("id"), requestIP(r)); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteEmail handles DELETE /v1/users/me/emails/{id}
//
//	@Summary		Remove an email address
//	@Description	Primary addresses cannot be removed; promote another address first.
//	@Tags			Users
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Email address ID"
//	@Success		204	"Address removed"
//	@Failure		404	{object}	identsdk.ErrorResponse	"Address not found"
//	@Failure		409	{object}	identsdk.ErrorResponse	"Address is primary"
//	@Router			/v1/users/me/emails/{id} [delete].
func (h *UsersHandler) HandleDeleteEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := authedUserID(w, ctx)
	if !ok {
		return
	}

	if err := h.EmailService.Delete(ctx, userID, r.PathValue("id"), requestIP(r)); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
