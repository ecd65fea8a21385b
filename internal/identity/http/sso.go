package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/corvidmail/corvid/internal/identity/oidc"
	"github.com/corvidmail/corvid/internal/identity/saml"
	"github.com/corvidmail/corvid/internal/identity/service"
	"github.com/corvidmail/corvid/pkg/httpx"
	"github.com/corvidmail/corvid/pkg/identsdk"
)

// SSOHandler is the browser-facing side of federated login: discovery,
// flow initiation and the IdP callbacks.
type SSOHandler struct {
	SSOService *service.SSOService
}

// HandleDiscover handles GET /v1/sso/discover
//
//	@Summary		Discover SSO for an email domain
//	@Description	Tells a login UI whether the address's domain is configured for SSO and whether password login is blocked.
//	@Tags			SSO
//	@Produce		json
//	@Param			email	query		string							true	"Email address"
//	@Success		200		{object}	identsdk.SSODiscoveryResponse	"SSO posture for the domain"
//	@Router			/v1/sso/discover [get].
func (h *SSOHandler) HandleDiscover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	email := r.URL.Query().Get("email")
	if email == "" {
		identsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.SSOService.Discover(ctx, email)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, identsdk.SSODiscoveryResponse{
		Configured: res.Configured,
		Provider:   res.Provider,
		Enforced:   res.Enforced,
	})
}

// HandleInitiate handles GET /v1/sso/initiate
//
//	@Summary		Start a browser SSO login
//	@Description	Creates a single-use relay state and returns the IdP redirect URL for the address's domain.
//	@Tags			SSO
//	@Produce		json
//	@Param			email	query		string						true	"Email address"
//	@Success		200		{object}	identsdk.InitiateSSOResponse	"IdP redirect"
//	@Failure		404		{object}	identsdk.ErrorResponse		"SSO not configured for the domain"
//	@Router			/v1/sso/initiate [get].
func (h *SSOHandler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	email := r.URL.Query().Get("email")
	if email == "" {
		identsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	redirectURL, relayState, err := h.SSOService.Initiate(ctx, email)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, identsdk.InitiateSSOResponse{
		RedirectURL: redirectURL,
		RelayState:  relayState,
	})
}

// HandleSAMLACS handles POST /v1/sso/saml/acs
//
//	@Summary		SAML assertion consumer service
//	@Description	Receives the IdP's form POST, validates the response end to end and completes the login. Federated logins satisfy the MFA gate.
//	@Tags			SSO
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			SAMLResponse	formData	string					true	"Base64 SAML response"
//	@Param			RelayState		formData	string					true	"Relay state from initiation"
//	@Success		200				{object}	identsdk.TokenResponse	"Access and refresh tokens"
//	@Failure		401				{object}	identsdk.ErrorResponse	"Response failed validation"
//	@Router			/v1/sso/saml/acs [post].
func (h *SSOHandler) HandleSAMLACS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		identsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	samlResponse := r.PostFormValue("SAMLResponse")
	relayState := r.PostFormValue("RelayState")
	if samlResponse == "" || relayState == "" {
		identsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.SSOService.HandleSAMLCallback(ctx, relayState, samlResponse, requestIP(r), r.UserAgent())
	if err != nil {
		writeSSOError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(res))
}

// HandleOIDCCallback handles GET /v1/sso/oidc/callback
//
//	@Summary		OIDC redirect callback
//	@Description	Exchanges the authorization code, verifies the ID token and completes the login.
//	@Tags			SSO
//	@Produce		json
//	@Param			state	query		string					true	"Relay state from initiation"
//	@Param			code	query		string					true	"Authorization code"
//	@Success		200		{object}	identsdk.TokenResponse	"Access and refresh tokens"
//	@Failure		401		{object}	identsdk.ErrorResponse	"Exchange or verification failed"
//	@Router			/v1/sso/oidc/callback [get].
func (h *SSOHandler) HandleOIDCCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		identsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.SSOService.HandleOIDCCallback(ctx, state, code, requestIP(r), r.UserAgent())
	if err != nil {
		writeSSOError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(res))
}

// HandleSAMLMetadata handles GET /v1/sso/saml/metadata
//
//	@Summary		SAML service-provider metadata
//	@Description	Serves the SP metadata document for IdP administrators. Pass domain_id to include the domain's SP certificate.
//	@Tags			SSO
//	@Produce		xml
//	@Param			domain_id	query		string	false	"Domain ID"
//	@Success		200			{string}	string	"EntityDescriptor XML"
//	@Router			/v1/sso/saml/metadata [get].
func (h *SSOHandler) HandleSAMLMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	doc, err := h.SSOService.SPMetadata(ctx, r.URL.Query().Get("domain_id"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/samlmetadata+xml")
	_, _ = w.Write([]byte(doc))
}

// writeSSOError collapses protocol-level validation failures into one
// generic 401 so callers cannot probe which check rejected a response.
// Service sentinels keep their specific mappings; the detailed reason is
// already logged where the validation failed.
func writeSSOError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, saml.ErrMalformed) || errors.Is(err, saml.ErrSignature) ||
		errors.Is(err, saml.ErrStatus) || errors.Is(err, saml.ErrRequestIDMismatch) ||
		errors.Is(err, saml.ErrDestination) || errors.Is(err, saml.ErrIssuer) ||
		errors.Is(err, saml.ErrNoAssertion) || errors.Is(err, saml.ErrDecrypt) ||
		errors.Is(err, saml.ErrConditions) || errors.Is(err, saml.ErrSubjectConfirmation) ||
		errors.Is(err, saml.ErrNoNameID) {
		identsdk.NewAPIError(http.StatusUnauthorized, identsdk.ErrorCodeInvalidCredentials,
			"identity provider response failed validation").WriteError(w)
		return
	}
	if errors.Is(err, oidc.ErrDiscovery) || errors.Is(err, oidc.ErrExchange) ||
		errors.Is(err, oidc.ErrNoIDToken) || errors.Is(err, oidc.ErrVerification) ||
		errors.Is(err, oidc.ErrNoSubject) {
		identsdk.NewAPIError(http.StatusUnauthorized, identsdk.ErrorCodeInvalidCredentials,
			"identity provider response failed validation").WriteError(w)
		return
	}
	writeServiceError(ctx, w, err)
}
