package http

import (
	"errors"
	"net/http"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/service"
	"github.com/corvidmail/corvid/pkg/httpx"
	"github.com/corvidmail/corvid/pkg/identsdk"
)

// DomainsHandler is the admin surface for mail domains: registration, DNS
// ownership verification and per-domain SSO configuration.
type DomainsHandler struct {
	DomainService *service.DomainService
	SSOService    *service.SSOService
}

func callerOrg(w http.ResponseWriter, r *http.Request) (orgID, userID string, ok bool) {
	claims, found := httpx.ClaimsFromContext(r.Context())
	if !found || claims.OrgID == "" {
		identsdk.ErrInvalidToken.WriteError(w)
		return "", "", false
	}
	return claims.OrgID, claims.Subject, true
}

// HandleCreate handles POST /v1/domains
//
//	@Summary		Register a domain
//	@Description	Registers a domain for the caller's organization in pending state and returns the DNS record to publish.
//	@Tags			Domains
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		identsdk.CreateDomainRequest	true	"Domain name and verification method"
//	@Success		201		{object}	identsdk.CreateDomainResponse	"Pending domain with instructions"
//	@Failure		409		{object}	identsdk.ErrorResponse			"Domain already registered"
//	@Router			/v1/domains [post].
func (h *DomainsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orgID, userID, ok := callerOrg(w, r)
	if !ok {
		return
	}

	var req identsdk.CreateDomainRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		identsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	d, instructions, err := h.DomainService.Create(ctx, orgID, userID, req.Name, req.Method, requestIP(r))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, identsdk.CreateDomainResponse{
		Domain:       domainInfo(d),
		Instructions: instructionsInfo(instructions),
	})
}

// HandleList handles GET /v1/domains
//
//	@Summary		List the organization's domains
//	@Tags			Domains
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		identsdk.DomainInfo		"Domains with verification state"
//	@Failure		401	{object}	identsdk.ErrorResponse	"Invalid or missing access token"
//	@Router			/v1/domains [get].
func (h *DomainsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orgID, _, ok := callerOrg(w, r)
	if !ok {
		return
	}

	domains, err := h.DomainService.List(ctx, orgID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	out := make([]identsdk.DomainInfo, 0, len(domains))
	for _, d := range domains {
		out = append(out, domainInfo(d))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /v1/domains/{id}
//
//	@Summary		Get one domain
//	@Description	Returns the domain with its pending DNS instructions when not yet verified.
//	@Tags			Domains
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string							true	"Domain ID"
//	@Success		200	{object}	identsdk.CreateDomainResponse	"Domain and instructions"
//	@Failure		404	{object}	identsdk.ErrorResponse			"Domain not found"
//	@Router			/v1/domains/{id} [get].
func (h *DomainsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orgID, _, ok := callerOrg(w, r)
	if !ok {
		return
	}

	d, err := h.DomainService.Get(ctx, orgID, r.PathValue("id"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, identsdk.CreateDomainResponse{
		Domain:       domainInfo(d),
		Instructions: instructionsInfo(h.DomainService.Instructions(d)),
	})
}

// HandleVerify handles POST /v1/domains/{id}/verify
//
//	@Summary		Run the DNS ownership check
//	@Description	Performs a live DNS lookup. A missing or mismatched record is a normal outcome, not an error; admins retry as propagation completes.
//	@Tags			Domains
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string							true	"Domain ID"
//	@Success		200	{object}	identsdk.VerifyDomainResponse	"Check outcome"
//	@Failure		404	{object}	identsdk.ErrorResponse			"Domain not found"
//	@Router			/v1/domains/{id}/verify [post].
func (h *DomainsHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orgID, userID, ok := callerOrg(w, r)
	if !ok {
		return
	}

	d, err := h.DomainService.Verify(ctx, orgID, userID, r.PathValue("id"), requestIP(r))
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, identsdk.VerifyDomainResponse{
			Domain:   domainInfo(d),
			Verified: true,
		})
	case errors.Is(err, service.ErrDomainNotVerified):
		httpx.WriteJSON(w, http.StatusOK, identsdk.VerifyDomainResponse{
			Domain:   domainInfo(d),
			Verified: false,
			Detail:   "expected DNS record not found; check the record and retry once it has propagated",
		})
	default:
		writeServiceError(ctx, w, err)
	}
}

// HandleConfigureSSO handles PUT /v1/domains/{id}/sso
//
//	@Summary		Configure SSO for a domain
//	@Description	Creates or replaces the domain's SAML or OIDC configuration. Secrets are stored but never echoed back.
//	@Tags			SSO
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Domain ID"
//	@Param			request	body		identsdk.ConfigureSSORequest	true	"Provider configuration"
//	@Success		200		{object}	identsdk.SSOConfigInfo		"The stored configuration"
//	@Failure		404		{object}	identsdk.ErrorResponse		"Domain not found or configuration incomplete"
//	@Router			/v1/domains/{id}/sso [put].
func (h *DomainsHandler) HandleConfigureSSO(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orgID, userID, ok := callerOrg(w, r)
	if !ok {
		return
	}

	var req identsdk.ConfigureSSORequest
	if !decodeBody(w, r, &req) {
		return
	}

	cfg, err := h.SSOService.Configure(ctx, orgID, userID, r.PathValue("id"), configureInput(req), requestIP(r))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ssoConfigInfo(cfg))
}

// HandleDisableSSO handles DELETE /v1/domains/{id}/sso
//
//	@Summary		Disable SSO for a domain
//	@Description	Flips the domain's SSO off without deleting the configuration, so it can be re-enabled later.
//	@Tags			SSO
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Domain ID"
//	@Success		204	"SSO disabled"
//	@Failure		404	{object}	identsdk.ErrorResponse	"Domain or configuration not found"
//	@Router			/v1/domains/{id}/sso [delete].
func (h *DomainsHandler) HandleDisableSSO(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orgID, userID, ok := callerOrg(w, r)
	if !ok {
		return
	}

	if err := h.SSOService.Disable(ctx, orgID, userID, r.PathValue("id"), requestIP(r)); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetSSO handles GET /v1/domains/{id}/sso
//
//	@Summary		Get a domain's SSO configuration
//	@Tags			SSO
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string					true	"Domain ID"
//	@Success		200	{object}	identsdk.SSOConfigInfo	"The configuration without secrets"
//	@Failure		404	{object}	identsdk.ErrorResponse	"Domain or configuration not found"
//	@Router			/v1/domains/{id}/sso [get].
func (h *DomainsHandler) HandleGetSSO(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orgID, _, ok := callerOrg(w, r)
	if !ok {
		return
	}

	cfg, err := h.SSOService.GetConfig(ctx, orgID, r.PathValue("id"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ssoConfigInfo(cfg))
}

func configureInput(req identsdk.ConfigureSSORequest) service.ConfigureInput {
	in := service.ConfigureInput{
		Provider:      req.Provider,
		Enabled:       req.Enabled,
		Enforce:       req.Enforce,
		AutoProvision: req.AutoProvision,
		DefaultRole:   req.DefaultRole,
		AttributeMap:  req.AttributeMap,
	}
	if req.SAML != nil {
		wantSigned := true
		if req.SAML.WantAssertionsSigned != nil {
			wantSigned = *req.SAML.WantAssertionsSigned
		}
		in.SAML = &domain.SAMLConfig{
			IdPEntityID:          req.SAML.IdPEntityID,
			IdPSSOURL:            req.SAML.IdPSSOURL,
			IdPSLOURL:            req.SAML.IdPSLOURL,
			IdPCertificate:       req.SAML.IdPCertificate,
			WantAssertionsSigned: wantSigned,
			SPPrivateKey:         req.SAML.SPPrivateKey,
			SPCertificate:        req.SAML.SPCertificate,
		}
	}
	if req.OIDC != nil {
		in.OIDC = &domain.OIDCConfig{
			Issuer:       req.OIDC.Issuer,
			ClientID:     req.OIDC.ClientID,
			ClientSecret: req.OIDC.ClientSecret,
			RedirectURL:  req.OIDC.RedirectURL,
			Scopes:       req.OIDC.Scopes,
		}
	}
	return in
}
