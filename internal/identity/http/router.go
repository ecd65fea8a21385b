package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/service"
	"github.com/corvidmail/corvid/internal/identity/store"
	"github.com/corvidmail/corvid/pkg/httpx"
	"github.com/corvidmail/corvid/pkg/jwtx"
	"github.com/corvidmail/corvid/pkg/slogx"

	_ "github.com/corvidmail/corvid/api/identity" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeyManager
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	AuthService     *service.AuthService
	SessionService  *service.SessionService
	MFAService      *service.MFAService
	PasswordService *service.PasswordService
	EmailService    *service.EmailService
	UserService     *service.UserService
	DomainService   *service.DomainService
	SSOService      *service.SSOService
}

func NewRouter(
	keys *jwtx.KeyManager,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerMFA()
	r.registerPassword()
	r.registerUsers()
	r.registerSessions()
	r.registerDomains()
	r.registerSSO()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Corvid Identity Service API
//	@version		0.1.0
//	@description	Multi-tenant identity and session service for the Corvid mail platform: registration, password and SSO login, refresh-token rotation with theft detection, TOTP MFA, and domain ownership verification.
//	@description
//	@description				All tokens are signed with EdDSA (Ed25519) and can be verified using the JWKS endpoint.
//
//	@contact.name				Corvid Mail
//	@contact.url				https://github.com/corvidmail/corvid
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		AuthService:    r.AuthService,
		SessionService: r.SessionService,
	}

	// Credential endpoints carry strict per-IP limits against brute force.
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/mfa/verify",
		httpx.Chain(http.HandlerFunc(h.HandleMFAVerify),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/logout-all",
		httpx.Chain(http.HandlerFunc(h.HandleLogoutAll),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFAService: r.MFAService}

	r.Mux.Handle("POST /v1/auth/mfa/enroll",
		httpx.Chain(http.HandlerFunc(h.HandleEnroll),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	// Enabling checks a live TOTP code; strict limit against code guessing.
	r.Mux.Handle("POST /v1/auth/mfa/enable",
		httpx.Chain(http.HandlerFunc(h.HandleEnable),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/mfa/disable",
		httpx.Chain(http.HandlerFunc(h.HandleDisable),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/mfa/recovery-codes",
		httpx.Chain(http.HandlerFunc(h.HandleRecoveryCodes),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerPassword() {
	h := &PasswordHandler{PasswordService: r.PasswordService}

	r.Mux.Handle("POST /v1/auth/password/change",
		httpx.Chain(http.HandlerFunc(h.HandleChange),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/password/forgot",
		httpx.Chain(http.HandlerFunc(h.HandleForgot),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/password/reset",
		httpx.Chain(http.HandlerFunc(h.HandleReset),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{
		UserService:  r.UserService,
		EmailService: r.EmailService,
	}

	authed := func(fn http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(limit),
		)
	}

	r.Mux.Handle("GET /v1/users/me", authed(h.HandleMe, httpx.LenientLimit))
	r.Mux.Handle("GET /v1/users/me/emails", authed(h.HandleListEmails, httpx.LenientLimit))
	r.Mux.Handle("POST /v1/users/me/emails", authed(h.HandleAddEmail, httpx.ModerateLimit))
	r.Mux.Handle("PUT /v1/users/me/emails/{id}/primary", authed(h.HandleSetPrimaryEmail, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/users/me/emails/{id}", authed(h.HandleDeleteEmail, httpx.ModerateLimit))

	// The verification link is clicked from an email, no session required.
	r.Mux.Handle("GET /v1/users/me/emails/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyEmail),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{SessionService: r.SessionService}

	r.Mux.Handle("GET /v1/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/sessions/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleRevoke),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerDomains() {
	h := &DomainsHandler{
		DomainService: r.DomainService,
		SSOService:    r.SSOService,
	}

	admin := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireRole(domain.RoleAdmin, domain.RoleOwner),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /v1/domains", admin(h.HandleCreate))
	r.Mux.Handle("GET /v1/domains", admin(h.HandleList))
	r.Mux.Handle("GET /v1/domains/{id}", admin(h.HandleGet))
	r.Mux.Handle("POST /v1/domains/{id}/verify", admin(h.HandleVerify))

	r.Mux.Handle("PUT /v1/domains/{id}/sso", admin(h.HandleConfigureSSO))
	r.Mux.Handle("GET /v1/domains/{id}/sso", admin(h.HandleGetSSO))
	r.Mux.Handle("DELETE /v1/domains/{id}/sso", admin(h.HandleDisableSSO))
}

func (r *Router) registerSSO() {
	h := &SSOHandler{SSOService: r.SSOService}

	r.Mux.Handle("GET /v1/sso/discover",
		httpx.Chain(http.HandlerFunc(h.HandleDiscover),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /v1/sso/initiate",
		httpx.Chain(http.HandlerFunc(h.HandleInitiate),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	// Callbacks complete logins; strict per-IP limits.
	r.Mux.Handle("POST /v1/sso/saml/acs",
		httpx.Chain(http.HandlerFunc(h.HandleSAMLACS),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("GET /v1/sso/oidc/callback",
		httpx.Chain(http.HandlerFunc(h.HandleOIDCCallback),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("GET /v1/sso/saml/metadata",
		httpx.Chain(http.HandlerFunc(h.HandleSAMLMetadata),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
