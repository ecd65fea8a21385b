package httpx

import "net/http"

// RequireRole the caller's org-level role must be one of those listed.
func RequireRole(roles ...string) Middleware {
	want := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		want[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeForbidden(w)
				return
			}
			if _, ok := want[claims.Role]; !ok {
				writeForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireDomainRole the caller must hold one of the roles on the domain
// named by the route, falling back to their org-level role.
func RequireDomainRole(domainIDFromRequest func(*http.Request) string, roles ...string) Middleware {
	want := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		want[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeForbidden(w)
				return
			}

			role := claims.Role
			if domainID := domainIDFromRequest(r); domainID != "" {
				if dr, ok := claims.DomainRoles[domainID]; ok {
					role = dr
				}
			}

			if _, ok := want[role]; !ok {
				writeForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeForbidden(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope"`)
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte("forbidden"))
}
