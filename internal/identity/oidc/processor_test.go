package oidc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvidmail/corvid/internal/identity/domain"
)

func TestMapIdentityStandardClaims(t *testing.T) {
	t.Parallel()

	claims := map[string]any{
		"email": "Dana@Acme.Test",
		"name":  "Dana Scully",
		"dept":  "forensics",
		"iat":   float64(1700000000),
	}
	identity, err := mapIdentity("idp-user-42", claims, nil)
	require.NoError(t, err)

	require.Equal(t, "idp-user-42", identity.ProviderUserID)
	require.Equal(t, "dana@acme.test", identity.Email)
	require.Equal(t, "Dana Scully", identity.Name)
	require.Equal(t, "forensics", identity.Attributes["dept"])
	_, hasIat := identity.Attributes["iat"]
	require.False(t, hasIat, "non-string claims are dropped")
}

func TestMapIdentityAttributeMap(t *testing.T) {
	t.Parallel()

	claims := map[string]any{
		"upn":          "dana@acme.test",
		"display_name": "Dana Scully",
	}
	attrMap := map[string]string{"email": "upn", "name": "display_name"}

	identity, err := mapIdentity("idp-user-42", claims, attrMap)
	require.NoError(t, err)
	require.Equal(t, "dana@acme.test", identity.Email)
	require.Equal(t, "Dana Scully", identity.Name)
}

func TestMapIdentityNameFallback(t *testing.T) {
	t.Parallel()

	claims := map[string]any{
		"email":       "dana@acme.test",
		"given_name":  "Dana",
		"family_name": "Scully",
	}
	identity, err := mapIdentity("idp-user-42", claims, nil)
	require.NoError(t, err)
	require.Equal(t, "Dana Scully", identity.Name)
}

func TestMapIdentityRequiresSubject(t *testing.T) {
	t.Parallel()

	_, err := mapIdentity("", map[string]any{"email": "x@y.test"}, nil)
	require.ErrorIs(t, err, ErrNoSubject)
}

func newDiscoveryServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 server.URL,
			"authorization_endpoint": server.URL + "/auth",
			"token_endpoint":         server.URL + "/token",
			"jwks_uri":               server.URL + "/keys",
			"userinfo_endpoint":      server.URL + "/userinfo",
		})
	})
	return server
}

func TestAuthCodeURL(t *testing.T) {
	t.Parallel()

	server := newDiscoveryServer(t)
	cfg := &domain.OIDCConfig{
		Issuer:   server.URL,
		ClientID: "corvid-client",
	}

	p := NewProcessor("https://id.corvidmail.test/v1/sso/oidc/callback")
	authURL, err := p.AuthCodeURL(context.Background(), cfg, "state-123")
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	require.Equal(t, "/auth", parsed.Path)

	query := parsed.Query()
	require.Equal(t, "corvid-client", query.Get("client_id"))
	require.Equal(t, "state-123", query.Get("state"))
	require.Equal(t, "https://id.corvidmail.test/v1/sso/oidc/callback", query.Get("redirect_uri"))
	require.Contains(t, query.Get("scope"), "openid")
}

func TestAuthCodeURLDiscoveryFailure(t *testing.T) {
	t.Parallel()

	p := NewProcessor("https://id.corvidmail.test/v1/sso/oidc/callback")
	_, err := p.AuthCodeURL(context.Background(), &domain.OIDCConfig{Issuer: "http://127.0.0.1:1/nope"}, "state")
	require.ErrorIs(t, err, ErrDiscovery)
}
