package saml

import (
	"bytes"
	"compress/flate"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"net/url"
	"time"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/pkg/cryptox"
)

// NewRequestID returns a fresh AuthnRequest ID. SAML IDs must start with
// a letter or underscore, so the random token gets an underscore prefix.
func NewRequestID() string {
	return "_" + cryptox.MustGenerateToken(cryptox.TokenSize128)
}

// BuildRedirectURL produces the HTTP-Redirect binding URL that sends the
// browser to the IdP: the AuthnRequest is deflated, base64 encoded and
// attached as a query parameter. When the config carries an SP private
// key the query string is signed with RSA-SHA256 as the binding requires.
func (p *Processor) BuildRedirectURL(cfg *domain.SAMLConfig, requestID, relayState string) (string, error) {
	request := AuthnRequest{
		XMLNSProtocol:               ProtocolNamespace,
		XMLNSAssertion:              AssertionNamespace,
		ID:                          requestID,
		Version:                     "2.0",
		IssueInstant:                p.now().UTC().Format(time.RFC3339),
		Destination:                 cfg.IdPSSOURL,
		ProtocolBinding:             BindingHTTPPost,
		AssertionConsumerServiceURL: p.ACSURL,
		Issuer:                      RequestIssuer{Value: p.EntityID},
		NameIDPolicy: &NameIDPolicy{
			Format:      NameIDFormatEmail,
			AllowCreate: true,
		},
	}

	raw, err := xml.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("marshal authn request: %w", err)
	}

	var deflated bytes.Buffer
	writer, err := flate.NewWriter(&deflated, flate.BestCompression)
	if err != nil {
		return "", fmt.Errorf("compress authn request: %w", err)
	}
	if _, err := writer.Write(raw); err != nil {
		return "", fmt.Errorf("compress authn request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("compress authn request: %w", err)
	}

	query := "SAMLRequest=" + url.QueryEscape(base64.StdEncoding.EncodeToString(deflated.Bytes()))
	if relayState != "" {
		query += "&RelayState=" + url.QueryEscape(relayState)
	}

	if cfg.SPPrivateKey != "" {
		signed, err := signRedirectQuery(query, cfg.SPPrivateKey)
		if err != nil {
			return "", err
		}
		query = signed
	}

	idpURL, err := url.Parse(cfg.IdPSSOURL)
	if err != nil {
		return "", fmt.Errorf("parse idp sso url: %w", err)
	}
	if idpURL.RawQuery != "" {
		idpURL.RawQuery += "&" + query
	} else {
		idpURL.RawQuery = query
	}
	return idpURL.String(), nil
}

// signRedirectQuery signs SAMLRequest[&RelayState]&SigAlg exactly as
// concatenated, then appends the Signature parameter.
func signRedirectQuery(query, spPrivateKeyPEM string) (string, error) {
	key, err := parseRSAPrivateKey(spPrivateKeyPEM)
	if err != nil {
		return "", fmt.Errorf("parse sp private key: %w", err)
	}

	toSign := query + "&SigAlg=" + url.QueryEscape(sigAlgRSASHA256)
	digest := sha256.Sum256([]byte(toSign))
	signature, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign authn request: %w", err)
	}

	return toSign + "&Signature=" + url.QueryEscape(base64.StdEncoding.EncodeToString(signature)), nil
}
