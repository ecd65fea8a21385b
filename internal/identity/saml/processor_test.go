package saml

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"github.com/stretchr/testify/require"

	"github.com/corvidmail/corvid/internal/identity/domain"
)

const (
	testSPEntityID   = "https://id.corvidmail.test/saml/metadata"
	testACSURL       = "https://id.corvidmail.test/v1/sso/saml/callback"
	testIdPEntityID  = "https://idp.acme.test/saml"
	testRequestID    = "_req-0001"
	testResponseAttr = "urn:oid:0.9.2342.19200300.100.1.3"
)

type responseFixture struct {
	Status         string
	InResponseTo   string
	Destination    string
	Issuer         string
	NotBefore      time.Time
	NotOnOrAfter   time.Time
	SCNotOnOrAfter time.Time
	Audience       string
	Method         string
	NameID         string
}

func newResponseFixture() responseFixture {
	now := time.Now().UTC()
	return responseFixture{
		Status:         StatusSuccess,
		InResponseTo:   testRequestID,
		Destination:    testACSURL,
		Issuer:         testIdPEntityID,
		NotBefore:      now.Add(-time.Hour),
		NotOnOrAfter:   now.Add(time.Hour),
		SCNotOnOrAfter: now.Add(time.Hour),
		Audience:       testSPEntityID,
		Method:         confirmationMethodBearer,
		NameID:         "bob@acme.test",
	}
}

func (f responseFixture) xml() string {
	return fmt.Sprintf(`<samlp:Response xmlns:samlp="%s" xmlns:saml="%s" ID="_resp-0001" Version="2.0" IssueInstant="%s" Destination="%s" InResponseTo="%s">
  <saml:Issuer>%s</saml:Issuer>
  <samlp:Status><samlp:StatusCode Value="%s"/></samlp:Status>
  <saml:Assertion ID="_assert-0001" Version="2.0" IssueInstant="%s">
    <saml:Issuer>%s</saml:Issuer>
    <saml:Subject>
      <saml:NameID Format="%s">%s</saml:NameID>
      <saml:SubjectConfirmation Method="%s">
        <saml:SubjectConfirmationData InResponseTo="%s" NotOnOrAfter="%s" Recipient="%s"/>
      </saml:SubjectConfirmation>
    </saml:Subject>
    <saml:Conditions NotBefore="%s" NotOnOrAfter="%s">
      <saml:AudienceRestriction><saml:Audience>%s</saml:Audience></saml:AudienceRestriction>
    </saml:Conditions>
    <saml:AuthnStatement AuthnInstant="%s" SessionIndex="_sess-0001"/>
    <saml:AttributeStatement>
      <saml:Attribute Name="%s"><saml:AttributeValue>%s</saml:AttributeValue></saml:Attribute>
      <saml:Attribute Name="displayName"><saml:AttributeValue>Bob Builder</saml:AttributeValue></saml:Attribute>
      <saml:Attribute Name="department"><saml:AttributeValue>Ops</saml:AttributeValue></saml:Attribute>
    </saml:AttributeStatement>
  </saml:Assertion>
</samlp:Response>`,
		ProtocolNamespace, AssertionNamespace,
		time.Now().UTC().Format(time.RFC3339), f.Destination, f.InResponseTo,
		f.Issuer, f.Status,
		time.Now().UTC().Format(time.RFC3339), f.Issuer,
		NameIDFormatEmail, f.NameID, f.Method,
		f.InResponseTo, f.SCNotOnOrAfter.Format(time.RFC3339), f.Destination,
		f.NotBefore.Format(time.RFC3339), f.NotOnOrAfter.Format(time.RFC3339), f.Audience,
		time.Now().UTC().Format(time.RFC3339),
		testResponseAttr, f.NameID)
}

func (f responseFixture) encode() string {
	return base64.StdEncoding.EncodeToString([]byte(f.xml()))
}

func newTestProcessor() *Processor {
	return NewProcessor(testSPEntityID, testACSURL)
}

func unsignedConfig() *domain.SAMLConfig {
	return &domain.SAMLConfig{
		IdPEntityID:          testIdPEntityID,
		IdPSSOURL:            "https://idp.acme.test/saml/sso",
		WantAssertionsSigned: false,
	}
}

func TestParseResponseExtractsIdentity(t *testing.T) {
	t.Parallel()

	attrMap := map[string]string{
		"email": testResponseAttr,
		"name":  "displayName",
	}
	identity, err := newTestProcessor().ParseResponse(unsignedConfig(), attrMap, newResponseFixture().encode(), testRequestID)
	require.NoError(t, err)

	require.Equal(t, "bob@acme.test", identity.ProviderUserID)
	require.Equal(t, "bob@acme.test", identity.Email)
	require.Equal(t, "Bob Builder", identity.Name)
	require.Equal(t, "Ops", identity.Attributes["department"])
	require.Equal(t, "bob@acme.test", identity.Attributes["name_id"])
	require.Equal(t, NameIDFormatEmail, identity.Attributes["name_id_format"])
}

func TestParseResponseEmailFallsBackToNameID(t *testing.T) {
	t.Parallel()

	identity, err := newTestProcessor().ParseResponse(unsignedConfig(), nil, newResponseFixture().encode(), testRequestID)
	require.NoError(t, err)
	require.Equal(t, "bob@acme.test", identity.Email)
}

func TestParseResponseFailsClosed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*responseFixture)
		wantErr error
	}{
		{"status not success", func(f *responseFixture) { f.Status = StatusAuthnFailed }, ErrStatus},
		{"in-response-to mismatch", func(f *responseFixture) { f.InResponseTo = "_other" }, ErrRequestIDMismatch},
		{"destination mismatch", func(f *responseFixture) { f.Destination = "https://evil.test/acs" }, ErrDestination},
		{"issuer mismatch", func(f *responseFixture) { f.Issuer = "https://evil.test/idp" }, ErrIssuer},
		{"assertion expired", func(f *responseFixture) { f.NotOnOrAfter = time.Now().UTC().Add(-time.Hour) }, ErrConditions},
		{"assertion not yet valid", func(f *responseFixture) { f.NotBefore = time.Now().UTC().Add(time.Hour) }, ErrConditions},
		{"audience mismatch", func(f *responseFixture) { f.Audience = "https://someone-else.test/sp" }, ErrConditions},
		{"non-bearer confirmation", func(f *responseFixture) { f.Method = "urn:oasis:names:tc:SAML:2.0:cm:holder-of-key" }, ErrSubjectConfirmation},
		{"confirmation expired", func(f *responseFixture) { f.SCNotOnOrAfter = time.Now().UTC().Add(-time.Hour) }, ErrSubjectConfirmation},
		{"empty name id", func(f *responseFixture) { f.NameID = " " }, ErrNoNameID},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fixture := newResponseFixture()
			tc.mutate(&fixture)

			_, err := newTestProcessor().ParseResponse(unsignedConfig(), nil, fixture.encode(), testRequestID)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestParseResponseRejectsGarbage(t *testing.T) {
	t.Parallel()

	p := newTestProcessor()

	_, err := p.ParseResponse(unsignedConfig(), nil, "not base64!!", testRequestID)
	require.ErrorIs(t, err, ErrMalformed)

	_, err = p.ParseResponse(unsignedConfig(), nil, base64.StdEncoding.EncodeToString([]byte("<broken")), testRequestID)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestParseResponseRequiresSignatureWhenConfigured(t *testing.T) {
	t.Parallel()

	_, cert := newTestKeyPair(t)
	cfg := unsignedConfig()
	cfg.WantAssertionsSigned = true
	cfg.IdPCertificate = certToPEM(cert)

	_, err := newTestProcessor().ParseResponse(cfg, nil, newResponseFixture().encode(), testRequestID)
	require.ErrorIs(t, err, ErrSignature)
}

func TestParseResponseVerifiesSignature(t *testing.T) {
	t.Parallel()

	key, cert := newTestKeyPair(t)
	signed := signResponse(t, newResponseFixture().xml(), key, cert)

	cfg := unsignedConfig()
	cfg.WantAssertionsSigned = true
	cfg.IdPCertificate = certToPEM(cert)

	identity, err := newTestProcessor().ParseResponse(cfg, nil, signed, testRequestID)
	require.NoError(t, err)
	require.Equal(t, "bob@acme.test", identity.ProviderUserID)
}

func TestParseResponseRejectsTamperedSignature(t *testing.T) {
	t.Parallel()

	key, cert := newTestKeyPair(t)
	signed := signResponse(t, newResponseFixture().xml(), key, cert)

	raw, err := base64.StdEncoding.DecodeString(signed)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(raw))
	nameID := doc.FindElement("//NameID")
	require.NotNil(t, nameID)
	nameID.SetText("mallory@acme.test")
	tampered, err := doc.WriteToBytes()
	require.NoError(t, err)

	cfg := unsignedConfig()
	cfg.WantAssertionsSigned = true
	cfg.IdPCertificate = certToPEM(cert)

	_, err = newTestProcessor().ParseResponse(cfg, nil, base64.StdEncoding.EncodeToString(tampered), testRequestID)
	require.ErrorIs(t, err, ErrSignature)
}

func TestParseResponseRejectsWrongSigner(t *testing.T) {
	t.Parallel()

	signerKey, signerCert := newTestKeyPair(t)
	_, trustedCert := newTestKeyPair(t)
	signed := signResponse(t, newResponseFixture().xml(), signerKey, signerCert)

	cfg := unsignedConfig()
	cfg.WantAssertionsSigned = true
	cfg.IdPCertificate = certToPEM(trustedCert)

	_, err := newTestProcessor().ParseResponse(cfg, nil, signed, testRequestID)
	require.ErrorIs(t, err, ErrSignature)
}

func newTestKeyPair(t *testing.T) (*rsa.PrivateKey, *x509.Certificate) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "idp.acme.test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return key, cert
}

func certToPEM(cert *x509.Certificate) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}))
}

func keyToPEM(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

// signResponse envelope-signs the Response root the way an IdP would and
// returns the base64 document.
func signResponse(t *testing.T, responseXML string, key *rsa.PrivateKey, cert *x509.Certificate) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString([]byte(signXML(t, responseXML, key, cert)))
}

// signXML envelope-signs the document root and returns the signed XML.
func signXML(t *testing.T, rawXML string, key *rsa.PrivateKey, cert *x509.Certificate) string {
	t.Helper()

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(rawXML))

	keyStore := dsig.TLSCertKeyStore(tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  key,
		Leaf:        cert,
	})
	ctx := dsig.NewDefaultSigningContext(keyStore)

	signedRoot, err := ctx.SignEnveloped(doc.Root())
	require.NoError(t, err)

	signedDoc := etree.NewDocument()
	signedDoc.SetRoot(signedRoot)
	raw, err := signedDoc.WriteToBytes()
	require.NoError(t, err)
	return string(raw)
}
