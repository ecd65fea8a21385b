// Package saml parses and validates SAML 2.0 responses and builds
// SP-initiated requests for the HTTP-Redirect binding.
package saml

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/corvidmail/corvid/internal/identity/domain"
)

var (
	ErrMalformed           = errors.New("saml: malformed response")
	ErrSignature           = errors.New("saml: signature verification failed")
	ErrStatus              = errors.New("saml: response status not success")
	ErrRequestIDMismatch   = errors.New("saml: in-response-to mismatch")
	ErrDestination         = errors.New("saml: destination mismatch")
	ErrIssuer              = errors.New("saml: issuer mismatch")
	ErrNoAssertion         = errors.New("saml: no assertion in response")
	ErrDecrypt             = errors.New("saml: assertion decryption failed")
	ErrConditions          = errors.New("saml: conditions not satisfied")
	ErrSubjectConfirmation = errors.New("saml: subject confirmation rejected")
	ErrNoNameID            = errors.New("saml: assertion has no NameID")
)

const defaultClockSkew = 5 * time.Minute

// Processor validates IdP responses for one service provider identity.
// EntityID doubles as the expected assertion audience.
type Processor struct {
	EntityID  string
	ACSURL    string
	ClockSkew time.Duration

	now func() time.Time
}

// NewProcessor builds a Processor with the default clock skew allowance.
func NewProcessor(entityID, acsURL string) *Processor {
	return &Processor{
		EntityID:  entityID,
		ACSURL:    acsURL,
		ClockSkew: defaultClockSkew,
		now:       time.Now,
	}
}

// ParseResponse validates a base64-encoded SAML response end to end and
// extracts the asserted identity. Every check fails closed: a response
// that passes signature verification is still rejected on any status,
// timing, audience or confirmation mismatch.
func (p *Processor) ParseResponse(cfg *domain.SAMLConfig, attrMap map[string]string, rawBase64, expectedRequestID string) (domain.ExternalIdentity, error) {
	var zero domain.ExternalIdentity

	decoded, err := base64.StdEncoding.DecodeString(rawBase64)
	if err != nil {
		return zero, fmt.Errorf("%w: base64 decode: %v", ErrMalformed, err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(decoded); err != nil {
		return zero, fmt.Errorf("%w: xml parse: %v", ErrMalformed, err)
	}

	var resp Response
	if err := xml.Unmarshal(decoded, &resp); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if cfg.WantAssertionsSigned {
		validated, err := p.verifySignature(doc, cfg.IdPCertificate)
		switch {
		case err == nil && validated != nil:
			// Only the assertion carries the signature; trust the
			// validated element rather than whatever surrounds it.
			resp.Assertions = []Assertion{*validated}
		case err != nil:
			// The signature may live on an assertion the IdP
			// encrypted. Decrypt and verify the plaintext; anything
			// short of a verified signature keeps the original
			// rejection.
			encrypted := findElement(doc.Root(), "EncryptedAssertion")
			if encrypted == nil {
				return zero, err
			}
			plain, derr := decryptAssertionElement(encrypted, cfg.SPPrivateKey)
			if derr != nil {
				return zero, derr
			}
			validated, verr := p.verifyAssertionElement(plain, cfg.IdPCertificate)
			if verr != nil {
				return zero, verr
			}
			resp.Assertions = []Assertion{*validated}
		}
	}

	if resp.Status.StatusCode.Value != StatusSuccess {
		return zero, fmt.Errorf("%w: %s %s", ErrStatus, resp.Status.StatusCode.Value, resp.Status.StatusMessage)
	}
	if expectedRequestID != "" && resp.InResponseTo != expectedRequestID {
		return zero, ErrRequestIDMismatch
	}
	if resp.Destination != "" && resp.Destination != p.ACSURL {
		return zero, fmt.Errorf("%w: got %q want %q", ErrDestination, resp.Destination, p.ACSURL)
	}
	if cfg.IdPEntityID != "" && strings.TrimSpace(resp.Issuer) != cfg.IdPEntityID {
		return zero, fmt.Errorf("%w: got %q want %q", ErrIssuer, strings.TrimSpace(resp.Issuer), cfg.IdPEntityID)
	}

	if len(resp.Assertions) == 0 {
		encrypted := findElement(doc.Root(), "EncryptedAssertion")
		if encrypted == nil {
			return zero, ErrNoAssertion
		}
		assertion, err := decryptAssertion(encrypted, cfg.SPPrivateKey)
		if err != nil {
			return zero, err
		}
		resp.Assertions = append(resp.Assertions, *assertion)
	}

	assertion := &resp.Assertions[0]
	if err := p.validateConditions(&assertion.Conditions); err != nil {
		return zero, err
	}
	if err := p.validateSubjectConfirmation(&assertion.Subject.SubjectConfirmation, expectedRequestID); err != nil {
		return zero, err
	}

	nameID := strings.TrimSpace(assertion.Subject.NameID.Value)
	if nameID == "" {
		return zero, ErrNoNameID
	}

	attrs := canonicalAttributes(assertion, attrMap)
	attrs["name_id"] = nameID
	attrs["name_id_format"] = assertion.Subject.NameID.Format

	identity := domain.ExternalIdentity{
		ProviderUserID: nameID,
		Email:          resolveEmail(attrs, assertion.Subject.NameID),
		Name:           resolveName(attrs),
		Attributes:     attrs,
	}
	return identity, nil
}

// verifySignature checks the XML digital signature against the IdP
// certificate. It accepts a signature enveloped in the Response root or,
// failing that, in the Assertion itself. The validated assertion (if the
// signature lives there) is returned so callers trust only signed content.
func (p *Processor) verifySignature(doc *etree.Document, idpCertPEM string) (*Assertion, error) {
	cert, err := parseCertificate(idpCertPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}

	ctx := dsig.NewDefaultValidationContext(&dsig.MemoryX509CertificateStore{
		Roots: []*x509.Certificate{cert},
	})

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: empty document", ErrSignature)
	}

	if _, err := ctx.Validate(root); err == nil {
		return nil, nil
	}

	assertionEl := findElement(root, "Assertion")
	if assertionEl == nil {
		return nil, fmt.Errorf("%w: no signed element found", ErrSignature)
	}
	return p.verifyAssertionElement(assertionEl, idpCertPEM)
}

// verifyAssertionElement validates a signature enveloped in the assertion
// itself and parses the assertion back out of the validated subtree.
func (p *Processor) verifyAssertionElement(el *etree.Element, idpCertPEM string) (*Assertion, error) {
	cert, err := parseCertificate(idpCertPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}

	ctx := dsig.NewDefaultValidationContext(&dsig.MemoryX509CertificateStore{
		Roots: []*x509.Certificate{cert},
	})

	validatedEl, err := ctx.Validate(el)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}

	validatedDoc := etree.NewDocument()
	validatedDoc.SetRoot(validatedEl.Copy())
	raw, err := validatedDoc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	var assertion Assertion
	if err := xml.Unmarshal(raw, &assertion); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	return &assertion, nil
}

func (p *Processor) validateConditions(c *Conditions) error {
	now := p.now()

	if c.NotBefore != "" {
		notBefore, err := parseSAMLTime(c.NotBefore)
		if err != nil {
			return fmt.Errorf("%w: bad NotBefore: %v", ErrConditions, err)
		}
		if now.Add(p.ClockSkew).Before(notBefore) {
			return fmt.Errorf("%w: assertion not yet valid", ErrConditions)
		}
	}
	if c.NotOnOrAfter != "" {
		notOnOrAfter, err := parseSAMLTime(c.NotOnOrAfter)
		if err != nil {
			return fmt.Errorf("%w: bad NotOnOrAfter: %v", ErrConditions, err)
		}
		if now.Add(-p.ClockSkew).After(notOnOrAfter) {
			return fmt.Errorf("%w: assertion expired", ErrConditions)
		}
	}

	if len(c.AudienceRestrictions) > 0 {
		found := false
		for _, ar := range c.AudienceRestrictions {
			for _, aud := range ar.Audiences {
				if strings.TrimSpace(aud) == p.EntityID {
					found = true
				}
			}
		}
		if !found {
			return fmt.Errorf("%w: audience does not include %q", ErrConditions, p.EntityID)
		}
	}
	return nil
}

func (p *Processor) validateSubjectConfirmation(sc *SubjectConfirmation, expectedRequestID string) error {
	if sc.Method != confirmationMethodBearer {
		return fmt.Errorf("%w: method %q", ErrSubjectConfirmation, sc.Method)
	}

	data := &sc.SubjectConfirmationData
	if expectedRequestID != "" && data.InResponseTo != expectedRequestID {
		return fmt.Errorf("%w: in-response-to mismatch", ErrSubjectConfirmation)
	}
	if data.NotOnOrAfter != "" {
		notOnOrAfter, err := parseSAMLTime(data.NotOnOrAfter)
		if err != nil {
			return fmt.Errorf("%w: bad NotOnOrAfter: %v", ErrSubjectConfirmation, err)
		}
		if p.now().Add(-p.ClockSkew).After(notOnOrAfter) {
			return fmt.Errorf("%w: confirmation expired", ErrSubjectConfirmation)
		}
	}
	if data.Recipient != "" && data.Recipient != p.ACSURL {
		return fmt.Errorf("%w: recipient %q", ErrSubjectConfirmation, data.Recipient)
	}
	return nil
}

// canonicalAttributes flattens the attribute statement into a string map.
// attrMap maps canonical keys ("email", "name") to the IdP's attribute
// Name or FriendlyName; unmapped attributes keep their friendly name.
func canonicalAttributes(assertion *Assertion, attrMap map[string]string) map[string]string {
	attrs := make(map[string]string)

	for _, attr := range assertion.AttributeStatement.Attributes {
		if len(attr.Values) == 0 {
			continue
		}
		value := strings.TrimSpace(attr.Values[0].Value)

		key := attr.Name
		if attr.FriendlyName != "" {
			key = attr.FriendlyName
		}
		for canonical, source := range attrMap {
			if source == attr.Name || source == attr.FriendlyName {
				key = canonical
				break
			}
		}
		attrs[key] = value
	}
	return attrs
}

// Attribute names commonly used by IdPs when no explicit mapping exists.
var (
	emailAttributeNames = []string{
		"email", "mail", "emailAddress",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress",
	}
	nameAttributeNames = []string{
		"name", "displayName", "cn",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name",
	}
)

func resolveEmail(attrs map[string]string, nameID NameID) string {
	for _, key := range emailAttributeNames {
		if v := attrs[key]; v != "" {
			return v
		}
	}
	if nameID.Format == NameIDFormatEmail || strings.Contains(nameID.Value, "@") {
		return strings.TrimSpace(nameID.Value)
	}
	return ""
}

func resolveName(attrs map[string]string) string {
	for _, key := range nameAttributeNames {
		if v := attrs[key]; v != "" {
			return v
		}
	}
	given, sur := attrs["givenName"], attrs["sn"]
	if given != "" && sur != "" {
		return given + " " + sur
	}
	return ""
}

// parseCertificate accepts a PEM certificate or a bare base64 DER blob,
// which is how many IdP admin consoles export metadata certs.
func parseCertificate(raw string) (*x509.Certificate, error) {
	block, _ := pem.Decode([]byte(raw))
	if block != nil {
		return x509.ParseCertificate(block.Bytes)
	}

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, raw)
	der, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("certificate is neither PEM nor base64 DER: %w", err)
	}
	return x509.ParseCertificate(der)
}

// findElement walks the tree for the first element with the given local
// name, ignoring namespace prefixes.
func findElement(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	if el.Tag == tag {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := findElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

// parseSAMLTime accepts RFC 3339 with or without sub-second precision.
func parseSAMLTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
