package saml

import "encoding/xml"

// SAML 2.0 namespaces.
const (
	ProtocolNamespace  = "urn:oasis:names:tc:SAML:2.0:protocol"
	AssertionNamespace = "urn:oasis:names:tc:SAML:2.0:assertion"
	MetadataNamespace  = "urn:oasis:names:tc:SAML:2.0:metadata"
	XMLDSigNamespace   = "http://www.w3.org/2000/09/xmldsig#"
	XMLEncNamespace    = "http://www.w3.org/2001/04/xmlenc#"
)

// NameID formats.
const (
	NameIDFormatEmail       = "urn:oasis:names:tc:SAML:1.1:nameid-format:emailAddress"
	NameIDFormatPersistent  = "urn:oasis:names:tc:SAML:2.0:nameid-format:persistent"
	NameIDFormatTransient   = "urn:oasis:names:tc:SAML:2.0:nameid-format:transient"
	NameIDFormatUnspecified = "urn:oasis:names:tc:SAML:1.1:nameid-format:unspecified"
)

// Status codes.
const (
	StatusSuccess     = "urn:oasis:names:tc:SAML:2.0:status:Success"
	StatusRequester   = "urn:oasis:names:tc:SAML:2.0:status:Requester"
	StatusResponder   = "urn:oasis:names:tc:SAML:2.0:status:Responder"
	StatusAuthnFailed = "urn:oasis:names:tc:SAML:2.0:status:AuthnFailed"
)

// Subject confirmation methods.
const confirmationMethodBearer = "urn:oasis:names:tc:SAML:2.0:cm:bearer"

// Bindings.
const (
	BindingHTTPPost     = "urn:oasis:names:tc:SAML:2.0:bindings:HTTP-POST"
	BindingHTTPRedirect = "urn:oasis:names:tc:SAML:2.0:bindings:HTTP-Redirect"
)

// Signature algorithm identifier used on redirect-binding query strings.
const sigAlgRSASHA256 = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"

// Response is a SAML 2.0 Response as delivered to the ACS endpoint.
type Response struct {
	XMLName      xml.Name `xml:"Response"`
	ID           string   `xml:"ID,attr"`
	Version      string   `xml:"Version,attr"`
	IssueInstant string   `xml:"IssueInstant,attr"`
	Destination  string   `xml:"Destination,attr"`
	InResponseTo string   `xml:"InResponseTo,attr"`
	Issuer       string   `xml:"Issuer"`
	Status       Status
	Assertions   []Assertion `xml:"Assertion"`
}

// Status wraps the response status code and optional message.
type Status struct {
	XMLName       xml.Name `xml:"Status"`
	StatusCode    StatusCode
	StatusMessage string `xml:"StatusMessage,omitempty"`
}

// StatusCode carries the status URN.
type StatusCode struct {
	XMLName xml.Name `xml:"StatusCode"`
	Value   string   `xml:"Value,attr"`
}

// Assertion is a SAML 2.0 Assertion, either plaintext or the result of
// decrypting an EncryptedAssertion.
type Assertion struct {
	XMLName            xml.Name `xml:"Assertion"`
	ID                 string   `xml:"ID,attr"`
	Version            string   `xml:"Version,attr"`
	IssueInstant       string   `xml:"IssueInstant,attr"`
	Issuer             string   `xml:"Issuer"`
	Subject            Subject
	Conditions         Conditions
	AuthnStatement     AuthnStatement
	AttributeStatement AttributeStatement
}

// Subject carries the NameID and its confirmation.
type Subject struct {
	XMLName             xml.Name `xml:"Subject"`
	NameID              NameID
	SubjectConfirmation SubjectConfirmation
}

// NameID identifies the authenticated principal.
type NameID struct {
	XMLName xml.Name `xml:"NameID"`
	Format  string   `xml:"Format,attr"`
	Value   string   `xml:",chardata"`
}

// SubjectConfirmation binds the assertion to this request.
type SubjectConfirmation struct {
	XMLName                 xml.Name `xml:"SubjectConfirmation"`
	Method                  string   `xml:"Method,attr"`
	SubjectConfirmationData SubjectConfirmationData
}

// SubjectConfirmationData constrains where and until when the assertion
// may be presented.
type SubjectConfirmationData struct {
	XMLName      xml.Name `xml:"SubjectConfirmationData"`
	InResponseTo string   `xml:"InResponseTo,attr"`
	NotOnOrAfter string   `xml:"NotOnOrAfter,attr"`
	Recipient    string   `xml:"Recipient,attr"`
}

// Conditions bound the assertion's validity window and audience.
type Conditions struct {
	XMLName              xml.Name              `xml:"Conditions"`
	NotBefore            string                `xml:"NotBefore,attr"`
	NotOnOrAfter         string                `xml:"NotOnOrAfter,attr"`
	AudienceRestrictions []AudienceRestriction `xml:"AudienceRestriction"`
}

// AudienceRestriction lists the SP entity IDs the assertion is meant for.
type AudienceRestriction struct {
	XMLName   xml.Name `xml:"AudienceRestriction"`
	Audiences []string `xml:"Audience"`
}

// AuthnStatement records the authentication event at the IdP.
type AuthnStatement struct {
	XMLName             xml.Name `xml:"AuthnStatement"`
	AuthnInstant        string   `xml:"AuthnInstant,attr"`
	SessionIndex        string   `xml:"SessionIndex,attr,omitempty"`
	SessionNotOnOrAfter string   `xml:"SessionNotOnOrAfter,attr,omitempty"`
}

// AttributeStatement holds the asserted identity attributes.
type AttributeStatement struct {
	XMLName    xml.Name    `xml:"AttributeStatement"`
	Attributes []Attribute `xml:"Attribute"`
}

// Attribute is one asserted attribute with one or more values.
type Attribute struct {
	XMLName      xml.Name         `xml:"Attribute"`
	Name         string           `xml:"Name,attr"`
	NameFormat   string           `xml:"NameFormat,attr,omitempty"`
	FriendlyName string           `xml:"FriendlyName,attr,omitempty"`
	Values       []AttributeValue `xml:"AttributeValue"`
}

// AttributeValue is a single attribute value.
type AttributeValue struct {
	XMLName xml.Name `xml:"AttributeValue"`
	Value   string   `xml:",chardata"`
}

// AuthnRequest is the SP-initiated login request sent to the IdP.
type AuthnRequest struct {
	XMLName                     xml.Name `xml:"samlp:AuthnRequest"`
	XMLNSProtocol               string   `xml:"xmlns:samlp,attr"`
	XMLNSAssertion              string   `xml:"xmlns:saml,attr"`
	ID                          string   `xml:"ID,attr"`
	Version                     string   `xml:"Version,attr"`
	IssueInstant                string   `xml:"IssueInstant,attr"`
	Destination                 string   `xml:"Destination,attr"`
	ProtocolBinding             string   `xml:"ProtocolBinding,attr"`
	AssertionConsumerServiceURL string   `xml:"AssertionConsumerServiceURL,attr"`
	Issuer                      RequestIssuer
	NameIDPolicy                *NameIDPolicy `xml:"samlp:NameIDPolicy,omitempty"`
}

// RequestIssuer is the Issuer element on outgoing requests.
type RequestIssuer struct {
	XMLName xml.Name `xml:"saml:Issuer"`
	Value   string   `xml:",chardata"`
}

// NameIDPolicy asks the IdP for a particular identifier format.
type NameIDPolicy struct {
	XMLName     xml.Name `xml:"samlp:NameIDPolicy"`
	Format      string   `xml:"Format,attr"`
	AllowCreate bool     `xml:"AllowCreate,attr"`
}
