package saml

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
)

type entityDescriptor struct {
	XMLName  xml.Name        `xml:"md:EntityDescriptor"`
	XMLNSMD  string          `xml:"xmlns:md,attr"`
	XMLNSDS  string          `xml:"xmlns:ds,attr"`
	EntityID string          `xml:"entityID,attr"`
	SP       spSSODescriptor `xml:"md:SPSSODescriptor"`
}

type spSSODescriptor struct {
	AuthnRequestsSigned  bool             `xml:"AuthnRequestsSigned,attr"`
	WantAssertionsSigned bool             `xml:"WantAssertionsSigned,attr"`
	ProtocolSupport      string           `xml:"protocolSupportEnumeration,attr"`
	KeyDescriptors       []keyDescriptor  `xml:"md:KeyDescriptor,omitempty"`
	NameIDFormats        []string         `xml:"md:NameIDFormat"`
	ACS                  []indexedService `xml:"md:AssertionConsumerService"`
}

type keyDescriptor struct {
	Use     string `xml:"use,attr"`
	KeyInfo keyInfo
}

type keyInfo struct {
	XMLName     xml.Name `xml:"ds:KeyInfo"`
	Certificate string   `xml:"ds:X509Data>ds:X509Certificate"`
}

type indexedService struct {
	Binding   string `xml:"Binding,attr"`
	Location  string `xml:"Location,attr"`
	Index     int    `xml:"index,attr"`
	IsDefault bool   `xml:"isDefault,attr"`
}

// Metadata renders the SP metadata document an IdP admin imports when
// setting up the trust. spCertPEM is optional; without it the SP neither
// signs requests nor receives encrypted assertions.
func (p *Processor) Metadata(spCertPEM string) (string, error) {
	descriptor := entityDescriptor{
		XMLNSMD:  MetadataNamespace,
		XMLNSDS:  XMLDSigNamespace,
		EntityID: p.EntityID,
		SP: spSSODescriptor{
			AuthnRequestsSigned:  spCertPEM != "",
			WantAssertionsSigned: true,
			ProtocolSupport:      ProtocolNamespace,
			NameIDFormats: []string{
				NameIDFormatEmail,
				NameIDFormatPersistent,
				NameIDFormatUnspecified,
			},
			ACS: []indexedService{{
				Binding:   BindingHTTPPost,
				Location:  p.ACSURL,
				Index:     0,
				IsDefault: true,
			}},
		},
	}

	if spCertPEM != "" {
		cert, err := parseCertificate(spCertPEM)
		if err != nil {
			return "", fmt.Errorf("parse sp certificate: %w", err)
		}
		encoded := base64.StdEncoding.EncodeToString(cert.Raw)
		descriptor.SP.KeyDescriptors = []keyDescriptor{
			{Use: "signing", KeyInfo: keyInfo{Certificate: encoded}},
			{Use: "encryption", KeyInfo: keyInfo{Certificate: encoded}},
		}
	}

	raw, err := xml.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal sp metadata: %w", err)
	}
	return xml.Header + string(raw), nil
}
