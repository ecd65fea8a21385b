package domain

import "time"

const (
	DomainStatusPending   = "pending"
	DomainStatusActive    = "active"
	DomainStatusSuspended = "suspended"
	DomainStatusDeleted   = "deleted"
)

const (
	VerificationUnverified = "unverified"
	VerificationVerified   = "verified"
	VerificationFailed     = "failed"
)

const (
	VerifyMethodTXT   = "dns_txt"
	VerifyMethodCNAME = "dns_cname"
)

// Domain is a mail domain owned by an organization. Ownership is proven by
// a DNS record carrying the verification token.
type Domain struct {
	ID                 string
	OrgID              string
	Name               string // punycode, lowercase
	Status             string
	VerificationStatus string
	VerificationToken  string
	VerificationMethod string
	VerifiedAt         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
