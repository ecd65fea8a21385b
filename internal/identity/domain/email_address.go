package domain

import "time"

// EmailAddress links a user to an address on one of the organization's
// domains. Exactly one address per user is primary at any time.
type EmailAddress struct {
	ID                string
	UserID            string
	DomainID          string
	Address           string // full address, stored lowercase
	IsPrimary         bool
	IsVerified        bool
	VerificationToken *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
