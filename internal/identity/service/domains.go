package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/store"
	"github.com/corvidmail/corvid/pkg/cryptox"
	"github.com/corvidmail/corvid/pkg/idx"
	"github.com/corvidmail/corvid/pkg/slogx"
)

const txtRecordPrefix = "_email-verify."

// Resolver is the slice of net.Resolver the verifier needs. Tests plug in
// a fake.
type Resolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
	LookupCNAME(ctx context.Context, host string) (string, error)
}

// DomainService registers mail domains and proves ownership through DNS.
type DomainService struct {
	Store    store.Store
	Resolver Resolver

	// CNAMETarget is the zone verification CNAMEs must point into, with a
	// trailing dot, e.g. "verify.corvidmail.com.".
	CNAMETarget string
}

// VerificationInstructions tells an admin which DNS record to publish.
type VerificationInstructions struct {
	Method string
	Record string
	Value  string
}

// Create registers a domain for the organization in pending, unverified
// state and returns the record the admin must publish.
func (s *DomainService) Create(ctx context.Context, orgID, actorID, name, method, ip string) (domain.Domain, VerificationInstructions, error) {
	name = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
	if name == "" || !strings.Contains(name, ".") {
		return domain.Domain{}, VerificationInstructions{}, fmt.Errorf("%w: malformed domain name", ErrDomainNotFound)
	}
	if method != domain.VerifyMethodTXT && method != domain.VerifyMethodCNAME {
		method = domain.VerifyMethodTXT
	}

	d := domain.Domain{
		ID:                 idx.New().String(),
		OrgID:              orgID,
		Name:               name,
		Status:             domain.DomainStatusPending,
		VerificationStatus: domain.VerificationUnverified,
		VerificationToken:  cryptox.MustGenerateToken(cryptox.TokenSize128),
		VerificationMethod: method,
	}
	if err := s.Store.Domains().CreateDomain(ctx, d); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Domain{}, VerificationInstructions{}, ErrDomainExists
		}
		return domain.Domain{}, VerificationInstructions{}, fmt.Errorf("create domain: %w", err)
	}

	recordAudit(ctx, s.Store, orgID, &actorID, domain.AuditDomainCreated, &d.ID, map[string]any{
		"name":   d.Name,
		"method": d.VerificationMethod,
	}, ip)

	return d, s.instructions(d), nil
}

// Verify runs the DNS check for a pending domain. Lookup failures and
// missing records mean "not verified yet", not a service error, so admins
// can retry as propagation completes. Verifying an already verified
// domain is a no-op.
func (s *DomainService) Verify(ctx context.Context, orgID, actorID, domainID, ip string) (domain.Domain, error) {
	d, err := s.owned(ctx, orgID, domainID)
	if err != nil {
		return domain.Domain{}, err
	}
	if d.VerificationStatus == domain.VerificationVerified {
		return d, nil
	}

	ok := s.checkDNS(ctx, d)
	now := time.Now().UTC()

	if !ok {
		if err := s.Store.Domains().UpdateVerification(ctx, d.ID, domain.VerificationFailed, nil); err != nil {
			return domain.Domain{}, fmt.Errorf("record verification failure: %w", err)
		}
		d.VerificationStatus = domain.VerificationFailed
		return d, ErrDomainNotVerified
	}

	if err := s.Store.Domains().UpdateVerification(ctx, d.ID, domain.VerificationVerified, &now); err != nil {
		return domain.Domain{}, fmt.Errorf("record verification: %w", err)
	}
	d.VerificationStatus = domain.VerificationVerified
	d.Status = domain.DomainStatusActive
	d.VerifiedAt = &now

	recordAudit(ctx, s.Store, orgID, &actorID, domain.AuditDomainVerified, &d.ID, map[string]any{"name": d.Name}, ip)
	return d, nil
}

// List returns the organization's domains with their verification state
// and pending instructions where applicable.
func (s *DomainService) List(ctx context.Context, orgID string) ([]domain.Domain, error) {
	return s.Store.Domains().ListOrgDomains(ctx, orgID)
}

// Get returns one domain the organization owns.
func (s *DomainService) Get(ctx context.Context, orgID, domainID string) (domain.Domain, error) {
	return s.owned(ctx, orgID, domainID)
}

// Instructions rebuilds the DNS record for an unverified domain.
func (s *DomainService) Instructions(d domain.Domain) VerificationInstructions {
	return s.instructions(d)
}

func (s *DomainService) instructions(d domain.Domain) VerificationInstructions {
	if d.VerificationMethod == domain.VerifyMethodCNAME {
		return VerificationInstructions{
			Method: domain.VerifyMethodCNAME,
			Record: txtRecordPrefix + d.Name,
			Value:  d.VerificationToken + "." + s.CNAMETarget,
		}
	}
	return VerificationInstructions{
		Method: domain.VerifyMethodTXT,
		Record: txtRecordPrefix + d.Name,
		Value:  "email-verify=" + d.VerificationToken,
	}
}

func (s *DomainService) checkDNS(ctx context.Context, d domain.Domain) bool {
	log := slogx.FromContext(ctx)
	host := txtRecordPrefix + d.Name

	switch d.VerificationMethod {
	case domain.VerifyMethodCNAME:
		target, err := s.Resolver.LookupCNAME(ctx, host)
		if err != nil {
			log.Info("cname verification lookup failed", "domain", d.Name, "error", err)
			return false
		}
		want := d.VerificationToken + "." + s.CNAMETarget
		return strings.EqualFold(strings.TrimSuffix(target, ".")+".", want)

	default:
		records, err := s.Resolver.LookupTXT(ctx, host)
		if err != nil {
			log.Info("txt verification lookup failed", "domain", d.Name, "error", err)
			return false
		}
		want := "email-verify=" + d.VerificationToken
		for _, r := range records {
			if strings.TrimSpace(r) == want {
				return true
			}
		}
		return false
	}
}

func (s *DomainService) owned(ctx context.Context, orgID, domainID string) (domain.Domain, error) {
	d, err := s.Store.Domains().GetDomainByID(ctx, domainID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Domain{}, ErrDomainNotFound
		}
		return domain.Domain{}, fmt.Errorf("lookup domain: %w", err)
	}
	if d.OrgID != orgID {
		return domain.Domain{}, ErrPermissionDenied
	}
	return d, nil
}
