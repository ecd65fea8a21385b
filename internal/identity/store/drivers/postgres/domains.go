package postgres

import (
	"context"
	"time"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/store"
)

type domainsRepo struct{ db dbtx }

const domainColumns = `
	id, org_id, name, status, verification_status, verification_token,
	verification_method, verified_at, created_at, updated_at
`

func (r *domainsRepo) scanDomain(row interface{ Scan(dest ...any) error }) (domain.Domain, error) {
	var d domain.Domain
	err := row.Scan(
		&d.ID, &d.OrgID, &d.Name, &d.Status, &d.VerificationStatus, &d.VerificationToken,
		&d.VerificationMethod, &d.VerifiedAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return domain.Domain{}, mapNotFound(err)
	}
	return d, nil
}

func (r *domainsRepo) GetDomainByID(ctx context.Context, id string) (domain.Domain, error) {
	const query = `SELECT ` + domainColumns + ` FROM domains WHERE id = $1`
	return r.scanDomain(r.db.QueryRow(ctx, query, id))
}

func (r *domainsRepo) GetDomainByName(ctx context.Context, name string) (domain.Domain, error) {
	const query = `SELECT ` + domainColumns + ` FROM domains WHERE LOWER(name) = LOWER($1)`
	return r.scanDomain(r.db.QueryRow(ctx, query, name))
}

func (r *domainsRepo) ListOrgDomains(ctx context.Context, orgID string) ([]domain.Domain, error) {
	const query = `SELECT ` + domainColumns + ` FROM domains WHERE org_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var domains []domain.Domain
	for rows.Next() {
		d, err := r.scanDomain(rows)
		if err != nil {
			return nil, err
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

func (r *domainsRepo) CreateDomain(ctx context.Context, d domain.Domain) error {
	const query = `
		INSERT INTO domains (id, org_id, name, status, verification_status, verification_token, verification_method, created_at, updated_at)
		VALUES ($1, $2, LOWER($3), $4, $5, $6, $7, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query,
		d.ID, d.OrgID, d.Name, d.Status, d.VerificationStatus, d.VerificationToken, d.VerificationMethod,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *domainsRepo) UpdateVerification(ctx context.Context, domainID, verificationStatus string, verifiedAt *time.Time) error {
	const query = `
		UPDATE domains
		SET verification_status = $2,
		    verified_at = $3,
		    status = CASE WHEN $2 = 'verified' AND status = 'pending' THEN 'active' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, domainID, verificationStatus, verifiedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *domainsRepo) UpdateDomainStatus(ctx context.Context, domainID, status string) error {
	const query = `UPDATE domains SET status = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, domainID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
