package postgres

import (
	"context"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/store"
)

type emailAddressesRepo struct{ db dbtx }

const emailColumns = `
	id, user_id, domain_id, address, is_primary, is_verified, verification_token, created_at, updated_at
`

func (r *emailAddressesRepo) scanEmail(row interface{ Scan(dest ...any) error }) (domain.EmailAddress, error) {
	var e domain.EmailAddress
	err := row.Scan(
		&e.ID, &e.UserID, &e.DomainID, &e.Address, &e.IsPrimary, &e.IsVerified,
		&e.VerificationToken, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return domain.EmailAddress{}, mapNotFound(err)
	}
	return e, nil
}

func (r *emailAddressesRepo) GetEmailByID(ctx context.Context, id string) (domain.EmailAddress, error) {
	const query = `SELECT ` + emailColumns + ` FROM email_addresses WHERE id = $1`
	return r.scanEmail(r.db.QueryRow(ctx, query, id))
}

func (r *emailAddressesRepo) GetEmailByAddress(ctx context.Context, address string) (domain.EmailAddress, error) {
	const query = `SELECT ` + emailColumns + ` FROM email_addresses WHERE LOWER(address) = LOWER($1)`
	return r.scanEmail(r.db.QueryRow(ctx, query, address))
}

func (r *emailAddressesRepo) GetEmailByVerificationToken(ctx context.Context, token string) (domain.EmailAddress, error) {
	const query = `SELECT ` + emailColumns + ` FROM email_addresses WHERE verification_token = $1`
	return r.scanEmail(r.db.QueryRow(ctx, query, token))
}

func (r *emailAddressesRepo) ListUserEmails(ctx context.Context, userID string) ([]domain.EmailAddress, error) {
	const query = `
		SELECT ` + emailColumns + `
		FROM email_addresses WHERE user_id = $1
		ORDER BY is_primary DESC, created_at ASC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []domain.EmailAddress
	for rows.Next() {
		e, err := r.scanEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

func (r *emailAddressesRepo) CreateEmail(ctx context.Context, e domain.EmailAddress) error {
	const query = `
		INSERT INTO email_addresses (id, user_id, domain_id, address, is_primary, is_verified, verification_token, created_at, updated_at)
		VALUES ($1, $2, $3, LOWER($4), $5, $6, $7, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query,
		e.ID, e.UserID, e.DomainID, e.Address, e.IsPrimary, e.IsVerified, e.VerificationToken,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *emailAddressesRepo) SetPrimary(ctx context.Context, userID, emailID string) error {
	// Demote first so the partial unique index never sees two primaries.
	const demote = `UPDATE email_addresses SET is_primary = FALSE, updated_at = NOW() WHERE user_id = $1 AND is_primary`
	if _, err := r.db.Exec(ctx, demote, userID); err != nil {
		return err
	}

	const promote = `
		UPDATE email_addresses SET is_primary = TRUE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`
	tag, err := r.db.Exec(ctx, promote, emailID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *emailAddressesRepo) MarkVerified(ctx context.Context, emailID string) error {
	const query = `
		UPDATE email_addresses
		SET is_verified = TRUE, verification_token = NULL, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, emailID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *emailAddressesRepo) DeleteEmail(ctx context.Context, emailID string) error {
	const query = `DELETE FROM email_addresses WHERE id = $1 AND NOT is_primary`
	tag, err := r.db.Exec(ctx, query, emailID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
