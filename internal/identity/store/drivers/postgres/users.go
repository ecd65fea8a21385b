package postgres

import (
	"context"
	"time"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/store"
)

type usersRepo struct{ db dbtx }

const userColumns = `
	id, org_id, name, password_hash, role, status,
	mfa_enabled, mfa_secret, failed_login_count, locked_until,
	password_changed_at, last_login_at, created_at, updated_at, deleted_at
`

func (r *usersRepo) scanUser(row interface{ Scan(dest ...any) error }) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.OrgID, &u.Name, &u.PasswordHash, &u.Role, &u.Status,
		&u.MFAEnabled, &u.MFASecret, &u.FailedLoginCount, &u.LockedUntil,
		&u.PasswordChangedAt, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE deleted_at IS NULL
		  AND id = (SELECT user_id FROM email_addresses WHERE LOWER(address) = LOWER($1))
	`
	return r.scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *usersRepo) CreateUserBundle(ctx context.Context, u domain.User, e domain.EmailAddress, m domain.Mailbox) error {
	const insertUser = `
		INSERT INTO users (id, org_id, name, password_hash, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	if _, err := r.db.Exec(ctx, insertUser, u.ID, u.OrgID, u.Name, u.PasswordHash, u.Role, u.Status); err != nil {
		return err
	}

	const insertEmail = `
		INSERT INTO email_addresses (id, user_id, domain_id, address, is_primary, is_verified, verification_token, created_at, updated_at)
		VALUES ($1, $2, $3, LOWER($4), $5, $6, $7, NOW(), NOW())
	`
	if _, err := r.db.Exec(ctx, insertEmail,
		e.ID, e.UserID, e.DomainID, e.Address, e.IsPrimary, e.IsVerified, e.VerificationToken,
	); err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}

	const insertMailbox = `
		INSERT INTO mailboxes (id, user_id, quota_bytes, used_bytes, created_at, updated_at)
		VALUES ($1, $2, $3, 0, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, insertMailbox, m.ID, m.UserID, m.QuotaBytes)
	return err
}

func (r *usersRepo) UpdateLoginFailure(ctx context.Context, userID string, maxAttempts int, lockUntil time.Time) (int, error) {
	const query = `
		UPDATE users
		SET failed_login_count = failed_login_count + 1,
		    locked_until = CASE WHEN failed_login_count + 1 >= $2 THEN $3 ELSE locked_until END,
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING failed_login_count
	`
	var count int
	if err := r.db.QueryRow(ctx, query, userID, maxAttempts, lockUntil).Scan(&count); err != nil {
		return 0, mapNotFound(err)
	}
	return count, nil
}

func (r *usersRepo) UpdateLoginSuccess(ctx context.Context, userID string, at time.Time) error {
	const query = `
		UPDATE users
		SET failed_login_count = 0, locked_until = NULL, last_login_at = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, userID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string, historyLimit int) error {
	// Move the current hash into history before replacing it.
	const archive = `
		INSERT INTO password_history (user_id, password_hash)
		SELECT id, password_hash FROM users
		WHERE id = $1 AND password_hash IS NOT NULL AND deleted_at IS NULL
	`
	if _, err := r.db.Exec(ctx, archive, userID); err != nil {
		return err
	}

	const update = `
		UPDATE users
		SET password_hash = $2, password_changed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, update, userID, newHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	// Trim history beyond the policy's bound.
	const trim = `
		DELETE FROM password_history
		WHERE user_id = $1 AND id NOT IN (
			SELECT id FROM password_history
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		)
	`
	_, err = r.db.Exec(ctx, trim, userID, historyLimit)
	return err
}

func (r *usersRepo) GetPasswordHistory(ctx context.Context, userID string, limit int) ([]string, error) {
	const query = `
		SELECT password_hash FROM password_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

func (r *usersRepo) UpdateUserStatus(ctx context.Context, userID, status string) error {
	const query = `UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, query, userID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *usersRepo) UpdateMFASecret(ctx context.Context, userID, secret string) error {
	const query = `UPDATE users SET mfa_secret = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, query, userID, secret)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *usersRepo) EnableMFA(ctx context.Context, userID string) error {
	const query = `
		UPDATE users SET mfa_enabled = TRUE, updated_at = NOW()
		WHERE id = $1 AND mfa_secret IS NOT NULL AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *usersRepo) DisableMFA(ctx context.Context, userID string) error {
	const query = `
		UPDATE users SET mfa_enabled = FALSE, mfa_secret = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return err
	}

	const clearCodes = `DELETE FROM recovery_codes WHERE user_id = $1`
	_, err := r.db.Exec(ctx, clearCodes, userID)
	return err
}

func (r *usersRepo) SoftDeleteUser(ctx context.Context, userID string) error {
	const query = `
		UPDATE users
		SET deleted_at = NOW(), status = 'deleted', password_hash = NULL,
		    mfa_enabled = FALSE, mfa_secret = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
