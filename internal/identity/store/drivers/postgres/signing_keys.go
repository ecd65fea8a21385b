package postgres

import (
	"context"
	"time"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/store"
)

type signingKeysRepo struct{ db dbtx }

const signingKeyColumns = `
	id, kid, algorithm, private_key_encrypted, created_at, retired_at, expires_at
`

func (r *signingKeysRepo) scanKey(row interface{ Scan(dest ...any) error }) (domain.SigningKey, error) {
	var k domain.SigningKey
	err := row.Scan(
		&k.ID, &k.Kid, &k.Algorithm, &k.PrivateKeyEncrypted, &k.CreatedAt, &k.RetiredAt, &k.ExpiresAt,
	)
	if err != nil {
		return domain.SigningKey{}, mapNotFound(err)
	}
	return k, nil
}

func (r *signingKeysRepo) list(ctx context.Context, query string, args ...any) ([]domain.SigningKey, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []domain.SigningKey
	for rows.Next() {
		k, err := r.scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *signingKeysRepo) ListAllSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	const query = `SELECT ` + signingKeyColumns + ` FROM signing_keys ORDER BY created_at ASC`
	return r.list(ctx, query)
}

func (r *signingKeysRepo) ListActiveSigningKeys(ctx context.Context, now time.Time) ([]domain.SigningKey, error) {
	const query = `
		SELECT ` + signingKeyColumns + `
		FROM signing_keys
		WHERE retired_at IS NULL AND expires_at > $1
		ORDER BY created_at ASC
	`
	return r.list(ctx, query, now)
}

func (r *signingKeysRepo) CreateSigningKey(ctx context.Context, k domain.SigningKey) error {
	const query = `
		INSERT INTO signing_keys (id, kid, algorithm, private_key_encrypted, created_at, retired_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		k.ID, k.Kid, k.Algorithm, k.PrivateKeyEncrypted, k.CreatedAt, k.RetiredAt, k.ExpiresAt,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *signingKeysRepo) RetireSigningKey(ctx context.Context, kid string, at time.Time) error {
	const query = `UPDATE signing_keys SET retired_at = $2 WHERE kid = $1 AND retired_at IS NULL`
	tag, err := r.db.Exec(ctx, query, kid, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *signingKeysRepo) DeleteExpiredSigningKeys(ctx context.Context, now time.Time) error {
	const query = `DELETE FROM signing_keys WHERE expires_at < $1`
	_, err := r.db.Exec(ctx, query, now)
	return err
}
