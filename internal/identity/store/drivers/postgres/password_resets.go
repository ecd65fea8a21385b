package postgres

import (
	"context"

	"github.com/corvidmail/corvid/internal/identity/domain"
)

type passwordResetsRepo struct{ db dbtx }

func (r *passwordResetsRepo) CreatePasswordReset(ctx context.Context, t domain.PasswordResetToken) error {
	const query = `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	_, err := r.db.Exec(ctx, query, t.ID, t.UserID, t.TokenHash, t.ExpiresAt)
	return err
}

func (r *passwordResetsRepo) ConsumePasswordReset(ctx context.Context, tokenHash string) (domain.PasswordResetToken, error) {
	const query = `
		DELETE FROM password_reset_tokens
		WHERE token_hash = $1 AND expires_at > NOW()
		RETURNING id, user_id, token_hash, expires_at, created_at
	`
	var t domain.PasswordResetToken
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(
		&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt,
	)
	if err != nil {
		return domain.PasswordResetToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *passwordResetsRepo) DeleteExpiredPasswordResets(ctx context.Context) error {
	const query = `DELETE FROM password_reset_tokens WHERE expires_at < NOW()`
	_, err := r.db.Exec(ctx, query)
	return err
}
