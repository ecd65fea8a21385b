package postgres

import (
	"context"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/store"
	"github.com/corvidmail/corvid/pkg/idx"
)

type mfaRepo struct{ db dbtx }

func (r *mfaRepo) CreatePendingToken(ctx context.Context, t domain.MFAPendingToken) error {
	const query = `
		INSERT INTO mfa_pending_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	_, err := r.db.Exec(ctx, query, t.ID, t.UserID, t.TokenHash, t.ExpiresAt)
	return err
}

func (r *mfaRepo) ConsumePendingToken(ctx context.Context, tokenHash string) (domain.MFAPendingToken, error) {
	const query = `
		DELETE FROM mfa_pending_tokens
		WHERE token_hash = $1 AND expires_at > NOW()
		RETURNING id, user_id, token_hash, expires_at, created_at
	`
	var t domain.MFAPendingToken
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(
		&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt,
	)
	if err != nil {
		return domain.MFAPendingToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *mfaRepo) ReplaceRecoveryCodes(ctx context.Context, userID string, codeHashes []string) error {
	const clear = `DELETE FROM recovery_codes WHERE user_id = $1`
	if _, err := r.db.Exec(ctx, clear, userID); err != nil {
		return err
	}

	const insert = `INSERT INTO recovery_codes (id, user_id, code_hash, created_at) VALUES ($1, $2, $3, NOW())`
	for _, hash := range codeHashes {
		if _, err := r.db.Exec(ctx, insert, idx.New().String(), userID, hash); err != nil {
			return err
		}
	}
	return nil
}

func (r *mfaRepo) ConsumeRecoveryCode(ctx context.Context, userID, codeHash string) error {
	const query = `DELETE FROM recovery_codes WHERE user_id = $1 AND code_hash = $2`
	tag, err := r.db.Exec(ctx, query, userID, codeHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *mfaRepo) DeleteExpiredPendingTokens(ctx context.Context) error {
	const query = `DELETE FROM mfa_pending_tokens WHERE expires_at < NOW()`
	_, err := r.db.Exec(ctx, query)
	return err
}
