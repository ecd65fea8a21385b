package postgres

import (
	"context"
	"time"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/store"
)

type sessionsRepo struct{ db dbtx }

const sessionColumns = `
	id, user_id, refresh_token_hash, ip_address, user_agent,
	expires_at, last_activity, revoked_at, created_at
`

func (r *sessionsRepo) scanSession(row interface{ Scan(dest ...any) error }) (domain.Session, error) {
	var s domain.Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.RefreshTokenHash, &s.IPAddress, &s.UserAgent,
		&s.ExpiresAt, &s.LastActivity, &s.RevokedAt, &s.CreatedAt,
	)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id string) (domain.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return r.scanSession(r.db.QueryRow(ctx, query, id))
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	const query = `
		INSERT INTO sessions (id, user_id, refresh_token_hash, ip_address, user_agent, expires_at, last_activity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	_, err := r.db.Exec(ctx, query,
		s.ID, s.UserID, s.RefreshTokenHash, s.IPAddress, s.UserAgent, s.ExpiresAt, s.LastActivity,
	)
	return err
}

// RotateSessionToken is the rotation compare-and-swap. The WHERE clause only
// matches when the stored fingerprint is still oldHash, so concurrent
// rotations of the same token cannot both succeed.
func (r *sessionsRepo) RotateSessionToken(ctx context.Context, sessionID, oldHash, newHash string, expiresAt, lastActivity time.Time) error {
	const swap = `
		UPDATE sessions
		SET refresh_token_hash = $3, expires_at = $4, last_activity = $5
		WHERE id = $1 AND refresh_token_hash = $2 AND revoked_at IS NULL AND expires_at > NOW()
	`
	tag, err := r.db.Exec(ctx, swap, sessionID, oldHash, newHash, expiresAt, lastActivity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Distinguish reuse on a live session from a dead or missing one.
	const probe = `
		SELECT revoked_at IS NULL AND expires_at > NOW() FROM sessions WHERE id = $1
	`
	var live bool
	if err := r.db.QueryRow(ctx, probe, sessionID).Scan(&live); err != nil {
		return mapNotFound(err)
	}
	if live {
		return store.ErrStaleToken
	}
	return store.ErrSessionExpired
}

func (r *sessionsRepo) RevokeSession(ctx context.Context, sessionID string) error {
	const query = `UPDATE sessions SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`
	tag, err := r.db.Exec(ctx, query, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *sessionsRepo) RevokeAllUserSessions(ctx context.Context, userID string) (int, error) {
	const query = `UPDATE sessions SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`
	tag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *sessionsRepo) ListUserSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > NOW()
		ORDER BY last_activity DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context) error {
	const query = `DELETE FROM sessions WHERE expires_at < NOW() OR revoked_at < NOW() - INTERVAL '30 days'`
	_, err := r.db.Exec(ctx, query)
	return err
}
