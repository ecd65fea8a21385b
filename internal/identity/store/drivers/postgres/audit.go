package postgres

import (
	"context"
	"encoding/json"

	"github.com/corvidmail/corvid/internal/identity/domain"
)

type auditRepo struct{ db dbtx }

func (r *auditRepo) CreateLoginAttempt(ctx context.Context, a domain.LoginAttempt) error {
	const query = `
		INSERT INTO login_attempts (id, org_id, user_id, email, method, success, reason, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, LOWER($4), $5, $6, $7, $8, $9, NOW())
	`
	_, err := r.db.Exec(ctx, query,
		a.ID, a.OrgID, a.UserID, a.Email, a.Method, a.Success, a.Reason, a.IPAddress, a.UserAgent,
	)
	return err
}

func (r *auditRepo) CreateAuditLog(ctx context.Context, a domain.AuditLog) error {
	detail, err := json.Marshal(a.Detail)
	if err != nil {
		return err
	}
	if a.Detail == nil {
		detail = []byte(`{}`)
	}

	const query = `
		INSERT INTO audit_logs (id, org_id, actor_id, action, target_id, detail, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	_, err = r.db.Exec(ctx, query,
		a.ID, a.OrgID, a.ActorID, a.Action, a.TargetID, detail, a.IPAddress,
	)
	return err
}

func (r *auditRepo) ListAuditLogs(ctx context.Context, orgID string, limit int) ([]domain.AuditLog, error) {
	const query = `
		SELECT id, org_id, actor_id, action, target_id, detail, ip_address, created_at
		FROM audit_logs
		WHERE org_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.AuditLog
	for rows.Next() {
		var (
			a      domain.AuditLog
			detail []byte
		)
		if err := rows.Scan(&a.ID, &a.OrgID, &a.ActorID, &a.Action, &a.TargetID, &detail, &a.IPAddress, &a.CreatedAt); err != nil {
			return nil, err
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &a.Detail); err != nil {
				return nil, err
			}
		}
		logs = append(logs, a)
	}
	return logs, rows.Err()
}
