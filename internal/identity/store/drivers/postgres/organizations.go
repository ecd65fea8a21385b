package postgres

import (
	"context"
	"encoding/json"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/store"
)

type organizationsRepo struct{ db dbtx }

func (r *organizationsRepo) GetOrganizationByID(ctx context.Context, id string) (domain.Organization, error) {
	const query = `
		SELECT id, name, status, settings, created_at, updated_at
		FROM organizations WHERE id = $1
	`
	var (
		o        domain.Organization
		settings []byte
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.Name, &o.Status, &settings, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return domain.Organization{}, mapNotFound(err)
	}

	o.Settings = domain.DefaultOrgSettings()
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &o.Settings); err != nil {
			return domain.Organization{}, err
		}
	}
	return o, nil
}

func (r *organizationsRepo) CreateOrganization(ctx context.Context, o domain.Organization) error {
	settings, err := json.Marshal(o.Settings)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO organizations (id, name, status, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`
	_, err = r.db.Exec(ctx, query, o.ID, o.Name, o.Status, settings)
	return err
}

func (r *organizationsRepo) UpdateOrganizationSettings(ctx context.Context, id string, s domain.OrgSettings) error {
	settings, err := json.Marshal(s)
	if err != nil {
		return err
	}

	const query = `UPDATE organizations SET settings = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, settings)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *organizationsRepo) UpdateOrganizationStatus(ctx context.Context, id, status string) error {
	const query = `UPDATE organizations SET status = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
