package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/store"
)

type ssoConfigsRepo struct{ db dbtx }

func (r *ssoConfigsRepo) GetSSOConfigByDomain(ctx context.Context, domainID string) (domain.SSOConfig, error) {
	const query = `
		SELECT id, domain_id, provider, is_enabled, enforce, auto_provision, default_role,
		       attribute_map, saml_config, oidc_config, created_at, updated_at
		FROM sso_configs WHERE domain_id = $1
	`
	var (
		c                         domain.SSOConfig
		attrMap, samlCfg, oidcCfg []byte
	)
	err := r.db.QueryRow(ctx, query, domainID).Scan(
		&c.ID, &c.DomainID, &c.Provider, &c.IsEnabled, &c.Enforce, &c.AutoProvision, &c.DefaultRole,
		&attrMap, &samlCfg, &oidcCfg, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.SSOConfig{}, mapNotFound(err)
	}

	if len(attrMap) > 0 {
		if err := json.Unmarshal(attrMap, &c.AttributeMap); err != nil {
			return domain.SSOConfig{}, err
		}
	}
	if len(samlCfg) > 0 {
		c.SAML = &domain.SAMLConfig{}
		if err := json.Unmarshal(samlCfg, c.SAML); err != nil {
			return domain.SSOConfig{}, err
		}
	}
	if len(oidcCfg) > 0 {
		c.OIDC = &domain.OIDCConfig{}
		if err := json.Unmarshal(oidcCfg, c.OIDC); err != nil {
			return domain.SSOConfig{}, err
		}
	}
	return c, nil
}

func (r *ssoConfigsRepo) UpsertSSOConfig(ctx context.Context, c domain.SSOConfig) error {
	attrMap, err := json.Marshal(c.AttributeMap)
	if err != nil {
		return err
	}

	var samlCfg, oidcCfg []byte
	if c.SAML != nil {
		if samlCfg, err = json.Marshal(c.SAML); err != nil {
			return err
		}
	}
	if c.OIDC != nil {
		if oidcCfg, err = json.Marshal(c.OIDC); err != nil {
			return err
		}
	}

	const query = `
		INSERT INTO sso_configs (id, domain_id, provider, is_enabled, enforce, auto_provision, default_role,
		                         attribute_map, saml_config, oidc_config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (domain_id) DO UPDATE SET
			provider = EXCLUDED.provider,
			is_enabled = EXCLUDED.is_enabled,
			enforce = EXCLUDED.enforce,
			auto_provision = EXCLUDED.auto_provision,
			default_role = EXCLUDED.default_role,
			attribute_map = EXCLUDED.attribute_map,
			saml_config = EXCLUDED.saml_config,
			oidc_config = EXCLUDED.oidc_config,
			updated_at = NOW()
	`
	_, err = r.db.Exec(ctx, query,
		c.ID, c.DomainID, c.Provider, c.IsEnabled, c.Enforce, c.AutoProvision, c.DefaultRole,
		attrMap, samlCfg, oidcCfg,
	)
	return err
}

func (r *ssoConfigsRepo) DisableSSOConfig(ctx context.Context, domainID string) error {
	const query = `UPDATE sso_configs SET is_enabled = FALSE, updated_at = NOW() WHERE domain_id = $1`
	tag, err := r.db.Exec(ctx, query, domainID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

type ssoIdentitiesRepo struct{ db dbtx }

func (r *ssoIdentitiesRepo) GetSSOIdentity(ctx context.Context, domainID, provider, providerUserID string) (domain.SSOIdentity, error) {
	const query = `
		SELECT id, user_id, domain_id, provider, provider_user_id, email, last_login_at, created_at
		FROM sso_identities
		WHERE domain_id = $1 AND provider = $2 AND provider_user_id = $3
	`
	var i domain.SSOIdentity
	err := r.db.QueryRow(ctx, query, domainID, provider, providerUserID).Scan(
		&i.ID, &i.UserID, &i.DomainID, &i.Provider, &i.ProviderUserID, &i.Email, &i.LastLoginAt, &i.CreatedAt,
	)
	if err != nil {
		return domain.SSOIdentity{}, mapNotFound(err)
	}
	return i, nil
}

func (r *ssoIdentitiesRepo) CreateSSOIdentity(ctx context.Context, i domain.SSOIdentity) error {
	const query = `
		INSERT INTO sso_identities (id, user_id, domain_id, provider, provider_user_id, email, created_at)
		VALUES ($1, $2, $3, $4, $5, LOWER($6), NOW())
	`
	_, err := r.db.Exec(ctx, query, i.ID, i.UserID, i.DomainID, i.Provider, i.ProviderUserID, i.Email)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *ssoIdentitiesRepo) TouchSSOIdentity(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE sso_identities SET last_login_at = $2 WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id, at)
	return err
}

type ssoRequestsRepo struct{ db dbtx }

func (r *ssoRequestsRepo) CreateSSORequest(ctx context.Context, req domain.SSORequest) error {
	const query = `
		INSERT INTO sso_requests (id, domain_id, relay_state, request_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err := r.db.Exec(ctx, query, req.ID, req.DomainID, req.RelayState, req.RequestID, req.ExpiresAt)
	return err
}

func (r *ssoRequestsRepo) ConsumeSSORequest(ctx context.Context, relayState string) (domain.SSORequest, error) {
	const query = `
		DELETE FROM sso_requests
		WHERE relay_state = $1 AND expires_at > NOW()
		RETURNING id, domain_id, relay_state, request_id, expires_at, created_at
	`
	var req domain.SSORequest
	err := r.db.QueryRow(ctx, query, relayState).Scan(
		&req.ID, &req.DomainID, &req.RelayState, &req.RequestID, &req.ExpiresAt, &req.CreatedAt,
	)
	if err != nil {
		return domain.SSORequest{}, mapNotFound(err)
	}
	return req, nil
}

func (r *ssoRequestsRepo) DeleteExpiredSSORequests(ctx context.Context) error {
	const query = `DELETE FROM sso_requests WHERE expires_at < NOW()`
	_, err := r.db.Exec(ctx, query)
	return err
}
