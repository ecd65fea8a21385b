package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/corvidmail/corvid/internal/identity/store"
)

type txStore struct {
	ctx context.Context
	tx  pgx.Tx
}

func newTx(ctx context.Context, tx pgx.Tx) *txStore {
	return &txStore{ctx: ctx, tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit(t.ctx) }
func (t *txStore) Rollback() error { return t.tx.Rollback(t.ctx) }

func (t *txStore) Close() error { return nil } // nothing to close; outer pool stays open

// Ping is a no-op for transactions. The connection is already established
// when the transaction is created.
func (t *txStore) Ping(ctx context.Context) error {
	return nil
}

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, pgx.ErrTxClosed
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return pgx.ErrTxClosed
}

func (t *txStore) Organizations() store.Organizations   { return &organizationsRepo{db: t.tx} }
func (t *txStore) Users() store.Users                   { return &usersRepo{db: t.tx} }
func (t *txStore) EmailAddresses() store.EmailAddresses { return &emailAddressesRepo{db: t.tx} }
func (t *txStore) Domains() store.Domains               { return &domainsRepo{db: t.tx} }
func (t *txStore) Sessions() store.Sessions             { return &sessionsRepo{db: t.tx} }
func (t *txStore) SSOConfigs() store.SSOConfigs         { return &ssoConfigsRepo{db: t.tx} }
func (t *txStore) SSOIdentities() store.SSOIdentities   { return &ssoIdentitiesRepo{db: t.tx} }
func (t *txStore) SSORequests() store.SSORequests       { return &ssoRequestsRepo{db: t.tx} }
func (t *txStore) MFA() store.MFA                       { return &mfaRepo{db: t.tx} }
func (t *txStore) PasswordResets() store.PasswordResets { return &passwordResetsRepo{db: t.tx} }
func (t *txStore) Audit() store.Audit                   { return &auditRepo{db: t.tx} }
func (t *txStore) SigningKeys() store.SigningKeys       { return &signingKeysRepo{db: t.tx} }

func (t *txStore) ApplyMigrations() error { return nil } // no-op; migrations are applied before any tx starts
