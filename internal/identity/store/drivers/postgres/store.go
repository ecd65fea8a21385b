package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corvidmail/corvid/internal/identity/store"
)

// dbtx is the slice of pgx shared by *pgxpool.Pool and pgx.Tx, so every repo
// works identically inside and outside a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
	dsn  string
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	return &Store{
		pool: pool,
		dsn:  dsn,
	}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return newTx(ctx, tx), nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	// Ensure rollback is called if we panic or return early with error
	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	if err := fn(tx); err != nil {
		return err // rollback happens in defer
	}

	return tx.Commit()
}

func (s *Store) Organizations() store.Organizations   { return &organizationsRepo{db: s.pool} }
func (s *Store) Users() store.Users                   { return &usersRepo{db: s.pool} }
func (s *Store) EmailAddresses() store.EmailAddresses { return &emailAddressesRepo{db: s.pool} }
func (s *Store) Domains() store.Domains               { return &domainsRepo{db: s.pool} }
func (s *Store) Sessions() store.Sessions             { return &sessionsRepo{db: s.pool} }
func (s *Store) SSOConfigs() store.SSOConfigs         { return &ssoConfigsRepo{db: s.pool} }
func (s *Store) SSOIdentities() store.SSOIdentities   { return &ssoIdentitiesRepo{db: s.pool} }
func (s *Store) SSORequests() store.SSORequests       { return &ssoRequestsRepo{db: s.pool} }
func (s *Store) MFA() store.MFA                       { return &mfaRepo{db: s.pool} }
func (s *Store) PasswordResets() store.PasswordResets { return &passwordResetsRepo{db: s.pool} }
func (s *Store) Audit() store.Audit                   { return &auditRepo{db: s.pool} }
func (s *Store) SigningKeys() store.SigningKeys       { return &signingKeysRepo{db: s.pool} }

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// isUniqueViolation reports whether the error is a postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
