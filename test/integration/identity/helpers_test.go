//go:build integration

package identity_test

import (
	"context"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/service"
	"github.com/corvidmail/corvid/internal/identity/store"
	"github.com/corvidmail/corvid/internal/identity/store/drivers/postgres"
	"github.com/corvidmail/corvid/internal/identity/token"
	"github.com/corvidmail/corvid/pkg/cryptox"
	"github.com/corvidmail/corvid/pkg/idx"
	"github.com/corvidmail/corvid/pkg/jwtx"
)

/*
 * Integration tests run the service layer against a real PostgreSQL
 * container. They cover the flows whose guarantees depend on the
 * database: rotation compare-and-swap, reuse revocation, lockout
 * counters and the primary-address invariant.
 */

const (
	testOrgName    = "Acme Corp"
	testDomainName = "corvid.test"
	testPassword   = "Str0ngPassword!"
)

// captureSender records outgoing mail so tests can read tokens back out
// of the embedded links.
type captureSender struct {
	mu   sync.Mutex
	last string
}

func (c *captureSender) Send(_ context.Context, _, _, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = body
	return nil
}

var tokenPattern = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)

// lastToken extracts the token query parameter from the most recent mail.
func (c *captureSender) lastToken(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	m := tokenPattern.FindStringSubmatch(c.last)
	require.NotNil(t, m, "no token link in the captured mail")
	return m[1]
}

// testEnv wires the full service stack against one containerized database.
type testEnv struct {
	store store.Store
	Mail  *captureSender

	Auth      *service.AuthService
	Sessions  *service.SessionService
	MFA       *service.MFAService
	Passwords *service.PasswordService
	Emails    *service.EmailService

	OrgID    string
	DomainID string
}

// startDatabase runs a PostgreSQL container and returns a migrated store.
func startDatabase(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()

	if _, err := testcontainers.ProviderDocker.GetProvider(); err != nil {
		t.Skip("docker not available, skipping integration tests")
	}

	pgc, err := pgcontainer.Run(ctx, "postgres:16-alpine",
		pgcontainer.WithDatabase("corvid_test"),
		pgcontainer.WithUsername("corvid"),
		pgcontainer.WithPassword("corvid_test_password"),
		pgcontainer.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		terminateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := pgc.Terminate(terminateCtx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := pgc.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := postgres.NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.ApplyMigrations())
	return db
}

// newEnv builds the service stack and seeds one organization with a
// verified domain. Email verification is disabled so registration logs
// users straight in; lockout is tightened to three attempts to keep the
// lockout test short.
func newEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	db := startDatabase(t)

	keys, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:  "corvid-identity-test",
		NumKeys: 1,
	})
	require.NoError(t, err)

	tokens := token.NewService(keys, "corvid-identity-test", nil)
	sessions := &service.SessionService{Store: db, Tokens: tokens}
	mail := &captureSender{}

	env := &testEnv{
		store:    db,
		Mail:     mail,
		Sessions: sessions,
		Auth: &service.AuthService{
			Store:    db,
			Sessions: sessions,
			Mailer:   mail,
			BaseURL:  "http://localhost:8080",
		},
		MFA: &service.MFAService{
			Store:  db,
			Issuer: "corvid-identity-test",
		},
		Passwords: &service.PasswordService{
			Store:    db,
			Sessions: sessions,
			Mailer:   mail,
			BaseURL:  "http://localhost:8080",
		},
		Emails: &service.EmailService{
			Store:   db,
			Mailer:  mail,
			BaseURL: "http://localhost:8080",
		},
	}

	settings := domain.DefaultOrgSettings()
	settings.RequireEmailVerification = false
	settings.MaxLoginAttempts = 3
	settings.LockoutDuration = time.Minute

	env.OrgID = idx.New().String()
	require.NoError(t, db.Organizations().CreateOrganization(ctx, domain.Organization{
		ID:       env.OrgID,
		Name:     testOrgName,
		Status:   domain.OrgStatusActive,
		Settings: settings,
	}))

	now := time.Now().UTC()
	env.DomainID = idx.New().String()
	require.NoError(t, db.Domains().CreateDomain(ctx, domain.Domain{
		ID:                 env.DomainID,
		OrgID:              env.OrgID,
		Name:               testDomainName,
		Status:             domain.DomainStatusActive,
		VerificationStatus: domain.VerificationVerified,
		VerificationToken:  cryptox.MustGenerateToken(cryptox.TokenSize128),
		VerificationMethod: domain.VerifyMethodTXT,
		VerifiedAt:         &now,
	}))

	return env
}

// register creates a user on the seeded domain and returns the login result.
func (env *testEnv) register(t *testing.T, email string) service.LoginResult {
	t.Helper()

	res, err := env.Auth.Register(context.Background(), service.RegisterInput{
		Email:     email,
		Password:  testPassword,
		Name:      "Test User",
		IPAddress: "203.0.113.10",
		UserAgent: "integration-test",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Tokens.AccessToken)
	require.NotEmpty(t, res.Tokens.RefreshToken)
	return res
}

func (env *testEnv) login(ctx context.Context, email, password string) (service.LoginResult, error) {
	return env.Auth.Login(ctx, service.LoginInput{
		Email:     email,
		Password:  password,
		IPAddress: "203.0.113.10",
		UserAgent: "integration-test",
	})
}

