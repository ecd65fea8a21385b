package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/corvidmail/corvid/internal/identity/http"
	"github.com/corvidmail/corvid/internal/identity/mailer"
	"github.com/corvidmail/corvid/internal/identity/oidc"
	"github.com/corvidmail/corvid/internal/identity/saml"
	"github.com/corvidmail/corvid/internal/identity/service"
	"github.com/corvidmail/corvid/internal/identity/store"
	"github.com/corvidmail/corvid/internal/identity/store/drivers/postgres"
	"github.com/corvidmail/corvid/internal/identity/token"
	"github.com/corvidmail/corvid/pkg/cryptox"
	"github.com/corvidmail/corvid/pkg/jwtx"
	"github.com/corvidmail/corvid/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the identity service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         store.Store
	keyManager *jwtx.KeyManager
	mailSender mailer.Sender

	// Services
	tokenService        *token.Service
	sessionService      *service.SessionService
	authService         *service.AuthService
	mfaService          *service.MFAService
	passwordService     *service.PasswordService
	emailService        *service.EmailService
	userService         *service.UserService
	domainService       *service.DomainService
	ssoService          *service.SSOService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "identity-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	// Initialize database first (required for persistent keys)
	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	// Initialize signing keys (after database for persistent mode)
	keyManager, err := InitSigningKeys(context.Background(), app.cfg, app.db, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.keyManager = keyManager

	app.initMailer()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("identity service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("identity service stopped")
	return nil
}

// initDatabase connects to PostgreSQL and applies migrations.
func (app *Application) initDatabase() error {
	if app.cfg.DatabaseURL == "" {
		return fmt.Errorf("IDENTITY_DATABASE_URL is required")
	}

	db, err := postgres.NewStore(context.Background(), app.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initMailer picks the SMTP sender when a relay is configured, otherwise
// mail is discarded.
func (app *Application) initMailer() {
	if app.cfg.SMTPHost == "" {
		app.logger.Warn("no SMTP relay configured, transactional mail will be discarded")
		app.mailSender = mailer.Nop{}
		return
	}

	sender := mailer.NewSMTPSender(
		app.cfg.SMTPHost,
		app.cfg.SMTPPort,
		app.cfg.SMTPFrom,
		app.cfg.SMTPUsername,
		app.cfg.SMTPPassword,
	)
	sender.TLSMode = app.cfg.SMTPTLSMode
	app.mailSender = sender

	app.logger.Info("SMTP relay configured", "host", app.cfg.SMTPHost, "port", app.cfg.SMTPPort)
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.tokenService = token.NewService(app.keyManager, app.cfg.Issuer, nil)

	app.sessionService = &service.SessionService{
		Store:  app.db,
		Tokens: app.tokenService,
	}
	app.authService = &service.AuthService{
		Store:    app.db,
		Sessions: app.sessionService,
		Mailer:   app.mailSender,
		BaseURL:  app.cfg.BaseURL,
	}
	app.mfaService = &service.MFAService{
		Store:  app.db,
		Issuer: app.cfg.MFAIssuer,
	}
	app.passwordService = &service.PasswordService{
		Store:    app.db,
		Sessions: app.sessionService,
		Mailer:   app.mailSender,
		BaseURL:  app.cfg.BaseURL,
	}
	app.emailService = &service.EmailService{
		Store:   app.db,
		Mailer:  app.mailSender,
		BaseURL: app.cfg.BaseURL,
	}
	app.userService = &service.UserService{Store: app.db}
	app.domainService = &service.DomainService{
		Store:       app.db,
		Resolver:    net.DefaultResolver,
		CNAMETarget: app.cfg.VerifyCNAMETarget,
	}
	app.ssoService = &service.SSOService{
		Store:    app.db,
		SAML:     saml.NewProcessor(app.cfg.Issuer, app.cfg.BaseURL+"/v1/sso/saml/acs"),
		OIDC:     oidc.NewProcessor(app.cfg.BaseURL + "/v1/sso/oidc/callback"),
		Sessions: app.sessionService,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager,
		app.keyManager.Verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.AuthService = app.authService
	router.SessionService = app.sessionService
	router.MFAService = app.mfaService
	router.PasswordService = app.passwordService
	router.EmailService = app.emailService
	router.UserService = app.userService
	router.DomainService = app.domainService
	router.SSOService = app.ssoService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

