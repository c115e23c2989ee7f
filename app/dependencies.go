package app

import (
	"context"
	"fmt"

	"github.com/docsmith/backend/authz"
	"github.com/docsmith/backend/config"
	"github.com/docsmith/backend/keycloak"
	"github.com/docsmith/backend/middleware"
	"github.com/docsmith/backend/repositories"
	"github.com/docsmith/backend/repositories/postgres"
	"github.com/docsmith/backend/services/identity"
	"github.com/docsmith/backend/services/pdf"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repositories
	Users repositories.UserRepository

	// Services
	Identity *identity.Service
	PDF      *pdf.Service

	// Middleware
	AuthMiddleware  *middleware.AuthMiddleware
	AuthzMiddleware *middleware.AuthzMiddleware
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initServices(cfg)
	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection and applies the schema
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.NewDB(cfg.Database, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.DB = db
	d.Users = postgres.NewUserRepository(db, d.Logger)

	return nil
}

func (d *Dependencies) initServices(cfg *config.Config) {
	d.Identity = identity.NewService(d.Users, d.Logger)
	d.PDF = pdf.NewService(cfg.Gotenberg.URL, cfg.Gotenberg.Timeout, d.Logger)
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	var validator middleware.TokenValidator

	if cfg.Keycloak.Issuer == "" {
		d.Logger.Warn("keycloak not configured, all bearer tokens will be rejected")
		validator = &rejectAllValidator{}
	} else {
		validator = keycloak.NewValidator(keycloak.Config{
			Issuer:      cfg.Keycloak.Issuer,
			ClientID:    cfg.Keycloak.ClientID,
			CacheTTL:    cfg.Keycloak.CacheTTL,
			HTTPTimeout: cfg.Keycloak.HTTPTimeout,
		})
	}

	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Identity, d.Logger)
	d.AuthzMiddleware = middleware.NewAuthzMiddleware(authz.Default(), d.Logger)
}

// rejectAllValidator rejects all tokens (used when Keycloak is not configured)
type rejectAllValidator struct{}

func (*rejectAllValidator) ValidateToken(context.Context, string) (*keycloak.Claims, error) {
	return nil, fmt.Errorf("authentication not configured")
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
