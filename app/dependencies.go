package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tokvera/tokvera-go/config"
	"github.com/tokvera/tokvera-go/handlers"
	"github.com/tokvera/tokvera-go/internal/observability"
	"github.com/tokvera/tokvera-go/middleware"
	"github.com/tokvera/tokvera-go/repositories"
	"github.com/tokvera/tokvera-go/repositories/postgres"
)

// Dependencies holds all collector dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB
	Logger  *zap.Logger
	Metrics *observability.PrometheusMetrics

	Store *postgres.Store

	// Repositories
	Events    repositories.EventRepository
	TxManager repositories.TransactionManager

	// HTTP
	AuthMiddleware *middleware.AuthMiddleware
	EventsHandler  *handlers.EventsHandler
	HealthHandler  *handlers.HealthHandler
}

// NewDependencies connects to PostgreSQL, prepares the schema and wires
// the collector.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	store, err := postgres.Open(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := NewDependenciesFromStore(ctx, cfg, store, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return deps, nil
}

// NewDependenciesFromStore wires the collector around an existing store.
func NewDependenciesFromStore(ctx context.Context, cfg *config.Config, store *postgres.Store, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewPrometheusMetrics(),
		Store:   store,
		DB:      store.DB,
	}

	if err := deps.DB.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initHTTP()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.Store.Repositories()

	d.Events = repos.Events
	d.TxManager = repos.Tx

	d.Logger.Info("repositories initialized")
}

// initHTTP builds the middleware and handlers served by the router
func (d *Dependencies) initHTTP() {
	if len(d.Config.Ingest.AcceptedKeys) == 0 {
		d.Logger.Warn("no accepted project keys configured, any non-empty key may post events")
	}

	validator := middleware.AcceptedKeys(d.Config.Ingest.IsAcceptedKey)
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Metrics, d.Logger)
	d.EventsHandler = handlers.NewEventsHandler(d.Events, d.TxManager, d.Metrics, d.Config.Ingest, d.Logger)

	d.HealthHandler = handlers.NewHealthHandler(d.Logger)
	if d.DB != nil {
		d.HealthHandler.Register("database", d.DB)
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.Store = nil
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
