package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"

	"contact-sync/backend/internal/config"
	"contact-sync/backend/internal/flow"
	"contact-sync/backend/internal/integration"
	"contact-sync/backend/internal/logging"
	"contact-sync/backend/internal/metrics"
	"contact-sync/backend/internal/repository"
	"contact-sync/backend/internal/services"
	"contact-sync/backend/pkg/models"
)

// app holds the process-wide dependencies shared by the subcommands.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	pool    *pgxpool.Pool
	store   *repository.PostgresStore
	metrics *metrics.Metrics
}

// newApp loads configuration, connects to the database and applies the
// schema.
func newApp(ctx context.Context, envFile string) (*app, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return nil, fmt.Errorf("configuration loading failed: %w", err)
	}
	logger := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logger.Info("Configuration loaded",
		"environment", cfg.Environment,
		"integration_base_url", cfg.Integration.BaseURL,
		"auth_issuer", cfg.Auth.Issuer,
		"config_file", viper.ConfigFileUsed(),
	)

	pool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("database initialization failed: %w", err)
	}
	if err := repository.Migrate(pool, logger); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("Database connected")

	return &app{
		cfg:     cfg,
		logger:  logger,
		pool:    pool,
		store:   repository.NewPostgresStore(pool),
		metrics: metrics.New(),
	}, nil
}

func (a *app) Close() {
	a.pool.Close()
	_ = a.logger.Sync()
}

// appServices is the service layer wired against the integration platform.
type appServices struct {
	client    *integration.Client
	records   *services.RecordService
	contacts  *services.Importer[models.Contact]
	employees *services.Importer[models.Employee]
	flows     *services.FlowService
	webhooks  *services.WebhookService
}

func (a *app) services() *appServices {
	cfg := a.cfg
	signer := integration.NewTokenSigner(cfg.Integration.WorkspaceKey, cfg.Integration.WorkspaceSecret, cfg.Integration.TokenTTL)
	client := integration.NewClient(cfg.Integration.BaseURL, cfg.Integration.AppEventWebhookURL, signer, cfg.Integration.Timeout)

	importOpts := services.ImportOptions{
		PageDelay:   cfg.Importer.PageDelay,
		Concurrency: cfg.Importer.UpsertConcurrency,
	}
	outputPoller := flow.NewPoller(flow.Policy{Interval: cfg.Flow.PollInterval, MaxAttempts: cfg.Flow.OutputMaxAttempts}, a.logger, a.metrics)
	statusPoller := flow.NewPoller(flow.Policy{Interval: cfg.Flow.PollInterval, MaxAttempts: cfg.Flow.StatusMaxAttempts}, a.logger, a.metrics)

	return &appServices{
		client:    client,
		records:   services.NewRecordService(a.store),
		contacts:  services.NewImporter(client, services.ContactSource(a.store), importOpts, a.logger, a.metrics),
		employees: services.NewImporter(client, services.EmployeeSource(a.store), importOpts, a.logger, a.metrics),
		flows: services.NewFlowService(client, flow.NewTrigger(client), client, outputPoller, statusPoller,
			services.FlowOptions{NodeKey: cfg.Flow.CreateNodeKey, DependentsFlowKey: cfg.Flow.DependentsFlowKey}, a.logger),
		webhooks: services.NewWebhookService(a.store, a.logger, a.metrics),
	}
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection")

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.DB.MaxConns > 0 {
		poolConfig.MaxConns = cfg.DB.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
