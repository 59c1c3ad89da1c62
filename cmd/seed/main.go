package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"contact-sync/backend/internal/config"
	"contact-sync/backend/internal/logging"
	"contact-sync/backend/internal/repository"
	"contact-sync/backend/pkg/models"
)

var seedContacts = []models.Contact{
	{ContactID: "seed-c-1", Name: "Ada Lovelace", Email: "ada@example.com", Phone: "+44 20 7946 0001", Source: "seed"},
	{ContactID: "seed-c-2", Name: "Grace Hopper", Email: "grace@example.com", Phone: "+1 202 555 0102", Source: "seed"},
	{ContactID: "seed-c-3", Name: "Alan Turing", Email: "alan@example.com", Source: "seed"},
}

var seedEmployees = []models.Employee{
	{EmployeeID: "seed-e-1", Name: "Katherine Johnson", Title: "Engineer", Email: "katherine@example.com", Dependents: "2"},
	{EmployeeID: "seed-e-2", Name: "Margaret Hamilton", Title: "Director", Email: "margaret@example.com", Dependents: "0"},
}

func main() {
	var envFile, customerID string

	cmd := &cobra.Command{
		Use:           "seed --customer <id>",
		Short:         "Seed demo contacts and employees for one customer",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), envFile, customerID)
		},
	}
	cmd.Flags().StringVar(&envFile, "env", "", "Path to .env file")
	cmd.Flags().StringVar(&customerID, "customer", "local-dev", "customer id that owns the seeded records")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, envFile, customerID string) error {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to DB: %w", err)
	}
	defer pool.Close()

	if err := repository.Migrate(pool, logger); err != nil {
		return err
	}
	store := repository.NewPostgresStore(pool)

	// Upserts keyed on (customer, external id) make reseeding a no-op.
	for _, c := range seedContacts {
		c.CustomerID = customerID
		saved, err := store.UpsertContact(ctx, &c)
		if err != nil {
			return fmt.Errorf("failed to seed contact %s: %w", c.ContactID, err)
		}
		logger.Info("Seeded contact", "name", saved.Name, "id", saved.ID)
	}
	for _, e := range seedEmployees {
		e.CustomerID = customerID
		saved, err := store.UpsertEmployee(ctx, &e)
		if err != nil {
			return fmt.Errorf("failed to seed employee %s: %w", e.EmployeeID, err)
		}
		logger.Info("Seeded employee", "name", saved.Name, "id", saved.ID)
	}

	logger.Info("Seeding complete!", "customer_id", customerID)
	return nil
}
