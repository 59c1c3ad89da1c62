package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"contact-sync/backend/pkg/models"
)

type importOptions struct {
	CustomerID   string
	CustomerName string
}

func newImportCmd(root *rootOptions) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:       "import contacts|employees --customer <id>",
		Short:     "Import one tenant's contacts or employees from its connected app",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"contacts", "employees"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(opts.CustomerID) == "" {
				return errors.New("--customer is required")
			}
			ctx := cmd.Context()

			a, err := newApp(ctx, root.EnvFile)
			if err != nil {
				return err
			}
			defer a.Close()

			svc := a.services()
			tenant := models.Tenant{ID: opts.CustomerID, Name: opts.CustomerName}

			var n int
			switch args[0] {
			case "contacts":
				items, err := svc.contacts.Run(ctx, tenant)
				if err != nil {
					return err
				}
				n = len(items)
			case "employees":
				items, err := svc.employees.Run(ctx, tenant)
				if err != nil {
					return err
				}
				n = len(items)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d %s for %s\n", n, args[0], tenant.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.CustomerID, "customer", "", "customer id to import for")
	cmd.Flags().StringVar(&opts.CustomerName, "customer-name", "", "customer name sent to the integration platform")

	return cmd
}
