package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// newApp migrates as part of connecting.
			a, err := newApp(cmd.Context(), opts.EnvFile)
			if err != nil {
				return err
			}
			a.Close()
			return nil
		},
	}
}
