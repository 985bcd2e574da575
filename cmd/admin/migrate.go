package main

import (
	"storefront-payments/internal/client"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := client.Migrate(db); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "schema up to date\n")
			return nil
		},
	}
}
