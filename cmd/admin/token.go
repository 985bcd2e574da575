package main

import (
	"time"

	"storefront-payments/internal/middleware"

	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token [email]",
		Short: "Issue a buyer JWT for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			token, err := middleware.NewAuthenticator(cfg.Auth).IssueToken(args[0], time.Now())
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", token)
			return nil
		},
	}
}
