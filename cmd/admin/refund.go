package main

import (
	"github.com/spf13/cobra"
)

func refundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refund [payment-reference]",
		Short: "Refund a paid order through the gateway and mark it Refunded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := app.Services.Payment.RefundPayment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s %s: %s\n", res.Reference, res.Status, res.Message)
			return nil
		},
	}
}
