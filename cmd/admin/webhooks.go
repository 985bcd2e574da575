package main

import (
	"text/tabwriter"

	"storefront-payments/internal/repository"

	"github.com/spf13/cobra"
)

func webhooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhooks",
		Short: "Inspect and replay recorded gateway deliveries",
	}

	cmd.AddCommand(webhooksListCmd())
	cmd.AddCommand(webhooksReplayCmd())
	return cmd
}

func webhooksListCmd() *cobra.Command {
	var (
		outcome string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded webhook deliveries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			events, err := repository.NewWebhookEventRepository(db).List(cmd.Context(), outcome, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(w, "ID\tEVENT\tREFERENCE\tOUTCOME\tPROCESSED\n")
			for _, ev := range events {
				printf(w, "%s\t%s\t%s\t%s\t%s\n",
					ev.EventID, ev.EventType, ev.Reference, ev.Outcome, ev.ProcessedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&outcome, "outcome", "o", "", "filter by outcome (e.g. order_not_found)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum deliveries")

	return cmd
}

func webhooksReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay [event-id]",
		Short: "Reconcile a recorded delivery again",
		Long: `Re-run order reconciliation for a stored, already verified delivery.

Use it for order_not_found deliveries once the order exists. Replaying a
delivery whose order is already settled reports "duplicate" and changes nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := app.Services.Payment.ReplayWebhook(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s %s: %s\n", res.EventID, res.Reference, res.Outcome)
			return nil
		},
	}
}
