package main

import (
	"text/tabwriter"

	"storefront-payments/internal/model"
	"storefront-payments/internal/repository"

	"github.com/spf13/cobra"
)

func ordersCmd() *cobra.Command {
	var (
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders by status",
		Example: `  storefront-admin orders --status PaymentMismatch
  storefront-admin orders --status Pending --limit 200`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			orders, err := repository.NewOrderRepository(db).ListByStatus(cmd.Context(), model.OrderStatus(status), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(w, "ID\tREFERENCE\tBUYER\tTOTAL\tCARD\tUPDATED\n")
			for _, o := range orders {
				printf(w, "%d\t%s\t%s\t%s %s\t%s\t%s\n",
					o.ID, o.PaymentReference, o.BuyerEmail,
					model.FromMinor(o.Total()).StringFixed(2), o.Currency,
					o.PaymentSummary.Last4, o.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", string(model.OrderStatusPaymentMismatch), "order status to list")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum orders")

	return cmd
}
