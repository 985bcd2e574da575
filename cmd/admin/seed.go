package main

import (
	"fmt"
	"os"

	"storefront-payments/internal/client"
	"storefront-payments/internal/repository"
	"storefront-payments/internal/service"

	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [catalog.yaml]",
		Short: "Upsert products, delivery methods and coupons from a YAML file",
		Long: `Upsert the catalog described by a YAML file.

Example file:
  products:
    - id: 1
      name: Boots
      price: 25.00
      quantityInStock: 10
  deliveryMethods:
    - id: 1
      shortName: UPS1
      deliveryTime: 1-2 days
      price: 5.00
  coupons:
    - code: TEN
      name: Ten percent off
      percentOff: 10
      active: true`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer f.Close()

			db, closeDB, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := client.Migrate(db); err != nil {
				return err
			}

			catalog := service.NewCatalogService(
				db,
				repository.NewProductRepository(db),
				repository.NewDeliveryMethodRepository(db),
				repository.NewCouponRepository(db),
			)
			seeded, err := catalog.Seed(cmd.Context(), f)
			if err != nil {
				return err
			}

			printf(cmd.OutOrStdout(), "seeded %d products, %d delivery methods, %d coupons\n",
				len(seeded.Products), len(seeded.DeliveryMethods), len(seeded.Coupons))
			return nil
		},
	}
}
