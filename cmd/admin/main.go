package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"storefront-payments/internal/bootstrap"
	"storefront-payments/internal/client"
	"storefront-payments/internal/config"
	"storefront-payments/internal/logging"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "storefront-admin",
		Short:         "Operator tooling for the storefront payments service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(refundCmd())
	rootCmd.AddCommand(ordersCmd())
	rootCmd.AddCommand(webhooksCmd())

	return rootCmd
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	// stdout belongs to command output
	logger := slog.New(logging.NewHandler(os.Stderr, cfg.Log)).With("service", "storefront-admin")
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func openDB() (*gorm.DB, func(), error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := client.InitDBClient(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = sqlDB.Close() }, nil
}

func openApp(ctx context.Context) (*bootstrap.App, func(), error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return bootstrap.New(ctx, cfg, logger)
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
