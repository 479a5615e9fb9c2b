// Package main is the entrypoint for the veridianctl admin CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/veridianhq/veridian/internal/bia"
	"github.com/veridianhq/veridian/internal/catalog"
	"github.com/veridianhq/veridian/internal/db"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "veridianctl",
		Short:        "Veridian compliance core admin CLI",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newCatalogCmd())
	rootCmd.AddCommand(newTierPolicyCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newMigrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if databaseURL == "" {
				return fmt.Errorf("database URL required: set --database-url or DATABASE_URL")
			}

			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			database, err := db.New(ctx, db.DefaultConfig(databaseURL), logger)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer database.Close()

			if err := database.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			version, err := database.CurrentVersion(ctx)
			if err != nil {
				return fmt.Errorf("read schema version: %w", err)
			}
			fmt.Printf("Migrations complete, schema version %d\n", version)
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL")
	return cmd
}

func newCatalogCmd() *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Control catalog utilities",
	}

	validateCmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a control catalog YAML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}

			cat, err := catalog.Load(path)
			if err != nil {
				return err
			}

			fmt.Printf("Catalog OK: %d controls across %d domains\n", cat.Len(), len(cat.Domains()))
			for _, domain := range cat.Domains() {
				fmt.Printf("  %s\n", domain)
			}
			return nil
		},
	}

	catalogCmd.AddCommand(validateCmd)
	return catalogCmd
}

func newTierPolicyCmd() *cobra.Command {
	policyCmd := &cobra.Command{
		Use:   "tier-policy",
		Short: "BIA tier policy utilities",
	}

	validateCmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a tier policy YAML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}

			policy, err := bia.LoadTierPolicy(path)
			if err != nil {
				return err
			}

			fmt.Printf("Tier policy OK: %d tiers\n", len(policy.Tiers))
			for _, tier := range policy.Tiers {
				fmt.Printf("  %s -> %s\n", tier, policy.Baseline(tier))
			}
			return nil
		},
	}

	policyCmd.AddCommand(validateCmd)
	return policyCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("veridianctl %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		},
	}
}
