package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xelth-com/cspsgo/internal/buildinfo"
	"github.com/xelth-com/cspsgo/internal/config"
	"github.com/xelth-com/cspsgo/internal/database"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "cspsctl",
		Short:   "Administration tool for the CSPS coordination server",
		Version: buildinfo.Version,
		Long: `cspsctl runs schema migrations, bootstraps accounts and imports mission
spreadsheets against the server database configured in the environment.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

// withDB loads configuration, connects and migrates before running fn
func withDB(ctx context.Context, fn func(ctx context.Context, cfg *config.Config, db *database.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	config.ConfigureLogger(cfg.Log)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db.DB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return fn(ctx, cfg, db)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, cfg *config.Config, db *database.DB) error {
				color.Green("✓ Schema is up to date")
				return nil
			})
		},
	}
}
