package main

import (
	"github.com/bissquit/incident-metrics/internal/pkg/postgres"
	"github.com/spf13/cobra"
)

var migrationsPath string

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or revert database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{postgres.MigrateUp, postgres.MigrateDown},
	RunE: func(cmd *cobra.Command, args []string) error {
		direction := postgres.MigrateUp
		if len(args) == 1 {
			direction = args[0]
		}

		path := cfg.Database.MigrationsPath
		if cmd.Flags().Changed("path") {
			path = migrationsPath
		}

		return postgres.Migrate(cfg.Database.URL, path, direction)
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsPath, "path", "", "migrations directory (default: database.migrations_path)")
}
