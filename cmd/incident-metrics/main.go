// Command incident-metrics serves the incident metrics API and runs one-shot
// recalculation, reporting and migration tasks.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/bissquit/incident-metrics/internal/app"
	"github.com/bissquit/incident-metrics/internal/config"
	"github.com/bissquit/incident-metrics/internal/version"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	envFile string

	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "incident-metrics",
	Short: "MTTR/MTBF metrics engine for tracked incidents",
	Long: `incident-metrics keeps the MTTR and MTBF of stored incidents up to date
and reports weekly incident counts.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}

		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		// Logs go to stderr so command output on stdout stays parseable.
		logger = app.NewLogger(cfg.Log, cmd.ErrOrStderr())
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before config, if present")

	rootCmd.SetVersionTemplate("incident-metrics " + version.String() + "\n")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(recalculateCmd)
	rootCmd.AddCommand(weeklyCmd)
	rootCmd.AddCommand(migrateCmd)
}
