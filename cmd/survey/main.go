package main

import (
	"context"
	"fmt"
	"os"

	"github.com/godilite/survey-insights/internal/app"
	"github.com/godilite/survey-insights/internal/config"
	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	envFile     string
	dbPath      string
	catalogPath string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "survey",
	Short: "Employee satisfaction survey analytics",
	Long: `survey collects employee satisfaction survey responses and turns them
into a dashboard: expectation/satisfaction gaps per question and category,
an NPS-style score and breakdowns by department, position and tenure.

Responses live in sqlite (or a CSV file with DB_DRIVER=csv); dashboards
are cached in redis when REDIS_ADDR is set.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load(envFile)

		cfg = config.LoadFromEnv()
		if dbPath != "" {
			cfg.DBPath = dbPath
		}
		if catalogPath != "" {
			cfg.CatalogPath = catalogPath
		}

		var err error
		logger, err = config.NewLogger(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "response store path (overrides DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "question catalog YAML (overrides CATALOG_PATH)")

	rootCmd.AddCommand(importCmd, exportCmd, reportCmd, takeCmd, watchCmd)
}

// newApp wires the application for one command run.
func newApp(ctx context.Context) (*app.App, error) {
	application, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return application, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
