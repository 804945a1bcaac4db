package main

import (
	"github.com/spf13/cobra"
)

// watchCmd keeps the dashboard cache and metrics fresh
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Refresh the dashboard on REFRESH_SCHEDULE until interrupted",
	Long: `Rebuilds the unfiltered dashboard once at start and then on the cron
schedule in REFRESH_SCHEDULE (default "@every 5m"), keeping the redis cache
warm and writing metrics to METRICS_FILE when set. Stops on SIGINT/SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		return application.Run(cmd.Context())
	},
}
