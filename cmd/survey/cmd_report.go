package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/godilite/survey-insights/internal/service"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

var (
	reportFrom        string
	reportTo          string
	reportDepartments []string
	reportPositions   []string
	reportJSON        bool
)

// reportCmd renders the dashboard
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the gap analysis, NPS and segment breakdowns",
	Long: `Builds the dashboard from the stored responses. Questions and categories
are ranked by improvement priority (expectation minus satisfaction, largest
first).

Example:
  survey report --from 2025-04-01 --to 2025-06-30 --department Sales`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "first day included (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "last day included (YYYY-MM-DD)")
	reportCmd.Flags().StringSliceVar(&reportDepartments, "department", nil, "only these departments (repeatable)")
	reportCmd.Flags().StringSliceVar(&reportPositions, "position", nil, "only these positions (repeatable)")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the dashboard as JSON")
}

// buildQuery turns the report flags into a query. Days are UTC; --to
// covers its whole day.
func buildQuery(from, to string, departments, positions []string) (service.Query, error) {
	q := service.Query{Departments: departments, Positions: positions}
	if from != "" {
		start, err := time.Parse(dateLayout, from)
		if err != nil {
			return q, fmt.Errorf("invalid --from %q: %w", from, err)
		}
		q.Start = start
	}
	if to != "" {
		end, err := time.Parse(dateLayout, to)
		if err != nil {
			return q, fmt.Errorf("invalid --to %q: %w", to, err)
		}
		q.End = end.Add(24*time.Hour - time.Nanosecond)
	}
	return q, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	q, err := buildQuery(reportFrom, reportTo, reportDepartments, reportPositions)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	application, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	d, err := application.Views().Dashboard(ctx, q)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if reportJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}
	return renderDashboard(out, d)
}
