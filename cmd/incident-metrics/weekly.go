package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/bissquit/incident-metrics/internal/app"
	"github.com/bissquit/incident-metrics/internal/reliability"
	"github.com/spf13/cobra"
)

var weeklyFlags struct {
	year   int
	asJSON bool
}

var weeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Print open, closed and total incident counts per reporting week",
	Args:  cobra.NoArgs,
	RunE:  runWeekly,
}

func init() {
	f := weeklyCmd.Flags()
	f.IntVar(&weeklyFlags.year, "year", 0, "calendar year (default: current year)")
	f.BoolVar(&weeklyFlags.asJSON, "json", false, "print JSON instead of a table")
}

func runWeekly(cmd *cobra.Command, _ []string) error {
	year := weeklyFlags.year
	if !cmd.Flags().Changed("year") {
		year = time.Now().In(cfg.Location()).Year()
	}

	engine, err := app.NewEngine(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	summaries, err := engine.Reporter.Summary(cmd.Context(), year)
	if err != nil {
		return err
	}

	if weeklyFlags.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}
	return printWeekly(cmd.OutOrStdout(), summaries)
}

func printWeekly(w io.Writer, summaries []reliability.WeekSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "WEEK\tDATES\tOPEN\tCLOSED\tTOTAL\t")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t\n", s.Week, s.DateRangeLabel, s.OpenCount, s.ClosedCount, s.TotalCount)
	}
	return tw.Flush()
}
