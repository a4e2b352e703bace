package main

import (
	"fmt"
	"io"
	"time"

	"github.com/bissquit/incident-metrics/internal/app"
	"github.com/bissquit/incident-metrics/internal/domain"
	"github.com/bissquit/incident-metrics/internal/reliability"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const progressEvery = 100

var recalculateFlags struct {
	year   int
	dryRun bool
	force  bool
}

var recalculateCmd = &cobra.Command{
	Use:   "recalculate",
	Short: "Recompute MTTR and MTBF for stored incidents",
	Long: `Recompute MTTR and MTBF for every stored incident, or for one calendar
year, and save values that changed. Saves do not touch updated_at and do not
emit change notifications.`,
	Args: cobra.NoArgs,
	RunE: runRecalculate,
}

func init() {
	f := recalculateCmd.Flags()
	f.IntVar(&recalculateFlags.year, "year", 0, "only recalculate incidents of this calendar year")
	f.BoolVar(&recalculateFlags.dryRun, "dry-run", false, "report changes without saving them")
	f.BoolVar(&recalculateFlags.force, "force", false, "save every incident, even when values are unchanged")
}

func runRecalculate(cmd *cobra.Command, _ []string) error {
	engine, err := app.NewEngine(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	opts := reliability.Options{
		DryRun: recalculateFlags.dryRun,
		Force:  recalculateFlags.force,
	}
	if cmd.Flags().Changed("year") {
		year := recalculateFlags.year
		opts.Year = &year
	}

	stderr := cmd.ErrOrStderr()
	opts.Progress = func(done, total int) {
		if done%progressEvery == 0 || done == total {
			fmt.Fprintf(stderr, "processed %d/%d\n", done, total)
		}
	}

	result, err := engine.Recalculator.Recalculate(cmd.Context(), opts)
	if result != nil {
		printResult(cmd.OutOrStdout(), result)
	}
	return err
}

func printResult(w io.Writer, result *reliability.Result) {
	p := message.NewPrinter(language.English)

	if result.DryRun {
		for _, c := range result.Changes {
			fmt.Fprintf(w, "incident %d: mttr %s -> %s, mtbf %s -> %s\n",
				c.IncidentID,
				formatMTTR(c.OldMTTR), formatMTTR(c.NewMTTR),
				formatMTBF(c.OldMTBF), formatMTBF(c.NewMTBF),
			)
		}
	}

	verb := "updated"
	if result.DryRun {
		verb = "would update"
	}
	p.Fprintf(w, "processed %d incidents, %s mttr for %d and mtbf for %d in %s\n",
		result.Processed, verb, result.MTTRUpdated, result.MTBFUpdated, result.Duration.Round(time.Millisecond))
}

func formatMTTR(m *domain.MTTR) string {
	if m == nil {
		return "-"
	}
	return m.String()
}

func formatMTBF(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
