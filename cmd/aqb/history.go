package main

import (
	"fmt"
	"io"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/j-veylop/ai-quota-bar/internal/models"
	"github.com/j-veylop/ai-quota-bar/internal/services"
)

var historyFlags struct {
	days   int
	width  int
	rollup bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print daily usage of every tracked limit",
	Long: `Print the daily average usage of every tracked limit as a chart, followed by
its peak and number of samples at or above the limit-hit threshold.

Examples:
  # Last week
  aqb history

  # Last 30 days, rolling up closed days first
  aqb history --days 30 --rollup`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyFlags.days, "days", "d", 7, "number of days to show")
	historyCmd.Flags().IntVar(&historyFlags.width, "width", 60, "chart width")
	historyCmd.Flags().BoolVar(&historyFlags.rollup, "rollup", false, "roll up closed days before printing")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyFlags.days < 1 {
		return fmt.Errorf("--days must be at least 1")
	}

	cfg, cleanup, err := loadConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	now := time.Now()
	store, database, err := services.OpenStore(cfg, now)
	if err != nil {
		return err
	}
	defer database.Close()

	if historyFlags.rollup {
		if _, err := store.Rollup(cmd.Context(), now); err != nil {
			return fmt.Errorf("rollup failed: %w", err)
		}
	}

	ov, err := store.Overview(now, historyFlags.days)
	if err != nil {
		return err
	}
	printHistory(cmd.OutOrStdout(), ov, historyFlags.days, historyFlags.width)
	return nil
}

// printHistory writes one chart per key, oldest day first.
func printHistory(w io.Writer, ov *models.HistoryOverview, days, width int) {
	if !ov.HasData() {
		fmt.Fprintf(w, "No daily statistics in the last %d days.\n", days)
		return
	}

	fmt.Fprintf(w, "%d days, average %d%%, highest %d%% on %s, %d limit hits\n\n",
		ov.TotalDays, ov.AvgPct, ov.HighestPct, ov.HighestDay, ov.TotalHits)

	for _, k := range ov.Keys {
		fmt.Fprintf(w, "%s  avg %d%%  peak %d%%  hits %d\n", k.Key.Label(), k.AvgPct, k.PeakPct, k.LimitHits)

		switch len(k.Days) {
		case 0:
			fmt.Fprintln(w)
			continue
		case 1:
			fmt.Fprintf(w, "  %s: %d%%\n\n", k.Days[0].Date, k.Days[0].AvgPct)
			continue
		}

		data := make([]float64, len(k.Days))
		for i, d := range k.Days {
			data[i] = float64(d.AvgPct)
		}
		fmt.Fprintln(w, asciigraph.Plot(data,
			asciigraph.Height(6),
			asciigraph.Width(width),
			asciigraph.LowerBound(0),
			asciigraph.UpperBound(100),
			asciigraph.Caption(fmt.Sprintf("%s to %s", k.Days[0].Date, k.Days[len(k.Days)-1].Date)),
		))
		fmt.Fprintln(w)
	}
}
