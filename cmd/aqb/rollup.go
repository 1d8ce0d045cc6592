package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/j-veylop/ai-quota-bar/internal/db"
	"github.com/j-veylop/ai-quota-bar/internal/services"
)

var rollupCmd = &cobra.Command{
	Use:   "rollup",
	Short: "Aggregate closed days and apply retention once",
	Long: `Aggregate every closed UTC day of raw samples into daily statistics, then
delete samples and daily statistics older than the retention windows.

The dashboard runs the same pass on its rollup schedule; this command is for
cron jobs and machines where the dashboard is not running.`,
	RunE: runRollup,
}

var rollupVacuum bool

func init() {
	rollupCmd.Flags().BoolVar(&rollupVacuum, "vacuum", false, "reclaim database space after pruning")
	rootCmd.AddCommand(rollupCmd)
}

func runRollup(cmd *cobra.Command, args []string) error {
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

	res, err := store.Rollup(cmd.Context(), now)
	if err != nil {
		return fmt.Errorf("rollup failed: %w", err)
	}
	if rollupVacuum {
		if err := database.Vacuum(); err != nil {
			return fmt.Errorf("vacuum failed: %w", err)
		}
	}

	kept, err := database.CountSamples()
	if err != nil {
		return fmt.Errorf("failed to count samples: %w", err)
	}
	printRollup(cmd.OutOrStdout(), res, kept, time.Since(now))
	return nil
}

func printRollup(w io.Writer, res db.RollupResult, kept int, took time.Duration) {
	fmt.Fprintf(w, "Rolled up %d days in %s\n", res.Days, took.Round(time.Millisecond))
	fmt.Fprintf(w, "  daily stats written:  %d\n", res.StatsUpserted)
	fmt.Fprintf(w, "  samples aggregated:   %d\n", res.SamplesRolled)
	fmt.Fprintf(w, "  samples pruned:       %d\n", res.SamplesPruned)
	fmt.Fprintf(w, "  daily stats pruned:   %d\n", res.StatsPruned)
	fmt.Fprintf(w, "  samples in log:       %d\n", kept)
}
