package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"slipway/internal/buildcfg"
	"slipway/internal/history"

	"github.com/spf13/cobra"
)

var (
	historyDBPath string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history [RUN_ID]",
	Short: "Show recorded build runs",
	Long: `Show recent build runs from the run ledger.

With a RUN_ID argument, shows that run's step-by-step breakdown.

Example:
  slipway history
  slipway history 12`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyDBPath, "db", "", "Path to the run ledger database (default from config)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", history.DefaultLimit, "Number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	dbPath, err := resolveDBPath(historyDBPath)
	if err != nil {
		return err
	}

	hist, err := history.NewHistory(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open run ledger: %w", err)
	}
	defer hist.Close()

	ctx := context.Background()

	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run ID '%s'", args[0])
		}
		return showRun(ctx, hist, id)
	}

	return listRuns(ctx, hist, historyLimit)
}

// resolveDBPath locates the run ledger: an explicit flag wins, then the
// SLIPWAY_DB_PATH environment variable, then the loaded configuration.
func resolveDBPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv(buildcfg.EnvDBPath); env != "" {
		return env, nil
	}

	cfg, err := buildcfg.Load(buildcfg.Discover())
	if err != nil {
		return "", fmt.Errorf("cannot locate run ledger (pass --db): %w", err)
	}
	if !cfg.History.Enabled {
		return "", fmt.Errorf("run history is disabled in configuration")
	}
	return cfg.History.Path, nil
}

func listRuns(ctx context.Context, hist *history.History, limit int) error {
	runs, err := hist.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	fmt.Printf("%-5s %-20s %-9s %-13s %-5s %-9s %s\n",
		"ID", "STARTED", "STATUS", "STRATEGY", "EXIT", "DURATION", "FAILED STEP")
	for _, run := range runs {
		failed := "-"
		if run.FailedStep != nil {
			failed = *run.FailedStep
		}
		fmt.Printf("%-5d %-20s %-9s %-13s %-5d %-9s %s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Status,
			run.Strategy,
			run.ExitCode,
			formatSeconds(run.DurationSeconds),
			failed)
	}

	return nil
}

func showRun(ctx context.Context, hist *history.History, id int64) error {
	run, err := hist.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("run %d not found", id)
	}

	fmt.Printf("Run %d: %s\n", run.ID, run.Status)
	fmt.Printf("  Started:  %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("  Strategy: %s\n", run.Strategy)
	fmt.Printf("  Duration: %s\n", formatSeconds(run.DurationSeconds))
	fmt.Printf("  Exit:     %d\n", run.ExitCode)
	if run.CommitSHA != nil {
		fmt.Printf("  Commit:   %s\n", *run.CommitSHA)
	}
	if run.FailedStep != nil {
		fmt.Printf("  Failed:   %s\n", *run.FailedStep)
	}

	fmt.Println("\nSteps:")
	for _, step := range run.Steps {
		fmt.Printf("%3d. %-22s %-10s exit %-4d %s\n",
			step.Position+1, step.Label, step.Status, step.ExitCode, formatSeconds(step.DurationSeconds))
	}

	if run.ErrorMessage != nil && *run.ErrorMessage != "" {
		fmt.Printf("\nFailure output:\n%s\n", strings.TrimSpace(*run.ErrorMessage))
	}

	return nil
}

func formatSeconds(seconds float64) string {
	return fmt.Sprintf("%.1fs", seconds)
}
