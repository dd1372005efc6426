package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkwell-sync/inkwell/internal/core/domain"
	"github.com/inkwell-sync/inkwell/internal/core/ports/driving"
)

var syncCmd = &cobra.Command{
	Use:   "sync [connection-id]",
	Short: "Pull changed notes from connected sources",
	Long: `Runs one sync cycle. If a connection ID is provided, only that
connection is synced. Otherwise every configured connection is synced,
bounded by the concurrency pool. Cycles are idempotent: re-running
after a failure converges to the same state.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncRunner == nil {
		return errors.New("sync service not configured")
	}

	ctx := context.Background()

	if len(args) > 0 {
		connectionID := args[0]
		cmd.Printf("Syncing connection %s...\n", connectionID)

		report, err := syncRunner.RunCycle(ctx, connectionID)
		if err != nil {
			if errors.Is(err, domain.ErrSyncInProgress) {
				return fmt.Errorf("connection %s already has a cycle in flight", connectionID)
			}
			return fmt.Errorf("sync failed: %w", err)
		}

		printReport(cmd, report)
		return nil
	}

	cmd.Println("Syncing all connections...")

	reports, err := syncRunner.RunAll(ctx)
	for i := range reports {
		printReport(cmd, &reports[i])
	}
	if err != nil {
		return fmt.Errorf("sync finished with failures: %w", err)
	}

	cmd.Printf("Synced %d connections.\n", len(reports))
	return nil
}

func printReport(cmd *cobra.Command, report *driving.CycleReport) {
	cmd.Printf("%s: %d items, %d upserted, %d deleted, %d skipped (%s)\n",
		report.ConnectionID,
		report.Stats.Items, report.Stats.Upserts, report.Stats.Deletes, report.Stats.Skipped,
		report.Duration.Round(time.Millisecond))
	for _, warning := range report.Warnings {
		cmd.Printf("  warning: %s\n", warning)
	}
}
