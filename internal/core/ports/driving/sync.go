package driving

import (
	"context"
	"time"

	"github.com/inkwell-sync/inkwell/internal/core/domain"
)

// SyncRunner executes sync cycles. The external scheduler decides
// when to call it; the runner decides nothing about timing.
type SyncRunner interface {
	// RunCycle executes one fetch-validate-reconcile-commit cycle for
	// the connection. A second concurrent attempt for the same
	// connection key fails with domain.ErrSyncInProgress. On transient
	// failure the cursor is unchanged and domain.IsRetryable reports
	// true; retrying converges to the same final state.
	RunCycle(ctx context.Context, connectionID string) (*CycleReport, error)

	// RunAll executes one cycle per configured connection, bounded by
	// the concurrency pool, and joins the failures.
	RunAll(ctx context.Context) ([]CycleReport, error)
}

// CycleStats counts what one cycle did to the store.
// Items == Upserts + Deletes + Skipped.
type CycleStats struct {
	Items   int
	Upserts int
	Deletes int
	Skipped int
}

// CycleReport summarises one completed sync cycle.
type CycleReport struct {
	// ConnectionID is the connection the cycle ran for.
	ConnectionID string

	// Stats counts applied and skipped items.
	Stats CycleStats

	// Warnings carries non-fatal item-level problems (schema
	// violations, hash mismatches) surfaced for reporting.
	Warnings []string

	// Cursor is the cursor the cycle committed.
	Cursor domain.SyncCursor

	// Duration is wall-clock cycle time.
	Duration time.Duration
}
