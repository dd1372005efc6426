package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/inkwell-sync/inkwell/internal/core/domain"
	"github.com/inkwell-sync/inkwell/internal/core/ports/driving"
)

// mockSyncRunner implements driving.SyncRunner for testing.
type mockSyncRunner struct {
	report *driving.CycleReport
	err    error
}

func (m *mockSyncRunner) RunCycle(_ context.Context, connectionID string) (*driving.CycleReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	report := *m.report
	report.ConnectionID = connectionID
	return &report, nil
}

func (m *mockSyncRunner) RunAll(_ context.Context) ([]driving.CycleReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []driving.CycleReport{*m.report}, nil
}

func setupSyncTest(runner driving.SyncRunner) func() {
	old := syncRunner
	syncRunner = runner
	return func() {
		syncRunner = old
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func sampleReport() *driving.CycleReport {
	return &driving.CycleReport{
		ConnectionID: "c1",
		Stats:        driving.CycleStats{Items: 5, Upserts: 3, Deletes: 1, Skipped: 1},
		Cursor:       domain.SyncCursor{Since: time.Now()},
		Duration:     42 * time.Millisecond,
	}
}

func TestSyncCmd_SingleConnection(t *testing.T) {
	cleanup := setupSyncTest(&mockSyncRunner{report: sampleReport()})
	defer cleanup()

	out, err := execute(t, "sync", "c1")

	assert.NoError(t, err)
	assert.Contains(t, out, "Syncing connection c1...")
	assert.Contains(t, out, "c1: 5 items, 3 upserted, 1 deleted, 1 skipped")
}

func TestSyncCmd_AllConnections(t *testing.T) {
	cleanup := setupSyncTest(&mockSyncRunner{report: sampleReport()})
	defer cleanup()

	out, err := execute(t, "sync")

	assert.NoError(t, err)
	assert.Contains(t, out, "Syncing all connections...")
	assert.Contains(t, out, "Synced 1 connections.")
}

func TestSyncCmd_PrintsWarnings(t *testing.T) {
	report := sampleReport()
	report.Warnings = []string{"hash mismatch for item n-1"}
	cleanup := setupSyncTest(&mockSyncRunner{report: report})
	defer cleanup()

	out, err := execute(t, "sync", "c1")

	assert.NoError(t, err)
	assert.Contains(t, out, "warning: hash mismatch for item n-1")
}

func TestSyncCmd_InProgressConnection(t *testing.T) {
	cleanup := setupSyncTest(&mockSyncRunner{err: domain.ErrSyncInProgress})
	defer cleanup()

	_, err := execute(t, "sync", "c1")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already has a cycle in flight")
}

func TestSyncCmd_FailurePropagates(t *testing.T) {
	cleanup := setupSyncTest(&mockSyncRunner{err: errors.New("boom")})
	defer cleanup()

	_, err := execute(t, "sync", "c1")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sync failed")
}

func TestSyncCmd_NotConfigured(t *testing.T) {
	cleanup := setupSyncTest(nil)
	defer cleanup()

	_, err := execute(t, "sync")

	assert.Error(t, err)
}
