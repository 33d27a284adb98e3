package history

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestHistory(t *testing.T) *History {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	hist, err := NewHistory(dbPath)
	if err != nil {
		t.Fatalf("Failed to create history: %v", err)
	}
	t.Cleanup(func() { hist.Close() })

	return hist
}

func TestHistory_RecordRun(t *testing.T) {
	hist := newTestHistory(t)

	failedStep := "migrate"
	commitSHA := "abc123def456"
	record := &RunRecord{
		Status:          StatusFailed,
		Strategy:        "fake-initial",
		ExitCode:        1,
		FailedStep:      &failedStep,
		CommitSHA:       &commitSHA,
		DurationSeconds: 5.5,
		Steps: []StepRecord{
			{Label: "install", Policy: "fatal", Status: "ok", ExitCode: 0, DurationSeconds: 3.2},
			{Label: "migrate", Policy: "fatal", Status: "failed", ExitCode: 1, DurationSeconds: 2.3, Output: "relation already exists\n"},
			{Label: "create-superuser", Policy: "fatal", Status: "skipped"},
		},
	}

	id, err := hist.RecordRun(context.Background(), record)
	if err != nil {
		t.Fatalf("Failed to record run: %v", err)
	}

	if id == 0 {
		t.Error("Expected non-zero run ID")
	}
}

func TestHistory_GetRun(t *testing.T) {
	hist := newTestHistory(t)
	ctx := context.Background()

	id, err := hist.RecordRun(ctx, &RunRecord{
		Status:          StatusOK,
		Strategy:        "reset",
		ExitCode:        0,
		DurationSeconds: 12.0,
		Steps: []StepRecord{
			{Label: "install", Policy: "fatal", Status: "ok", DurationSeconds: 8.0},
			{Label: "migrate-reset", Policy: "tolerant", Status: "tolerated", ExitCode: 1, DurationSeconds: 0.5, Output: "no such table\n"},
			{Label: "migrate", Policy: "fatal", Status: "ok", DurationSeconds: 3.5},
		},
	})
	if err != nil {
		t.Fatalf("Failed to record run: %v", err)
	}

	run, err := hist.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if run == nil {
		t.Fatal("Expected run to be non-nil")
	}

	if run.Status != StatusOK {
		t.Errorf("Expected status %q, got %q", StatusOK, run.Status)
	}
	if run.Strategy != "reset" {
		t.Errorf("Expected strategy 'reset', got %q", run.Strategy)
	}
	if run.StartedAt.IsZero() {
		t.Error("Expected started_at to be set")
	}

	if len(run.Steps) != 3 {
		t.Fatalf("Expected 3 steps, got %d", len(run.Steps))
	}

	for i, step := range run.Steps {
		if step.Position != i {
			t.Errorf("Step %d: expected position %d, got %d", i, i, step.Position)
		}
	}

	reset := run.Steps[1]
	if reset.Label != "migrate-reset" {
		t.Errorf("Expected second step 'migrate-reset', got %q", reset.Label)
	}
	if reset.Policy != "tolerant" {
		t.Errorf("Expected policy 'tolerant', got %q", reset.Policy)
	}
	if reset.Status != "tolerated" {
		t.Errorf("Expected status 'tolerated', got %q", reset.Status)
	}
	if reset.ExitCode != 1 {
		t.Errorf("Expected exit code 1, got %d", reset.ExitCode)
	}
	if reset.Output != "no such table\n" {
		t.Errorf("Expected step output to round-trip, got %q", reset.Output)
	}
}

func TestHistory_GetRun_NotFound(t *testing.T) {
	hist := newTestHistory(t)

	run, err := hist.GetRun(context.Background(), 42)
	if err != nil {
		t.Fatalf("Expected no error for missing run, got: %v", err)
	}

	if run != nil {
		t.Errorf("Expected nil for missing run, got: %v", run)
	}
}

func TestHistory_LatestRun(t *testing.T) {
	hist := newTestHistory(t)
	ctx := context.Background()

	_, err := hist.RecordRun(ctx, &RunRecord{
		Status:          StatusOK,
		Strategy:        "fake-initial",
		DurationSeconds: 1.0,
	})
	if err != nil {
		t.Fatalf("Failed to record first run: %v", err)
	}

	failedStep := "collectstatic"
	errorMessage := "command failed: exit status 2"
	_, err = hist.RecordRun(ctx, &RunRecord{
		Status:          StatusFailed,
		Strategy:        "fake-initial",
		ExitCode:        2,
		FailedStep:      &failedStep,
		ErrorMessage:    &errorMessage,
		DurationSeconds: 2.0,
	})
	if err != nil {
		t.Fatalf("Failed to record second run: %v", err)
	}

	// Latest should be the second one
	latest, err := hist.LatestRun(ctx)
	if err != nil {
		t.Fatalf("Failed to get latest run: %v", err)
	}

	if latest == nil {
		t.Fatal("Expected latest run to be non-nil")
	}

	if latest.Status != StatusFailed {
		t.Errorf("Expected latest status %q, got %q", StatusFailed, latest.Status)
	}
	if latest.ExitCode != 2 {
		t.Errorf("Expected exit code 2, got %d", latest.ExitCode)
	}
	if latest.FailedStep == nil {
		t.Error("Expected failed step to be non-nil")
	} else if *latest.FailedStep != "collectstatic" {
		t.Errorf("Expected failed step 'collectstatic', got %q", *latest.FailedStep)
	}
	if latest.ErrorMessage == nil {
		t.Error("Expected error message to be non-nil")
	} else if *latest.ErrorMessage != "command failed: exit status 2" {
		t.Errorf("Unexpected error message: %q", *latest.ErrorMessage)
	}
	if latest.CommitSHA != nil {
		t.Errorf("Expected nil commit SHA, got %q", *latest.CommitSHA)
	}
}

func TestHistory_LatestRun_NoRecords(t *testing.T) {
	hist := newTestHistory(t)

	latest, err := hist.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("Expected no error for empty ledger, got: %v", err)
	}

	if latest != nil {
		t.Errorf("Expected nil for empty ledger, got: %v", latest)
	}
}

func TestHistory_ListRuns(t *testing.T) {
	hist := newTestHistory(t)
	ctx := context.Background()

	// IDs are monotonic, so ordering is deterministic without delays
	for i := 0; i < 5; i++ {
		_, err := hist.RecordRun(ctx, &RunRecord{
			Status:          StatusOK,
			Strategy:        "none",
			DurationSeconds: float64(i),
		})
		if err != nil {
			t.Fatalf("Failed to record run %d: %v", i, err)
		}
	}

	runs, err := hist.ListRuns(ctx, 3)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}

	if len(runs) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(runs))
	}

	// Should be in descending order (most recent first)
	if runs[0].DurationSeconds != 4.0 {
		t.Errorf("Expected first record duration 4.0, got %f", runs[0].DurationSeconds)
	}
	if runs[0].ID <= runs[1].ID || runs[1].ID <= runs[2].ID {
		t.Errorf("Expected descending IDs, got %d, %d, %d", runs[0].ID, runs[1].ID, runs[2].ID)
	}
}

func TestHistory_ListRuns_DefaultLimit(t *testing.T) {
	hist := newTestHistory(t)
	ctx := context.Background()

	for i := 0; i < DefaultLimit+5; i++ {
		_, err := hist.RecordRun(ctx, &RunRecord{Status: StatusOK, Strategy: "none"})
		if err != nil {
			t.Fatalf("Failed to record run %d: %v", i, err)
		}
	}

	runs, err := hist.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}

	if len(runs) != DefaultLimit {
		t.Errorf("Expected %d records for non-positive limit, got %d", DefaultLimit, len(runs))
	}
}

func TestHistory_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	hist, err := NewHistory(dbPath)
	if err != nil {
		t.Fatalf("Failed to create history: %v", err)
	}

	id, err := hist.RecordRun(ctx, &RunRecord{
		Status:          StatusCanceled,
		Strategy:        "fake",
		ExitCode:        1,
		DurationSeconds: 0.1,
		Steps:           []StepRecord{{Label: "install", Status: "skipped"}},
	})
	if err != nil {
		t.Fatalf("Failed to record run: %v", err)
	}
	if err := hist.Close(); err != nil {
		t.Fatalf("Failed to close history: %v", err)
	}

	// Records survive process restarts
	reopened, err := NewHistory(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen history: %v", err)
	}
	defer reopened.Close()

	run, err := reopened.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("Failed to get run after reopen: %v", err)
	}
	if run == nil {
		t.Fatal("Expected recorded run to survive reopen")
	}
	if run.Status != StatusCanceled {
		t.Errorf("Expected status %q, got %q", StatusCanceled, run.Status)
	}
	if len(run.Steps) != 1 {
		t.Errorf("Expected 1 step, got %d", len(run.Steps))
	}
}
