package history

import "time"

// Run statuses persisted in the runs table.
const (
	StatusOK       = "ok"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)

// RunRecord represents a single build run in the ledger
type RunRecord struct {
	ID              int64        `json:"id"`
	StartedAt       time.Time    `json:"started_at"`
	Status          string       `json:"status"` // ok, failed, canceled
	Strategy        string       `json:"strategy"`
	ExitCode        int          `json:"exit_code"`
	FailedStep      *string      `json:"failed_step,omitempty"`   // nullable
	CommitSHA       *string      `json:"commit_sha,omitempty"`    // nullable
	ErrorMessage    *string      `json:"error_message,omitempty"` // nullable
	DurationSeconds float64      `json:"duration_seconds"`
	Steps           []StepRecord `json:"steps,omitempty"`
}

// StepRecord represents one step of a recorded run
type StepRecord struct {
	Position        int     `json:"position"`
	Label           string  `json:"label"`
	Policy          string  `json:"policy"` // fatal, tolerant
	Status          string  `json:"status"` // ok, failed, tolerated, skipped
	ExitCode        int     `json:"exit_code"`
	DurationSeconds float64 `json:"duration_seconds"`
	Output          string  `json:"output,omitempty"`
}
