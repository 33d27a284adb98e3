// Package pipeline models a build run as an ordered list of steps and
// executes them with fail-fast semantics. A step failure either aborts
// the run (fatal policy) or is logged and tolerated (tolerant policy);
// the run succeeds only when every fatal step exits zero.
package pipeline

import "time"

// Policy decides what a step failure does to the run.
type Policy int

const (
	// Fatal aborts the run on failure. Remaining steps are skipped and
	// the failing step's exit code becomes the run's exit code.
	Fatal Policy = iota

	// Tolerant logs the failure and lets the run continue. Used for
	// migration state resets, which fail harmlessly on a first
	// deployment where no state exists yet.
	Tolerant
)

func (p Policy) String() string {
	if p == Tolerant {
		return "tolerant"
	}
	return "fatal"
}

// Step is one command in a build run.
type Step struct {
	// Label identifies the step in console output, logs and history.
	Label string

	// Command is the argv to execute. No shell is involved.
	Command []string

	// Policy decides whether a failure aborts the run.
	Policy Policy

	// Env contains extra environment entries for the child process,
	// in "KEY=value" form.
	Env []string
}

// StepStatus describes how a step ended.
type StepStatus string

const (
	// StatusOK means the step exited zero.
	StatusOK StepStatus = "ok"

	// StatusFailed means a fatal step failed and aborted the run.
	StatusFailed StepStatus = "failed"

	// StatusTolerated means a tolerant step failed and the run continued.
	StatusTolerated StepStatus = "tolerated"

	// StatusSkipped means the step never ran because an earlier fatal
	// step aborted the run.
	StatusSkipped StepStatus = "skipped"
)

// StepResult records one step's outcome.
type StepResult struct {
	Label    string
	Policy   Policy
	Status   StepStatus
	ExitCode int
	Duration time.Duration
	Output   []byte
}

// Result is the outcome of a full run.
type Result struct {
	// Steps holds one result per planned step, in order. Skipped steps
	// are included so the record shows what never ran.
	Steps []StepResult

	// ExitCode is 0 on success, otherwise the failing fatal step's
	// exit code (normalized to 1 when the child never produced one).
	ExitCode int

	// Failed is the label of the fatal step that aborted the run,
	// empty on success or cancellation.
	Failed string

	// Canceled is set when the run stopped because its context ended.
	Canceled bool

	Started  time.Time
	Duration time.Duration
}

// OK reports whether every fatal step succeeded.
func (r *Result) OK() bool {
	return r.ExitCode == 0
}

// Attempted counts the steps that actually ran.
func (r *Result) Attempted() int {
	n := 0
	for _, s := range r.Steps {
		if s.Status != StatusSkipped {
			n++
		}
	}
	return n
}
