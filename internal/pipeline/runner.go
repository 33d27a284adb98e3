package pipeline

import (
	"context"
	"io"
	"log/slog"
	"time"

	"slipway/pkg/cmdutil"
)

// ExecFunc runs a single step's command and reports its outcome. Tests
// substitute this to script step outcomes without spawning processes.
type ExecFunc func(ctx context.Context, step Step) (*cmdutil.Result, error)

// Runner executes steps strictly in order, aborting at the first fatal
// failure and tolerating failures only where the step's policy says so.
type Runner struct {
	// Dir is the working directory for every step.
	Dir string

	// Timeout bounds each individual step. Zero means no bound.
	Timeout time.Duration

	// Logger receives structured step events. Defaults to slog.Default().
	Logger *slog.Logger

	// Console receives phase markers. Defaults to a discard console.
	Console *Console

	// Verbose streams child output to the console as it is produced,
	// in addition to capturing it in the step result.
	Verbose bool

	// Exec runs one step. Defaults to real command execution.
	Exec ExecFunc
}

// Run executes the steps and returns the full record. The returned
// result is never nil; its ExitCode is what the process should exit
// with.
func (r *Runner) Run(ctx context.Context, steps []Step) *Result {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	console := r.Console
	if console == nil {
		console = NewConsole(io.Discard)
	}
	exec := r.Exec
	if exec == nil {
		exec = r.execStep
	}

	result := &Result{Started: time.Now()}
	aborted := false

	for _, step := range steps {
		if aborted {
			result.Steps = append(result.Steps, StepResult{Label: step.Label, Policy: step.Policy, Status: StatusSkipped})
			continue
		}

		select {
		case <-ctx.Done():
			logger.Warn("Build canceled before step", "step", step.Label)
			result.Canceled = true
			result.ExitCode = 1
			aborted = true
			result.Steps = append(result.Steps, StepResult{Label: step.Label, Policy: step.Policy, Status: StatusSkipped})
			continue
		default:
		}

		command := cmdutil.FormatCommand(step.Command)
		console.Phase(step.Label, command)
		logger.Info("Running step", "step", step.Label, "command", command, "policy", step.Policy.String())

		res, err := exec(ctx, step)

		sr := StepResult{Label: step.Label, Policy: step.Policy, ExitCode: -1}
		if res != nil {
			sr.ExitCode = res.ExitCode
			sr.Duration = res.Duration
			sr.Output = res.Output
		}

		switch {
		case err == nil && sr.ExitCode == 0:
			sr.Status = StatusOK
			console.OK(step.Label, sr.Duration)
			logger.Info("Step completed", "step", step.Label, "duration", sr.Duration)

		case step.Policy == Tolerant:
			sr.Status = StatusTolerated
			console.Warn(step.Label, sr.ExitCode)
			logger.Warn("Step failed, continuing",
				"step", step.Label, "exit_code", sr.ExitCode, "error", errString(err))

		default:
			sr.Status = StatusFailed
			console.Fail(step.Label, sr.ExitCode)
			if !r.Verbose {
				console.Output(sr.Output)
			}
			logger.Error("Step failed, aborting build",
				"step", step.Label, "exit_code", sr.ExitCode, "error", errString(err))
			result.Failed = step.Label
			result.ExitCode = normalizeExit(sr.ExitCode)
			if ctx.Err() != nil {
				result.Canceled = true
			}
			aborted = true
		}

		result.Steps = append(result.Steps, sr)
	}

	result.Duration = time.Since(result.Started)
	console.Summary(result)
	if result.OK() {
		logger.Info("Build completed", "steps", result.Attempted(), "duration", result.Duration)
	} else {
		logger.Error("Build failed",
			"failed_step", result.Failed, "exit_code", result.ExitCode, "duration", result.Duration)
	}
	return result
}

// execStep runs the command for real.
func (r *Runner) execStep(ctx context.Context, step Step) (*cmdutil.Result, error) {
	opts := cmdutil.ExecOptions{
		Dir:     r.Dir,
		Timeout: r.Timeout,
		Env:     step.Env,
	}
	if r.Verbose && r.Console != nil {
		opts.Tee = r.Console.out
	}
	return cmdutil.Run(ctx, opts, step.Command)
}

// normalizeExit maps exit codes a child cannot meaningfully report
// (never ran, or killed before exiting) to a generic failure code.
func normalizeExit(code int) int {
	if code <= 0 {
		return 1
	}
	return code
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
