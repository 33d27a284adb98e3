package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"slipway/internal/buildcfg"
	"slipway/internal/history"
	"slipway/internal/notify"
	"slipway/internal/pipeline"
	"slipway/pkg/cmdutil"

	"github.com/spf13/cobra"
)

// Log settings honored from the environment, overriding the config file.
const (
	EnvLogLevel  = "SLIPWAY_LOG_LEVEL"
	EnvLogFormat = "SLIPWAY_LOG_FORMAT"
	EnvLogFile   = "SLIPWAY_LOG_FILE"
)

// ExitError carries a specific process exit code out of a command, so
// a failing step's code survives the trip through cobra.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

var (
	runConfigFile string
	runVerbose    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the build pipeline",
	Long: `Run the build pipeline for the configured project.

The step list is derived from the configuration: dependency install,
collectstatic, migration repair per the configured strategy, migrate,
account seeding and reference data loading, plus any extra steps.

The command exits 0 only when every fatal step succeeded. When a fatal
step fails, its exit code becomes the process exit code and no later
step runs.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runConfigFile, "config", "c", getEnvOrDefault(buildcfg.EnvConfig, ""), "Path to slipway.yaml configuration file")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Stream step output to the console")
}

func runRun(cmd *cobra.Command, args []string) error {
	configPath := runConfigFile
	if configPath == "" {
		configPath = buildcfg.Discover()
	}

	cfg, err := buildcfg.Load(configPath)
	if err != nil {
		return err
	}

	logger, closeLog, err := setupLogging(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer closeLog()

	logger.Info("Starting build",
		"config", displayPath(configPath),
		"project_dir", cfg.Project.Dir,
		"strategy", cfg.Migrate.Strategy)

	steps, err := pipeline.Build(cfg)
	if err != nil {
		return err
	}

	// One build at a time per project directory
	if cfg.Lock.Enabled {
		lock, err := pipeline.Acquire(cfg.Project.Dir)
		if err != nil {
			return err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Warn("Failed to release build lock", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sha := notify.DiscoverSHA()
	notifier := buildNotifier(cfg, logger, sha)
	if notifier != nil {
		if err := notifier.Publish(ctx, sha, notify.StatePending, "build started"); err != nil {
			logger.Warn("Failed to publish commit status", "error", err)
		}
	}

	runner := &pipeline.Runner{
		Dir:     cfg.Project.Dir,
		Timeout: cfg.Project.StepTimeout(),
		Logger:  logger,
		Console: pipeline.NewConsole(os.Stdout),
		Verbose: runVerbose,
	}

	result := runner.Run(ctx, steps)

	// Outcome reporting never changes the run's exit code
	recordRun(cfg, logger, result, sha)
	publishOutcome(notifier, logger, sha, result)

	if !result.OK() {
		return &ExitError{Code: result.ExitCode}
	}
	return nil
}

// setupLogging configures slog from the log config section. Logs go to
// stderr so the step console on stdout stays clean; a configured log
// file receives a copy.
// Returns the logger and a cleanup function that closes the file.
func setupLogging(cfg *buildcfg.Config) (*slog.Logger, func(), error) {
	logPath := getEnvOrDefault(EnvLogFile, cfg.Log.File)

	var w io.Writer = os.Stderr
	closer := func() {}

	if logPath != "" {
		// Create log directory if needed
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		// Open log file with secure permissions
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}

		w = io.MultiWriter(os.Stderr, file)
		closer = func() { file.Close() }
	}

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(getEnvOrDefault(EnvLogLevel, cfg.Log.Level)),
	}

	var handler slog.Handler
	if getEnvOrDefault(EnvLogFormat, cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler), closer, nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildNotifier returns a commit status notifier, or nil when
// notification is disabled or not fully configured.
func buildNotifier(cfg *buildcfg.Config, logger *slog.Logger, sha string) *notify.Notifier {
	if !cfg.Notify.Enabled {
		return nil
	}

	token := os.Getenv(notify.EnvToken)
	if token == "" {
		logger.Warn("Commit status notification enabled but no token set", "env", notify.EnvToken)
		return nil
	}
	if sha == "" {
		logger.Warn("Commit status notification enabled but no commit SHA found")
		return nil
	}

	notifier, err := notify.New(token, cfg.Notify.Repo, cfg.Notify.Context)
	if err != nil {
		logger.Warn("Failed to create notifier", "error", err)
		return nil
	}
	return notifier
}

// recordRun stores the run in the ledger. Failures are logged and never
// alter the run's outcome, so recording uses a fresh context even when
// the run itself was canceled.
func recordRun(cfg *buildcfg.Config, logger *slog.Logger, result *pipeline.Result, sha string) {
	if !cfg.History.Enabled {
		return
	}

	hist, err := history.NewHistory(cfg.History.Path)
	if err != nil {
		logger.Warn("Run ledger unavailable", "error", err, "db", cfg.History.Path)
		return
	}
	defer hist.Close()

	id, err := hist.RecordRun(context.Background(), buildRunRecord(cfg, result, sha))
	if err != nil {
		logger.Warn("Failed to record run", "error", err)
		return
	}
	logger.Info("Run recorded", "run_id", id, "db", cfg.History.Path)
}

// buildRunRecord converts a pipeline result into a ledger record.
func buildRunRecord(cfg *buildcfg.Config, result *pipeline.Result, sha string) *history.RunRecord {
	record := &history.RunRecord{
		StartedAt:       result.Started,
		Status:          history.StatusOK,
		Strategy:        cfg.Migrate.Strategy,
		ExitCode:        result.ExitCode,
		DurationSeconds: result.Duration.Seconds(),
	}

	switch {
	case result.Canceled:
		record.Status = history.StatusCanceled
	case !result.OK():
		record.Status = history.StatusFailed
	}

	if result.Failed != "" {
		failed := result.Failed
		record.FailedStep = &failed
	}
	if sha != "" {
		record.CommitSHA = &sha
	}

	secrets := runSecrets()

	if msg := failureMessage(result); msg != "" {
		msg = string(cmdutil.Redact([]byte(msg), secrets))
		record.ErrorMessage = &msg
	}

	for _, sr := range result.Steps {
		step := history.StepRecord{
			Label:           sr.Label,
			Policy:          sr.Policy.String(),
			Status:          string(sr.Status),
			ExitCode:        sr.ExitCode,
			DurationSeconds: sr.Duration.Seconds(),
		}
		// Keep the ledger lean: persist output only for failed steps
		if sr.Status == pipeline.StatusFailed || sr.Status == pipeline.StatusTolerated {
			step.Output = string(cmdutil.Redact(sr.Output, secrets))
		}
		record.Steps = append(record.Steps, step)
	}

	return record
}

// runSecrets lists values that must never reach the ledger or the logs.
func runSecrets() []string {
	var secrets []string
	if pw := os.Getenv(buildcfg.EnvSuperuserPassword); pw != "" {
		secrets = append(secrets, pw)
	}
	if token := os.Getenv(notify.EnvToken); token != "" {
		secrets = append(secrets, token)
	}
	return secrets
}

// failureMessage extracts a short failure summary from the failed
// step's output. Tracebacks put the real error last, so the tail is
// kept when the output is long.
func failureMessage(result *pipeline.Result) string {
	for _, sr := range result.Steps {
		if sr.Status != pipeline.StatusFailed {
			continue
		}
		msg := strings.TrimSpace(string(sr.Output))
		if msg == "" {
			return fmt.Sprintf("step %s exited with code %d", sr.Label, sr.ExitCode)
		}
		if len(msg) > 500 {
			msg = msg[len(msg)-500:]
		}
		return msg
	}
	return ""
}

// publishOutcome reports the final commit status. Failures are logged
// and never alter the run's outcome.
func publishOutcome(notifier *notify.Notifier, logger *slog.Logger, sha string, result *pipeline.Result) {
	if notifier == nil {
		return
	}

	state := notify.StateSuccess
	description := fmt.Sprintf("build completed in %s", result.Duration.Round(time.Second))
	switch {
	case result.Canceled:
		state = notify.StateError
		description = "build canceled"
	case !result.OK():
		state = notify.StateFailure
		description = fmt.Sprintf("step %s failed with exit code %d", result.Failed, result.ExitCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := notifier.Publish(ctx, sha, state, description); err != nil {
		logger.Warn("Failed to publish commit status", "error", err)
	}
}

func displayPath(path string) string {
	if path == "" {
		return "(defaults)"
	}
	return path
}
