// Package buildcfg loads and validates the build pipeline configuration.
//
// Configuration is optional: every field has a default tuned for a
// conventional Django-style project layout, so running from a project
// root with no config file at all produces a working pipeline. A YAML
// file overrides defaults; a handful of SLIPWAY_* environment variables
// override the file.
package buildcfg

import (
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"slipway/internal/security"
)

// Migration repair strategies. A strategy decides which state-repair
// steps run between collectstatic and the final migrate.
const (
	// StrategyNone runs a plain migrate with no repair step.
	StrategyNone = "none"

	// StrategyReset resets the target app's recorded migration state to
	// zero before migrating. The reset tolerates failure: on a first
	// deployment there is no state to reset.
	StrategyReset = "reset"

	// StrategyFake marks the target app's migrations as applied without
	// running them, then migrates the rest.
	StrategyFake = "fake"

	// StrategyFakeReset combines a tolerated reset with a migrate that
	// also creates tables for apps without migrations.
	StrategyFakeReset = "fake-reset"

	// StrategyFakeInitial lets the migration tool reconcile the ledger
	// itself, marking initial migrations applied when their tables
	// already exist. This is the default.
	StrategyFakeInitial = "fake-initial"
)

// validate is a global validator instance used to validate struct fields based on tags.
var validate *validator.Validate

// Config holds everything a build run needs.
type Config struct {
	Project   Project     `yaml:"project"`                     // Project locates the code base and its tooling.
	Install   Install     `yaml:"install"`                     // Install configures the dependency install step.
	Static    Static      `yaml:"static"`                      // Static configures the collectstatic step.
	Migrate   Migrate     `yaml:"migrate"`                     // Migrate selects the migration repair strategy.
	Seed      Seed        `yaml:"seed"`                        // Seed configures the superuser account step.
	Providers Providers   `yaml:"providers"`                   // Providers configures the reference data load step.
	Extra     []ExtraStep `yaml:"extra_steps" validate:"dive"` // Extra appends custom steps after the built-in sequence.
	History   History     `yaml:"history"`                     // History configures run recording.
	Lock      Lock        `yaml:"lock"`                        // Lock guards against concurrent builds.
	Log       Log         `yaml:"log"`                         // Log configures logging output.
	Notify    Notify      `yaml:"notify"`                      // Notify configures GitHub commit status reporting.
}

// Project locates the code base and the tooling used to build it.
type Project struct {
	// Dir is the project root. Relative paths resolve against the
	// working directory at load time.
	Dir string `default:"." yaml:"dir"`

	// Python is the interpreter used for every built-in step,
	// e.g. "python3" or "./venv/bin/python".
	Python string `default:"python3" yaml:"python" validate:"required"`

	// ManagePath is the path to manage.py, relative to Dir unless
	// absolute.
	ManagePath string `default:"manage.py" yaml:"manage_path" validate:"required"`

	// Requirements is the dependency manifest installed by the first
	// step, relative to Dir unless absolute.
	Requirements string `default:"requirements.txt" yaml:"requirements" validate:"required"`

	// StepTimeoutSeconds bounds each individual step. Dependency
	// installs on cold caches are the slowest step in practice.
	StepTimeoutSeconds int `default:"900" yaml:"step_timeout_seconds" validate:"gte=1"`

	// Env holds extra environment entries for every step's child
	// process, e.g. DJANGO_SETTINGS_MODULE.
	Env map[string]string `yaml:"env"`
}

// StepTimeout returns the per-step bound as a duration.
func (p Project) StepTimeout() time.Duration {
	return time.Duration(p.StepTimeoutSeconds) * time.Second
}

// Install configures the dependency install step. Disable it when the
// platform installs dependencies before invoking the build.
type Install struct {
	Enabled bool `default:"true" yaml:"enabled"`
}

// Static configures the collectstatic step. Disable it for API-only
// projects with no static files configured.
type Static struct {
	Enabled bool `default:"true" yaml:"enabled"`
}

// Migrate selects how drifted migration state is repaired before the
// main migrate runs.
type Migrate struct {
	// Strategy is one of none, reset, fake, fake-reset, fake-initial.
	Strategy string `default:"fake-initial" yaml:"strategy" validate:"oneof=none reset fake fake-reset fake-initial"`

	// App is the application label targeted by reset and fake repairs.
	App string `default:"providers" yaml:"app" validate:"applabel"`
}

// Seed configures the superuser account step. The account command is
// expected to be idempotent: seeding an existing account must succeed.
type Seed struct {
	Enabled bool `default:"true" yaml:"enabled"`

	// Command is the management command that creates the account. The
	// password never appears on the command line; it is forwarded to
	// the child as DJANGO_SUPERUSER_PASSWORD from
	// SLIPWAY_SUPERUSER_PASSWORD.
	Command string `default:"createsuperadmin" yaml:"command" validate:"mgmtcommand"`

	// Email and Name are passed as --email and --name flags when set.
	Email string `yaml:"email" validate:"omitempty,email"`
	Name  string `yaml:"name"`
}

// Providers configures the reference data load step.
type Providers struct {
	Enabled bool   `default:"true" yaml:"enabled"`
	Command string `default:"load_provider_data" yaml:"command" validate:"mgmtcommand"`
}

// ExtraStep is a custom step appended after the built-in sequence.
type ExtraStep struct {
	// Label identifies the step in logs and history.
	Label string `yaml:"label" validate:"required"`

	// Command is either a shell-quoted string or a list of argv parts.
	// It runs without a shell either way.
	Command interface{} `yaml:"command" validate:"required"`

	// Tolerant steps log their failure and let the run continue.
	Tolerant bool `yaml:"tolerant"`
}

// History configures the run ledger.
type History struct {
	Enabled bool `default:"true" yaml:"enabled"`

	// Path is the SQLite database file, relative to the project dir
	// unless absolute.
	Path string `default:"slipway.db" yaml:"path"`
}

// Lock guards against two builds running concurrently in the same
// project directory. Overlapping builds against a shared database are
// the drift hazard the repair strategies exist for, so this is on by
// default.
type Lock struct {
	Enabled bool `default:"true" yaml:"enabled"`
}

// Log configures logging output.
type Log struct {
	// Level sets the logging verbosity: debug, info, warn or error.
	Level string `default:"info" yaml:"level" validate:"oneof=debug info warn error"`

	// Format sets the output format: "text" or "json".
	Format string `default:"text" yaml:"format" validate:"oneof=text json"`

	// File, if set, receives a copy of all log output.
	File string `yaml:"file"`
}

// Notify configures GitHub commit status reporting. Disabled unless a
// repository is configured; the token comes from SLIPWAY_GITHUB_TOKEN.
type Notify struct {
	Enabled bool `default:"false" yaml:"enabled"`

	// Repo is the "owner/name" repository that receives the status.
	Repo string `yaml:"repo" validate:"required_if=Enabled true"`

	// Context labels the status check on the commit.
	Context string `default:"slipway/build" yaml:"context"`
}

// New returns a Config with default parameters set.
func New() (c Config) {
	defaults.MustSet(&c)
	return
}

// Validate checks the Config against the rules defined in struct tags
// and the custom validators.
func (c Config) Validate() error {
	if validate == nil {
		validate = validator.New()
		_ = validate.RegisterValidation("applabel", validAppLabel)
		_ = validate.RegisterValidation("mgmtcommand", validCommandName)
	}
	return validate.Struct(c)
}

func validAppLabel(fl validator.FieldLevel) bool {
	return security.ValidateAppLabel(fl.Field().String()) == nil
}

func validCommandName(fl validator.FieldLevel) bool {
	return security.ValidateCommandName(fl.Field().String()) == nil
}
