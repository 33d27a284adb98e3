package buildcfg

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"slipway/internal/security"
	"slipway/pkg/cmdutil"
	"slipway/pkg/fileutil"
)

// Environment variables honored at load time. Each overrides the
// corresponding config file field.
const (
	EnvConfig          = "SLIPWAY_CONFIG"
	EnvMigrateStrategy = "SLIPWAY_MIGRATE_STRATEGY"
	EnvMigrateApp      = "SLIPWAY_MIGRATE_APP"
	EnvSuperuserEmail  = "SLIPWAY_SUPERUSER_EMAIL"
	EnvSuperuserName   = "SLIPWAY_SUPERUSER_NAME"
	EnvDBPath          = "SLIPWAY_DB_PATH"

	// EnvSuperuserPassword is not a config override: its value is
	// forwarded to the seed command's environment at run time.
	EnvSuperuserPassword = "SLIPWAY_SUPERUSER_PASSWORD"
)

// Discover returns the config file to load: the SLIPWAY_CONFIG
// environment variable if set, otherwise the first slipway.yaml or
// slipway.yml found in the standard search locations. Returns empty
// when nothing is found, which Load treats as an all-defaults config.
func Discover() string {
	if path := os.Getenv(EnvConfig); path != "" {
		return path
	}
	if path := fileutil.FindConfigOptional("slipway.yaml"); path != "" {
		return path
	}
	return fileutil.FindConfigOptional("slipway.yml")
}

// Load reads, validates and resolves the configuration. An empty path
// yields the built-in defaults, so a conventional project layout works
// with no config file at all. Environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := New()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := resolveProject(&cfg); err != nil {
		return nil, err
	}

	if err := validateExtraSteps(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv(EnvMigrateStrategy); v != "" {
		c.Migrate.Strategy = v
	}
	if v := os.Getenv(EnvMigrateApp); v != "" {
		c.Migrate.App = v
	}
	if v := os.Getenv(EnvSuperuserEmail); v != "" {
		c.Seed.Email = v
	}
	if v := os.Getenv(EnvSuperuserName); v != "" {
		c.Seed.Name = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.History.Path = v
	}
}

// resolveProject pins the project dir to an absolute path and verifies
// the files the pipeline is about to use actually exist. Failing here
// beats failing three steps into a build.
func resolveProject(c *Config) error {
	dir, err := filepath.Abs(c.Project.Dir)
	if err != nil {
		return fmt.Errorf("failed to resolve project dir '%s': %w", c.Project.Dir, err)
	}
	if !fileutil.DirExists(dir) {
		return fmt.Errorf("project dir does not exist: %s", dir)
	}
	c.Project.Dir = dir

	if err := security.ValidateArgv([]string{c.Project.Python}); err != nil {
		return fmt.Errorf("invalid python interpreter: %w", err)
	}

	for name := range c.Project.Env {
		if err := security.ValidateEnvName(name); err != nil {
			return fmt.Errorf("project env: %w", err)
		}
	}

	if managePath := resolveAgainst(dir, c.Project.ManagePath); !fileutil.FileExists(managePath) {
		return fmt.Errorf("manage script not found: %s", managePath)
	}
	if reqPath := resolveAgainst(dir, c.Project.Requirements); !fileutil.FileExists(reqPath) {
		return fmt.Errorf("requirements manifest not found: %s", reqPath)
	}

	if c.History.Path != ":memory:" && !filepath.IsAbs(c.History.Path) {
		c.History.Path = filepath.Join(dir, c.History.Path)
	}

	return nil
}

func resolveAgainst(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func validateExtraSteps(c *Config) error {
	for i := range c.Extra {
		step := &c.Extra[i]
		argv, err := step.Argv()
		if err != nil {
			return fmt.Errorf("extra_steps[%d] '%s': %w", i, step.Label, err)
		}
		if err := security.ValidateArgv(argv); err != nil {
			return fmt.Errorf("extra_steps[%d] '%s': %w", i, step.Label, err)
		}
	}
	return nil
}

// Argv returns the step's command as argv parts, accepting both the
// quoted-string and list YAML forms.
func (s ExtraStep) Argv() ([]string, error) {
	return cmdutil.ParseCommand(s.Command)
}
