package pipeline

import (
	"fmt"
	"os"
	"sort"

	"slipway/internal/buildcfg"
	"slipway/internal/manage"
)

// Built-in step labels, in the order they can appear in a plan.
const (
	StepInstall         = "install"
	StepCollectStatic   = "collectstatic"
	StepMigrateReset    = "migrate-reset"
	StepMigrateFake     = "migrate-fake"
	StepMigrateFakeInit = "migrate-fake-initial"
	StepMigrate         = "migrate"
	StepCreateSuperuser = "create-superuser"
	StepLoadSeedData    = "load-seed-data"
)

// Build returns the ordered step list for a config: install and
// collectstatic, the migration sequence the strategy selects, the
// account seed, the reference data load, then any extra steps. Only
// the migration state reset is tolerant; everything else is fatal.
func Build(cfg *buildcfg.Config) ([]Step, error) {
	tool := manage.Tool{
		Python:     cfg.Project.Python,
		ManagePath: cfg.Project.ManagePath,
	}
	baseEnv := projectEnv(cfg.Project.Env)

	var steps []Step
	if cfg.Install.Enabled {
		steps = append(steps, Step{Label: StepInstall, Command: tool.PipInstall(cfg.Project.Requirements), Policy: Fatal, Env: baseEnv})
	}
	if cfg.Static.Enabled {
		steps = append(steps, Step{Label: StepCollectStatic, Command: tool.CollectStatic(), Policy: Fatal, Env: baseEnv})
	}

	migration, err := migrationSteps(tool, cfg.Migrate)
	if err != nil {
		return nil, err
	}
	for i := range migration {
		migration[i].Env = baseEnv
	}
	steps = append(steps, migration...)

	if cfg.Seed.Enabled {
		step := Step{
			Label:   StepCreateSuperuser,
			Command: tool.CreateSuperuser(cfg.Seed.Command, cfg.Seed.Email, cfg.Seed.Name),
			Policy:  Fatal,
			Env:     baseEnv,
		}
		if password := os.Getenv(buildcfg.EnvSuperuserPassword); password != "" {
			env := append([]string(nil), baseEnv...)
			step.Env = append(env, "DJANGO_SUPERUSER_PASSWORD="+password)
		}
		steps = append(steps, step)
	}

	if cfg.Providers.Enabled {
		steps = append(steps, Step{
			Label:   StepLoadSeedData,
			Command: tool.Command(cfg.Providers.Command),
			Policy:  Fatal,
			Env:     baseEnv,
		})
	}

	for i := range cfg.Extra {
		extra := &cfg.Extra[i]
		argv, err := extra.Argv()
		if err != nil {
			return nil, fmt.Errorf("extra step '%s': %w", extra.Label, err)
		}
		policy := Fatal
		if extra.Tolerant {
			policy = Tolerant
		}
		steps = append(steps, Step{Label: extra.Label, Command: argv, Policy: policy, Env: baseEnv})
	}

	return steps, nil
}

// projectEnv flattens the configured env map into sorted KEY=value
// entries so plans come out identical across runs.
func projectEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	entries := make([]string, 0, len(env))
	for name, value := range env {
		entries = append(entries, name+"="+value)
	}
	sort.Strings(entries)
	return entries
}

// migrationSteps expands a repair strategy into its step sequence.
func migrationSteps(tool manage.Tool, cfg buildcfg.Migrate) ([]Step, error) {
	switch cfg.Strategy {
	case buildcfg.StrategyNone:
		return []Step{
			{Label: StepMigrate, Command: tool.Migrate(), Policy: Fatal},
		}, nil

	case buildcfg.StrategyReset:
		return []Step{
			{Label: StepMigrateReset, Command: tool.MigrateZeroFake(cfg.App), Policy: Tolerant},
			{Label: StepMigrate, Command: tool.Migrate(), Policy: Fatal},
		}, nil

	case buildcfg.StrategyFake:
		return []Step{
			{Label: StepMigrateFake, Command: tool.MigrateFake(cfg.App), Policy: Fatal},
			{Label: StepMigrate, Command: tool.Migrate(), Policy: Fatal},
		}, nil

	case buildcfg.StrategyFakeReset:
		return []Step{
			{Label: StepMigrateReset, Command: tool.MigrateZeroFake(cfg.App), Policy: Tolerant},
			{Label: StepMigrate, Command: tool.MigrateSyncDB(), Policy: Fatal},
		}, nil

	case buildcfg.StrategyFakeInitial:
		return []Step{
			{Label: StepMigrateFakeInit, Command: tool.MigrateFakeInitial(), Policy: Fatal},
			{Label: StepMigrate, Command: tool.Migrate(), Policy: Fatal},
		}, nil

	default:
		return nil, fmt.Errorf("unknown migrate strategy: %s", cfg.Strategy)
	}
}
