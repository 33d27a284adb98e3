package pipeline

import (
	"reflect"
	"strings"
	"testing"

	"slipway/internal/buildcfg"
)

func planLabels(steps []Step) []string {
	labels := make([]string, len(steps))
	for i, s := range steps {
		labels[i] = s.Label
	}
	return labels
}

func TestBuild_Strategies(t *testing.T) {
	tests := []struct {
		strategy string
		want     []string
	}{
		{
			buildcfg.StrategyNone,
			[]string{StepInstall, StepCollectStatic, StepMigrate, StepCreateSuperuser, StepLoadSeedData},
		},
		{
			buildcfg.StrategyReset,
			[]string{StepInstall, StepCollectStatic, StepMigrateReset, StepMigrate, StepCreateSuperuser, StepLoadSeedData},
		},
		{
			buildcfg.StrategyFake,
			[]string{StepInstall, StepCollectStatic, StepMigrateFake, StepMigrate, StepCreateSuperuser, StepLoadSeedData},
		},
		{
			buildcfg.StrategyFakeReset,
			[]string{StepInstall, StepCollectStatic, StepMigrateReset, StepMigrate, StepCreateSuperuser, StepLoadSeedData},
		},
		{
			buildcfg.StrategyFakeInitial,
			[]string{StepInstall, StepCollectStatic, StepMigrateFakeInit, StepMigrate, StepCreateSuperuser, StepLoadSeedData},
		},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			cfg := buildcfg.New()
			cfg.Migrate.Strategy = tt.strategy

			steps, err := Build(&cfg)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if got := planLabels(steps); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Build() labels = %v, want %v", got, tt.want)
			}

			// The migration state reset is the only tolerant step.
			for _, s := range steps {
				wantPolicy := Fatal
				if s.Label == StepMigrateReset {
					wantPolicy = Tolerant
				}
				if s.Policy != wantPolicy {
					t.Errorf("step %s policy = %s, want %s", s.Label, s.Policy, wantPolicy)
				}
			}
		})
	}
}

func findStep(t *testing.T, steps []Step, label string) Step {
	t.Helper()
	for _, s := range steps {
		if s.Label == label {
			return s
		}
	}
	t.Fatalf("step %s not in plan", label)
	return Step{}
}

func TestBuild_StrategyCommands(t *testing.T) {
	t.Run("reset targets the configured app", func(t *testing.T) {
		cfg := buildcfg.New()
		cfg.Migrate.App = "accounts"
		cfg.Migrate.Strategy = buildcfg.StrategyReset
		steps, err := Build(&cfg)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		reset := findStep(t, steps, StepMigrateReset)
		want := []string{"python3", "manage.py", "migrate", "accounts", "zero", "--fake", "--noinput"}
		if !reflect.DeepEqual(reset.Command, want) {
			t.Errorf("reset command = %v, want %v", reset.Command, want)
		}
	})

	t.Run("fake-reset migrates with schema sync", func(t *testing.T) {
		cfg := buildcfg.New()
		cfg.Migrate.Strategy = buildcfg.StrategyFakeReset
		steps, err := Build(&cfg)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		migrate := findStep(t, steps, StepMigrate)
		want := []string{"python3", "manage.py", "migrate", "--run-syncdb", "--noinput"}
		if !reflect.DeepEqual(migrate.Command, want) {
			t.Errorf("migrate command = %v, want %v", migrate.Command, want)
		}
	})

	t.Run("fake-initial syncs before the plain migrate", func(t *testing.T) {
		cfg := buildcfg.New()
		cfg.Migrate.Strategy = buildcfg.StrategyFakeInitial
		steps, err := Build(&cfg)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		sync := findStep(t, steps, StepMigrateFakeInit)
		want := []string{"python3", "manage.py", "migrate", "--fake-initial", "--noinput"}
		if !reflect.DeepEqual(sync.Command, want) {
			t.Errorf("fake-initial command = %v, want %v", sync.Command, want)
		}
		migrate := findStep(t, steps, StepMigrate)
		wantPlain := []string{"python3", "manage.py", "migrate", "--noinput"}
		if !reflect.DeepEqual(migrate.Command, wantPlain) {
			t.Errorf("migrate command = %v, want %v", migrate.Command, wantPlain)
		}
	})
}

func TestBuild_DisabledSteps(t *testing.T) {
	t.Run("seed disabled", func(t *testing.T) {
		cfg := buildcfg.New()
		cfg.Seed.Enabled = false
		steps, err := Build(&cfg)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		for _, s := range steps {
			if s.Label == StepCreateSuperuser {
				t.Error("plan contains account seed step with seed disabled")
			}
		}
	})

	t.Run("providers disabled", func(t *testing.T) {
		cfg := buildcfg.New()
		cfg.Providers.Enabled = false
		steps, err := Build(&cfg)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		for _, s := range steps {
			if s.Label == StepLoadSeedData {
				t.Error("plan contains data load step with providers disabled")
			}
		}
	})

	t.Run("install and static disabled", func(t *testing.T) {
		cfg := buildcfg.New()
		cfg.Install.Enabled = false
		cfg.Static.Enabled = false
		steps, err := Build(&cfg)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		want := []string{StepMigrateFakeInit, StepMigrate, StepCreateSuperuser, StepLoadSeedData}
		if got := planLabels(steps); !reflect.DeepEqual(got, want) {
			t.Errorf("Build() labels = %v, want %v", got, want)
		}
	})
}

func TestBuild_ProjectEnv(t *testing.T) {
	cfg := buildcfg.New()
	cfg.Project.Env = map[string]string{
		"PYTHONUNBUFFERED":       "1",
		"DJANGO_SETTINGS_MODULE": "config.settings",
	}
	t.Setenv(buildcfg.EnvSuperuserPassword, "s3cret-pw")

	steps, err := Build(&cfg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	wantBase := []string{"DJANGO_SETTINGS_MODULE=config.settings", "PYTHONUNBUFFERED=1"}
	for _, s := range steps {
		if s.Label == StepCreateSuperuser {
			continue
		}
		if !reflect.DeepEqual(s.Env, wantBase) {
			t.Errorf("step %s env = %v, want %v", s.Label, s.Env, wantBase)
		}
	}

	// The account seed appends the password without mutating the others.
	seed := findStep(t, steps, StepCreateSuperuser)
	wantSeed := append(append([]string(nil), wantBase...), "DJANGO_SUPERUSER_PASSWORD=s3cret-pw")
	if !reflect.DeepEqual(seed.Env, wantSeed) {
		t.Errorf("seed env = %v, want %v", seed.Env, wantSeed)
	}
}

func TestBuild_SuperuserStep(t *testing.T) {
	cfg := buildcfg.New()
	cfg.Seed.Email = "admin@example.com"
	cfg.Seed.Name = "Site Admin"
	t.Setenv(buildcfg.EnvSuperuserPassword, "s3cret-pw")

	steps, err := Build(&cfg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	var seed *Step
	for i := range steps {
		if steps[i].Label == StepCreateSuperuser {
			seed = &steps[i]
			break
		}
	}
	if seed == nil {
		t.Fatal("plan missing account seed step")
	}

	want := []string{"python3", "manage.py", "createsuperadmin", "--email", "admin@example.com", "--name", "Site Admin"}
	if !reflect.DeepEqual(seed.Command, want) {
		t.Errorf("seed command = %v, want %v", seed.Command, want)
	}

	// The password reaches the child only through its environment.
	if !reflect.DeepEqual(seed.Env, []string{"DJANGO_SUPERUSER_PASSWORD=s3cret-pw"}) {
		t.Errorf("seed env = %v, want password entry", seed.Env)
	}
	for _, arg := range seed.Command {
		if strings.Contains(arg, "s3cret-pw") {
			t.Error("password leaked into argv")
		}
	}
}

func TestBuild_ExtraSteps(t *testing.T) {
	cfg := buildcfg.New()
	cfg.Extra = []buildcfg.ExtraStep{
		{Label: "smoke-test", Command: "python3 -m pytest tests/smoke"},
		{Label: "warm-cache", Command: []interface{}{"python3", "manage.py", "warm_cache"}, Tolerant: true},
	}

	steps, err := Build(&cfg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	n := len(steps)
	smoke, warm := steps[n-2], steps[n-1]

	if smoke.Label != "smoke-test" || smoke.Policy != Fatal {
		t.Errorf("smoke step = %+v, want fatal smoke-test", smoke)
	}
	wantSmoke := []string{"python3", "-m", "pytest", "tests/smoke"}
	if !reflect.DeepEqual(smoke.Command, wantSmoke) {
		t.Errorf("smoke command = %v, want %v", smoke.Command, wantSmoke)
	}

	if warm.Label != "warm-cache" || warm.Policy != Tolerant {
		t.Errorf("warm step = %+v, want tolerant warm-cache", warm)
	}
}

func TestBuild_UnknownStrategy(t *testing.T) {
	cfg := buildcfg.New()
	cfg.Migrate.Strategy = "experimental"

	_, err := Build(&cfg)
	if err == nil || !strings.Contains(err.Error(), "unknown migrate strategy") {
		t.Errorf("Build() error = %v, want unknown strategy error", err)
	}
}
