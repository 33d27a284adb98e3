// Package manage builds argv invocations for a Django-style project's
// command surface: pip, collectstatic, migrate and custom management
// commands. Builders return plain argv slices so the caller decides how
// to execute and log them.
package manage

// Tool locates a project's interpreter and manage.py entry point.
type Tool struct {
	// Python is the interpreter to invoke, e.g. "python3" or
	// "./venv/bin/python".
	Python string

	// ManagePath is the path to the project's manage.py.
	ManagePath string
}

func (t Tool) manage(args ...string) []string {
	return append([]string{t.Python, t.ManagePath}, args...)
}

// PipInstall installs dependencies from a requirements manifest.
func (t Tool) PipInstall(requirements string) []string {
	return []string{t.Python, "-m", "pip", "install", "-r", requirements}
}

// CollectStatic gathers static assets without prompting.
func (t Tool) CollectStatic() []string {
	return t.manage("collectstatic", "--noinput")
}

// Migrate applies all pending migrations.
func (t Tool) Migrate() []string {
	return t.manage("migrate", "--noinput")
}

// MigrateZeroFake resets one app's recorded migration state to zero
// without touching the schema. Fails harmlessly when the app has no
// recorded state yet.
func (t Tool) MigrateZeroFake(app string) []string {
	return t.manage("migrate", app, "zero", "--fake", "--noinput")
}

// MigrateFake marks one app's migrations as applied without running them.
func (t Tool) MigrateFake(app string) []string {
	return t.manage("migrate", app, "--fake", "--noinput")
}

// MigrateFakeInitial applies pending migrations, marking initial
// migrations as applied when their tables already exist.
func (t Tool) MigrateFakeInitial() []string {
	return t.manage("migrate", "--fake-initial", "--noinput")
}

// MigrateSyncDB applies migrations and creates tables for apps without
// them. Paired with a fake reset to rebuild a drifted ledger.
func (t Tool) MigrateSyncDB() []string {
	return t.manage("migrate", "--run-syncdb", "--noinput")
}

// Command invokes a custom management command with optional arguments.
func (t Tool) Command(name string, args ...string) []string {
	return t.manage(append([]string{name}, args...)...)
}

// CreateSuperuser invokes the account seeding command. Email and name
// travel as flags; the password is expected to reach the command through
// the environment, never through argv.
func (t Tool) CreateSuperuser(command, email, name string) []string {
	args := []string{command}
	if email != "" {
		args = append(args, "--email", email)
	}
	if name != "" {
		args = append(args, "--name", name)
	}
	return t.manage(args...)
}
