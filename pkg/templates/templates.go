// Package templates holds the project files slipway can generate: a
// commented starter configuration and a reference sheet of the
// environment variables the tool honors. Rendering is plain
// {{PLACEHOLDER}} substitution.
package templates

import (
	"fmt"
	"strings"
)

// Template names
const (
	StarterConfig = "starter-config"
	EnvReference  = "env-reference"
)

// TemplateData holds variables for template rendering.
type TemplateData map[string]string

var registry = map[string]string{
	StarterConfig: starterConfigTemplate,
	EnvReference:  envReferenceTemplate,
}

// GetTemplate returns the raw template content by name.
func GetTemplate(name string) (string, error) {
	content, ok := registry[name]
	if !ok {
		return "", fmt.Errorf("unknown template: %s", name)
	}
	return content, nil
}

// Render renders a template with the given data.
// Uses {{PLACEHOLDER}} syntax for variable substitution.
//
// Example:
//
//	data := TemplateData{
//	    "PROJECT_DIR": ".",
//	    "STRATEGY": "fake-initial",
//	}
//	rendered, err := Render(StarterConfig, data)
func Render(templateName string, data TemplateData) (string, error) {
	content, err := GetTemplate(templateName)
	if err != nil {
		return "", err
	}

	for key, value := range data {
		placeholder := fmt.Sprintf("{{%s}}", key)
		content = strings.ReplaceAll(content, placeholder, value)
	}

	return content, nil
}

// RenderStarterConfig renders the starter configuration file.
func RenderStarterConfig(projectDir, strategy string) (string, error) {
	return Render(StarterConfig, TemplateData{
		"PROJECT_DIR": projectDir,
		"STRATEGY":    strategy,
	})
}

// RenderEnvReference renders the environment variable reference.
func RenderEnvReference() (string, error) {
	return Render(EnvReference, nil)
}

// ListTemplates returns a list of all available template names.
func ListTemplates() []string {
	return []string{
		StarterConfig,
		EnvReference,
	}
}

// ValidateTemplate checks if a template name is valid.
func ValidateTemplate(name string) bool {
	_, ok := registry[name]
	return ok
}

const starterConfigTemplate = `# slipway build configuration.
# Every field is optional; the defaults match a conventional Django
# layout, so a project can run with no config file at all.

project:
  # Directory holding manage.py and requirements.txt.
  dir: {{PROJECT_DIR}}
  python: python3
  manage_path: manage.py
  requirements: requirements.txt
  # Per-step timeout. Dependency installs on cold caches are the
  # slowest step in practice.
  step_timeout_seconds: 900
  # Extra environment entries for every step's child process.
  # env:
  #   DJANGO_SETTINGS_MODULE: config.settings

install:
  # Install dependencies from the requirements manifest. Disable when
  # the platform installs them before invoking the build.
  enabled: true

static:
  # Collect static assets. Disable for API-only projects.
  enabled: true

migrate:
  # Migration repair strategy: none | reset | fake | fake-reset | fake-initial
  #   none          migrate only
  #   reset         clear the app's recorded migration state first
  #   fake          mark all migrations applied without running them
  #   fake-reset    reset, then fake
  #   fake-initial  apply migrations, skipping initial ones whose
  #                 tables already exist (safest on existing databases)
  strategy: {{STRATEGY}}
  # App whose migration state the reset strategies clear.
  app: providers

seed:
  # Ensure the admin account exists after migrations.
  enabled: true
  command: createsuperadmin
  # The password travels via SLIPWAY_SUPERUSER_PASSWORD, never here.
  email: ""
  name: ""

providers:
  # Load reference data after seeding.
  enabled: true
  command: load_provider_data

history:
  # Record every run in a local ledger, served by 'slipway serve'.
  enabled: true
  path: slipway.db

lock:
  # Refuse to start while another build holds the lock file.
  enabled: true

log:
  level: info
  format: text
  # Optional file receiving a copy of the log stream.
  file: ""

notify:
  # Publish a commit status per run; requires SLIPWAY_GITHUB_TOKEN.
  enabled: false
  repo: ""
  context: slipway/build

# Custom steps appended after the built-in sequence. A failing step
# aborts the build unless marked tolerant.
# extra_steps:
#   - label: smoke-test
#     command: python3 -m pytest tests/smoke
#   - label: warm-cache
#     command: ["python3", "manage.py", "warm_cache"]
#     tolerant: true
`

const envReferenceTemplate = `# Environment variables honored by slipway.
# Set these in the deployment platform's environment settings; each
# overrides the corresponding config file field.

# Config file location (default: auto-discovered).
#SLIPWAY_CONFIG=slipway.yaml

# Migration repair strategy: none | reset | fake | fake-reset | fake-initial
#SLIPWAY_MIGRATE_STRATEGY=fake-initial

# App whose migration state the reset strategies clear.
#SLIPWAY_MIGRATE_APP=providers

# Admin account created by the seed step. The password is forwarded to
# the seed command's environment and never appears on a command line.
#SLIPWAY_SUPERUSER_EMAIL=admin@example.com
#SLIPWAY_SUPERUSER_NAME=Site Admin
#SLIPWAY_SUPERUSER_PASSWORD=

# Run ledger location.
#SLIPWAY_DB_PATH=slipway.db

# Logging.
#SLIPWAY_LOG_LEVEL=info
#SLIPWAY_LOG_FORMAT=text
#SLIPWAY_LOG_FILE=

# Status API ('slipway serve').
#SLIPWAY_HOST=127.0.0.1
#SLIPWAY_PORT=5000

# Commit status notification. The commit SHA is taken from
# SLIPWAY_COMMIT_SHA, GITHUB_SHA or RENDER_GIT_COMMIT, in that order.
#SLIPWAY_GITHUB_TOKEN=
#SLIPWAY_COMMIT_SHA=
`
