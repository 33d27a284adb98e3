package templates

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestGetTemplate(t *testing.T) {
	tests := []struct {
		name         string
		templateName string
		wantErr      bool
		contains     string
	}{
		{
			"starter config",
			StarterConfig,
			false,
			"migrate:",
		},
		{
			"env reference",
			EnvReference,
			false,
			"SLIPWAY_SUPERUSER_PASSWORD",
		},
		{
			"unknown template",
			"invalid-template",
			true,
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetTemplate(tt.templateName)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetTemplate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !strings.Contains(got, tt.contains) {
				t.Errorf("GetTemplate() should contain %q", tt.contains)
			}
		})
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name         string
		templateName string
		data         TemplateData
		wantContains string
		wantErr      bool
	}{
		{
			"starter config with project dir",
			StarterConfig,
			TemplateData{"PROJECT_DIR": "/srv/backend", "STRATEGY": "reset"},
			"dir: /srv/backend",
			false,
		},
		{
			"starter config with strategy",
			StarterConfig,
			TemplateData{"PROJECT_DIR": ".", "STRATEGY": "fake-reset"},
			"strategy: fake-reset",
			false,
		},
		{
			"unknown template",
			"invalid",
			TemplateData{},
			"",
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.templateName, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("Render() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !strings.Contains(got, tt.wantContains) {
				t.Errorf("Render() should contain %q, got: %s", tt.wantContains, got)
			}
		})
	}
}

func TestRenderStarterConfig(t *testing.T) {
	rendered, err := RenderStarterConfig(".", "fake-initial")
	if err != nil {
		t.Fatalf("RenderStarterConfig() error = %v", err)
	}

	expectations := []string{
		"dir: .",
		"strategy: fake-initial",
		"createsuperadmin",
		"load_provider_data",
	}
	for _, expected := range expectations {
		if !strings.Contains(rendered, expected) {
			t.Errorf("RenderStarterConfig() should contain %q", expected)
		}
	}

	// No placeholder may survive rendering.
	if strings.Contains(rendered, "{{") {
		t.Errorf("RenderStarterConfig() left a placeholder unrendered:\n%s", rendered)
	}

	// The generated file must itself be parseable configuration.
	var doc map[string]interface{}
	if err := yaml.Unmarshal([]byte(rendered), &doc); err != nil {
		t.Fatalf("generated config is not valid YAML: %v", err)
	}
	for _, section := range []string{"project", "install", "static", "migrate", "seed", "providers", "history", "lock", "log", "notify"} {
		if _, ok := doc[section]; !ok {
			t.Errorf("generated config missing section %q", section)
		}
	}
}

func TestRenderEnvReference(t *testing.T) {
	rendered, err := RenderEnvReference()
	if err != nil {
		t.Fatalf("RenderEnvReference() error = %v", err)
	}

	expectations := []string{
		"SLIPWAY_CONFIG",
		"SLIPWAY_MIGRATE_STRATEGY",
		"SLIPWAY_DB_PATH",
		"SLIPWAY_GITHUB_TOKEN",
		"RENDER_GIT_COMMIT",
	}
	for _, expected := range expectations {
		if !strings.Contains(rendered, expected) {
			t.Errorf("RenderEnvReference() should mention %q", expected)
		}
	}

	// Every variable line ships commented out so sourcing the file
	// as-is changes nothing.
	for _, line := range strings.Split(rendered, "\n") {
		if strings.HasPrefix(line, "SLIPWAY_") {
			t.Errorf("uncommented variable line: %q", line)
		}
	}
}

func TestListTemplates(t *testing.T) {
	templates := ListTemplates()

	if len(templates) != 2 {
		t.Errorf("ListTemplates() returned %d templates, want 2", len(templates))
	}

	expectedNames := map[string]bool{
		StarterConfig: false,
		EnvReference:  false,
	}
	for _, name := range templates {
		if _, exists := expectedNames[name]; exists {
			expectedNames[name] = true
		}
	}
	for name, found := range expectedNames {
		if !found {
			t.Errorf("ListTemplates() missing template: %s", name)
		}
	}
}

func TestValidateTemplate(t *testing.T) {
	tests := []struct {
		name         string
		templateName string
		want         bool
	}{
		{"starter config", StarterConfig, true},
		{"env reference", EnvReference, true},
		{"invalid template", "invalid-template", false},
		{"empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateTemplate(tt.templateName)
			if got != tt.want {
				t.Errorf("ValidateTemplate() = %v, want %v", got, tt.want)
			}
		})
	}
}
