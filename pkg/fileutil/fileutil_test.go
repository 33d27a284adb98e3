package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x\n"), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestFindConfigOptional(t *testing.T) {
	t.Run("working directory wins over config subdirectory", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.Mkdir(filepath.Join(dir, "config"), 0755); err != nil {
			t.Fatalf("Failed to create config dir: %v", err)
		}
		touch(t, filepath.Join(dir, "slipway.yaml"))
		touch(t, filepath.Join(dir, "config", "slipway.yaml"))
		t.Chdir(dir)

		if got := FindConfigOptional("slipway.yaml"); got != "slipway.yaml" {
			t.Errorf("FindConfigOptional() = %q, want slipway.yaml", got)
		}
	})

	t.Run("falls back to config subdirectory", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.Mkdir(filepath.Join(dir, "config"), 0755); err != nil {
			t.Fatalf("Failed to create config dir: %v", err)
		}
		touch(t, filepath.Join(dir, "config", "slipway.yaml"))
		t.Chdir(dir)

		want := filepath.Join("config", "slipway.yaml")
		if got := FindConfigOptional("slipway.yaml"); got != want {
			t.Errorf("FindConfigOptional() = %q, want %q", got, want)
		}
	})

	t.Run("empty when nothing exists", func(t *testing.T) {
		t.Chdir(t.TempDir())
		if got := FindConfigOptional("slipway.yaml"); got != "" {
			t.Errorf("FindConfigOptional() = %q, want empty", got)
		}
	})

	t.Run("a directory with the config's name does not match", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.Mkdir(filepath.Join(dir, "slipway.yaml"), 0755); err != nil {
			t.Fatalf("Failed to create decoy dir: %v", err)
		}
		t.Chdir(dir)

		if got := FindConfigOptional("slipway.yaml"); got != "" {
			t.Errorf("FindConfigOptional() matched a directory: %q", got)
		}
	})
}

func TestExistenceChecks(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "manage.py")
	touch(t, file)
	missing := filepath.Join(dir, "absent")

	if !FileExists(file) {
		t.Error("FileExists() = false for an existing file")
	}
	if FileExists(dir) {
		t.Error("FileExists() = true for a directory")
	}
	if FileExists(missing) {
		t.Error("FileExists() = true for a missing path")
	}

	if !DirExists(dir) {
		t.Error("DirExists() = false for an existing directory")
	}
	if DirExists(file) {
		t.Error("DirExists() = true for a file")
	}

	if !PathExists(file) || !PathExists(dir) {
		t.Error("PathExists() = false for existing paths")
	}
	if PathExists(missing) {
		t.Error("PathExists() = true for a missing path")
	}
}
