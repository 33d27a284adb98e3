// Package fileutil holds the small filesystem probes the rest of the
// tool shares: config discovery and existence checks.
package fileutil

import (
	"os"
	"path/filepath"
)

// ConfigSearchDirs are the directories probed for a config file, in
// order: the working directory, its config/ subdirectory, then the
// system-wide location.
var ConfigSearchDirs = []string{".", "config", "/etc/slipway"}

// FindConfigOptional returns the first existing candidate for filename
// among the search directories, or "" when none exists. A missing
// config is not an error; the caller falls back to built-in defaults.
func FindConfigOptional(filename string) string {
	for _, dir := range ConfigSearchDirs {
		candidate := filepath.Join(dir, filename)
		if FileExists(candidate) {
			return candidate
		}
	}
	return ""
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// DirExists reports whether path names an existing directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// PathExists reports whether anything exists at path.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
