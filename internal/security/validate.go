package security

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Safe patterns for validation
	appLabelPattern    = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	commandNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	envNamePattern     = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// ValidateAppLabel ensures an application label is safe for use as a
// migration target. Labels are interpolated into manage.py invocations,
// so anything beyond a plain identifier is rejected.
func ValidateAppLabel(label string) error {
	if label == "" {
		return fmt.Errorf("app label cannot be empty")
	}
	if !appLabelPattern.MatchString(label) {
		return fmt.Errorf("app label contains invalid characters (only a-z, A-Z, 0-9, _ allowed, must not start with a digit)")
	}
	return nil
}

// ValidateCommandName ensures a management command name is safe to pass
// to manage.py. Command names are module names, so only identifiers are
// accepted.
func ValidateCommandName(name string) error {
	if name == "" {
		return fmt.Errorf("command name cannot be empty")
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("command name cannot start with '-'")
	}
	if !commandNamePattern.MatchString(name) {
		return fmt.Errorf("command name contains invalid characters (only a-z, A-Z, 0-9, _ allowed)")
	}
	return nil
}

// ValidateEnvName ensures a configured environment variable name is a
// plain identifier. Names are spliced into "KEY=value" child entries,
// so '=' or whitespace would corrupt the entry.
func ValidateEnvName(name string) error {
	if name == "" {
		return fmt.Errorf("environment variable name cannot be empty")
	}
	if !envNamePattern.MatchString(name) {
		return fmt.Errorf("environment variable name contains invalid characters (only a-z, A-Z, 0-9, _ allowed)")
	}
	return nil
}

// ValidateArgv checks a parsed command before it is accepted into a build
// plan. Commands run without a shell, so metacharacters would be passed
// to the program as literal text; rejecting them at load time surfaces
// the misconfiguration instead of a confusing child process error.
func ValidateArgv(parts []string) error {
	if len(parts) == 0 {
		return fmt.Errorf("empty command")
	}
	if strings.HasPrefix(parts[0], "-") {
		return fmt.Errorf("command name cannot start with '-': %s", parts[0])
	}
	for i, arg := range parts {
		if containsShellMetachars(arg) {
			return fmt.Errorf("argument %d contains shell metacharacters (commands run without a shell): %s", i, arg)
		}
	}
	return nil
}

// containsShellMetachars checks if a string contains shell metacharacters.
// These only have meaning to a shell, which is never involved here.
func containsShellMetachars(s string) bool {
	dangerous := []string{
		";",  // Command separator
		"|",  // Pipe
		"&",  // Background/AND
		"$",  // Variable expansion
		"`",  // Command substitution
		"\n", // Newline (command separator)
		">",  // Redirect output
		"<",  // Redirect input
	}

	for _, char := range dangerous {
		if strings.Contains(s, char) {
			return true
		}
	}

	return false
}
