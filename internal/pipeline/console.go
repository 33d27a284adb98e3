package pipeline

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Console renders phase markers for a build run. Colors are enabled
// only when the writer is a terminal.
type Console struct {
	out io.Writer

	colorGreen  string
	colorRed    string
	colorYellow string
	colorReset  string
}

// NewConsole creates a console writing to out.
func NewConsole(out io.Writer) *Console {
	c := &Console{out: out}
	if f, ok := out.(*os.File); ok {
		if stat, err := f.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
			c.colorGreen = "\033[32m"
			c.colorRed = "\033[31m"
			c.colorYellow = "\033[33m"
			c.colorReset = "\033[0m"
		}
	}
	return c
}

// Phase announces a step before it runs. Only attempted steps are
// announced; skipped steps never appear.
func (c *Console) Phase(label, command string) {
	fmt.Fprintf(c.out, "--> %s: %s\n", label, command)
}

// OK marks a step as completed.
func (c *Console) OK(label string, d time.Duration) {
	fmt.Fprintf(c.out, "%-60s%s[OK]%s %s\n", label, c.colorGreen, c.colorReset, d.Round(time.Millisecond))
}

// Warn marks a tolerated failure.
func (c *Console) Warn(label string, code int) {
	fmt.Fprintf(c.out, "%-60s%s[WARN]%s exit %d, continuing\n", label, c.colorYellow, c.colorReset, code)
}

// Fail marks a fatal failure.
func (c *Console) Fail(label string, code int) {
	fmt.Fprintf(c.out, "%-60s%s[FAIL]%s exit %d\n", label, c.colorRed, c.colorReset, code)
}

// Output prints captured child output, ensuring it ends with a newline
// so the summary line stays on its own row.
func (c *Console) Output(output []byte) {
	if len(output) == 0 {
		return
	}
	fmt.Fprintf(c.out, "%s", output)
	if output[len(output)-1] != '\n' {
		fmt.Fprintln(c.out)
	}
}

// Summary prints the final run outcome.
func (c *Console) Summary(result *Result) {
	switch {
	case result.OK():
		fmt.Fprintf(c.out, "%sBuild completed successfully%s in %s (%d steps)\n",
			c.colorGreen, c.colorReset, result.Duration.Round(time.Millisecond), result.Attempted())
	case result.Canceled:
		fmt.Fprintf(c.out, "%sBuild canceled%s after %s\n",
			c.colorYellow, c.colorReset, result.Duration.Round(time.Millisecond))
	default:
		fmt.Fprintf(c.out, "%sBuild failed%s at '%s' (exit %d)\n",
			c.colorRed, c.colorReset, result.Failed, result.ExitCode)
	}
}
