package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// Stamped at release time alongside version, via
// -ldflags "-X main.gitCommit=... -X main.buildDate=...".
var (
	gitCommit = "unknown"
	buildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build metadata",
	Long:  `Print the slipway version together with the commit, build date and Go runtime it was built from.`,
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout())
	},
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "slipway %s\n", version)
	fmt.Fprintf(w, "  commit:   %s\n", gitCommit)
	fmt.Fprintf(w, "  built:    %s\n", buildDate)
	fmt.Fprintf(w, "  runtime:  %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
