package main

import (
	"fmt"

	"slipway/internal/buildcfg"
	"slipway/internal/pipeline"
	"slipway/pkg/cmdutil"

	"github.com/spf13/cobra"
)

var planConfigFile string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the build plan without running it",
	Long: `Print the resolved step list for the current configuration.

Shows each step's label, failure policy and exact command, so the effect
of a strategy or configuration change can be inspected before the next
deployment runs it.

Example:
  slipway plan
  SLIPWAY_MIGRATE_STRATEGY=reset slipway plan`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planConfigFile, "config", "c", getEnvOrDefault(buildcfg.EnvConfig, ""), "Path to slipway.yaml configuration file")
}

func runPlan(cmd *cobra.Command, args []string) error {
	configPath := planConfigFile
	if configPath == "" {
		configPath = buildcfg.Discover()
	}

	cfg, err := buildcfg.Load(configPath)
	if err != nil {
		return err
	}

	steps, err := pipeline.Build(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Build plan: strategy %s, %d steps\n", cfg.Migrate.Strategy, len(steps))
	fmt.Printf("Project dir: %s\n\n", cfg.Project.Dir)

	for i, step := range steps {
		fmt.Printf("%3d. %-22s %-9s %s\n", i+1, step.Label, step.Policy, cmdutil.FormatCommand(step.Command))
	}

	return nil
}
