package main

import (
	"fmt"
	"os"

	"slipway/internal/buildcfg"
	"slipway/pkg/fileutil"
	"slipway/pkg/templates"

	"github.com/spf13/cobra"
)

var (
	initConfigPath string
	initDir        string
	initStrategy   string
	initEnvRef     bool
	initForce      bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write a commented slipway.yaml listing every setting with its
default value. With --env-reference, also write a sheet of the
environment variables slipway honors, for pasting into the deployment
platform's settings.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initConfigPath, "config", "c", "slipway.yaml", "Path to write the configuration to")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "Project directory to record in the config")
	initCmd.Flags().StringVar(&initStrategy, "strategy", buildcfg.StrategyFakeInitial, "Migration repair strategy to record")
	initCmd.Flags().BoolVar(&initEnvRef, "env-reference", false, "Also write env.reference next to the config")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")
}

func runInit(cmd *cobra.Command, args []string) error {
	switch initStrategy {
	case buildcfg.StrategyNone, buildcfg.StrategyReset, buildcfg.StrategyFake,
		buildcfg.StrategyFakeReset, buildcfg.StrategyFakeInitial:
	default:
		return fmt.Errorf("unknown migrate strategy: %s", initStrategy)
	}

	content, err := templates.RenderStarterConfig(initDir, initStrategy)
	if err != nil {
		return fmt.Errorf("failed to render config template: %w", err)
	}
	if err := writeGenerated(initConfigPath, content, initForce); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", initConfigPath)

	if initEnvRef {
		ref, err := templates.RenderEnvReference()
		if err != nil {
			return fmt.Errorf("failed to render env reference: %w", err)
		}
		if err := writeGenerated("env.reference", ref, initForce); err != nil {
			return err
		}
		fmt.Println("Wrote env.reference")
	}

	return nil
}

// writeGenerated refuses to clobber an existing file unless forced.
func writeGenerated(path, content string, force bool) error {
	if !force && fileutil.PathExists(path) {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
