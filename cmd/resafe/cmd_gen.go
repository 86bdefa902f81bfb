package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KromDaniel/resafe/internal/codegen"
	"github.com/KromDaniel/resafe/internal/config"
)

func newGenCmd(opts *rootOptions) *cobra.Command {
	var g codegen.GuardConfig
	var configPath string

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a Go test that guards the configured patterns",
		Long: `Generate a _test.go file that fails once a configured pattern becomes unsafe.

Examples:
  resafe gen -c resafe.yaml -o patterns/resafe_guard_test.go --package patterns`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("threshold") {
				cfg.Threshold = opts.threshold
			}
			g.Config = cfg

			if err := codegen.WriteGuardTest(g); err != nil {
				return err
			}
			opts.logger().Log("generated %d guards in %s", len(cfg.Patterns), g.OutputFile)
			fmt.Fprintf(opts.stdout, "wrote %s\n", g.OutputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "resafe.yaml", "Path to the YAML config")
	cmd.Flags().StringVarP(&g.OutputFile, "output", "o", "resafe_guard_test.go", "Output file")
	cmd.Flags().StringVar(&g.Package, "package", "main", "Package name of the generated file")
	cmd.Flags().StringVar(&g.Name, "name", codegen.DefaultName, "Name of the generated test")
	return cmd
}
