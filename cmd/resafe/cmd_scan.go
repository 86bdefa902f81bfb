package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KromDaniel/resafe/internal/config"
	"github.com/KromDaniel/resafe/internal/diag"
	"github.com/KromDaniel/resafe/internal/metrics"
	"github.com/KromDaniel/resafe/internal/scan"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	var (
		configPath string
		jsonOut    bool
		metricsOut string
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Check every pattern listed in a config file",
		Long: `Check the patterns of a YAML config concurrently.

Examples:
  resafe scan -c resafe.yaml
  resafe scan -c resafe.yaml --json --metrics-out /var/lib/node_exporter/resafe.prom
  resafe scan -c resafe.yaml --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			override := cmd.Flags().Changed("threshold")
			scanOnce := func(cfg *config.Config) error {
				if override {
					cfg.Threshold = opts.threshold
				}
				return runScan(cmd.Context(), opts, cfg, jsonOut, metricsOut)
			}

			if watch {
				return watchScan(cmd.Context(), opts, configPath, scanOnce)
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return scanOnce(cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "resafe.yaml", "Path to the YAML config")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the report as JSON")
	cmd.Flags().StringVar(&metricsOut, "metrics-out", "", "Write Prometheus textfile metrics to this path")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Rescan whenever the config file changes")
	return cmd
}

func runScan(ctx context.Context, opts *rootOptions, cfg *config.Config, jsonOut bool, metricsOut string) error {
	logger := opts.logger()

	scanner := &scan.Scanner{
		Concurrency: cfg.Concurrency,
		Threshold:   cfg.Threshold,
		Logger:      logger,
	}
	if metricsOut != "" {
		scanner.Metrics = metrics.NewCollector()
	}

	report, err := scanner.Run(ctx, cfg.Patterns)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if jsonOut {
		if err := opts.writeJSON(report); err != nil {
			return err
		}
	} else {
		printReport(opts, logger, report)
	}

	if scanner.Metrics != nil {
		if err := scanner.Metrics.WriteTextfile(metricsOut); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	if n := len(report.Failed()); n > 0 {
		return fmt.Errorf("%w: %d of %d", errFailed, n, len(report.Findings))
	}
	if len(report.Unsafe()) > 0 {
		return errUnsafeFound
	}
	return nil
}

// watchScan scans once, then again after every change to the config file,
// until ctx is cancelled. Findings never end the loop.
func watchScan(ctx context.Context, opts *rootOptions, path string, scanOnce func(*config.Config) error) error {
	logger := opts.logger()

	w, err := config.NewWatcher(path)
	if err != nil {
		return err
	}

	cfg, err := config.Load(path)
	if err != nil {
		w.Close()
		return err
	}
	reportScanError(logger, scanOnce(cfg))

	err = w.Run(ctx, func(cfg *config.Config, err error) {
		if err != nil {
			logger.Warn("Config reload failed", diag.Details{Lines: []string{err.Error()}})
			return
		}
		logger.Log("config %s changed, rescanning", path)
		reportScanError(logger, scanOnce(cfg))
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func reportScanError(logger *diag.Logger, err error) {
	switch {
	case err == nil, errors.Is(err, errUnsafeFound):
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return
	}
	logger.Error("Scan failed", diag.Details{Lines: []string{err.Error()}})
}

func printReport(opts *rootOptions, logger *diag.Logger, report *scan.Report) {
	for _, f := range report.Findings {
		if f.Verdict == metrics.VerdictRejected {
			fmt.Fprintf(opts.stdout, "%-8s %8s  %-16s %s\n", f.Verdict, "-", f.Name, f.Pattern)
			continue
		}
		fmt.Fprintf(opts.stdout, "%-8s %8.4f  %-16s %s\n", f.Verdict, f.Radius, f.Name, f.Pattern)
	}

	for _, f := range report.Unsafe() {
		logger.Error("Unsafe Regex!", diag.Details{
			Property: &diag.Property{Name: f.Name, Value: "/" + f.Pattern + "/", Emphasis: true},
			Lines: []string{
				fmt.Sprintf("Spectral radius: %v (threshold: %v)", f.Radius, f.Threshold),
				"? Consider simplifying quantifiers",
			},
		})
	}

	fmt.Fprintf(opts.stdout, "\n%d patterns, %d unsafe, %d failed (run %s)\n",
		len(report.Findings), len(report.Unsafe()), len(report.Failed()), report.RunID)
}

