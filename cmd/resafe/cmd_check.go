package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KromDaniel/resafe/pkg/resafe"
)

// checkEntry is one line of `resafe check --json` output.
type checkEntry struct {
	Pattern string         `json:"pattern"`
	Result  *resafe.Result `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var (
		patterns arrayFlags
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "check [pattern...]",
		Short: "Check patterns given as arguments",
		Long: `Check one or more patterns passed as arguments or with -p.

Examples:
  resafe check '(a+)+'
  resafe check -p '^[a-z]+$' -p '(x|x)*' --json
  resafe check --threshold 2.5 'v\d+(\.\d+)*'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			all := append(append([]string{}, args...), patterns...)
			if len(all) == 0 {
				return errors.New("no patterns given")
			}
			return runCheck(opts, all, jsonOut)
		},
	}

	cmd.Flags().VarP(&patterns, "pattern", "p", "Pattern to check (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print results as JSON")
	return cmd
}

func runCheck(opts *rootOptions, patterns []string, jsonOut bool) error {
	logger := opts.logger()
	entries := make([]checkEntry, 0, len(patterns))
	var unsafe, failed int

	for _, p := range patterns {
		res, err := resafe.Check(p, resafe.Options{
			Threshold: opts.threshold,
			Silent:    jsonOut,
			Logger:    logger,
		})

		entry := checkEntry{Pattern: p, Result: res}
		if err != nil {
			entry.Error = err.Error()
			failed++
		} else if !res.Safe {
			unsafe++
		}
		entries = append(entries, entry)
	}

	if jsonOut {
		if err := opts.writeJSON(entries); err != nil {
			return err
		}
	} else {
		for _, e := range entries {
			printEntry(opts, e)
		}
	}

	switch {
	case failed > 0:
		return fmt.Errorf("%w: %d of %d", errFailed, failed, len(patterns))
	case unsafe > 0:
		return errUnsafeFound
	}
	return nil
}

func printEntry(opts *rootOptions, e checkEntry) {
	if e.Result == nil {
		fmt.Fprintf(opts.stdout, "%-8s %8s  %s\n", "invalid", "-", e.Pattern)
		return
	}
	fmt.Fprintf(opts.stdout, "%-8s %8.4f  %s\n", e.Result.Status, e.Result.Radius, e.Pattern)
}
