package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/KromDaniel/resafe/internal/diag"
)

// Exit codes
const (
	ExitSafe   = 0
	ExitUnsafe = 1
	ExitError  = 2
)

var (
	errUnsafeFound = errors.New("unsafe patterns found")
	errFailed      = errors.New("some patterns could not be checked")
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	threshold float64
	verbose   bool
	noColor   bool

	stdout io.Writer
	stderr io.Writer
}

func (o *rootOptions) logger() *diag.Logger {
	opts := []diag.Option{diag.WithVerbose(o.verbose)}
	if o.noColor {
		opts = append(opts, diag.WithColor(false))
	}
	return diag.New(o.stderr, opts...)
}

func (o *rootOptions) writeJSON(v any) error {
	enc := json.NewEncoder(o.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "resafe",
		Short: "Detect regular expressions prone to catastrophic backtracking",
		Long: `resafe compiles each pattern into a nondeterministic automaton and
estimates the spectral radius of its transition-count matrix. Patterns whose
radius exceeds the threshold are reported as unsafe.

Exit Codes:
  0 = All patterns are safe
  1 = At least one pattern is unsafe
  2 = Error (invalid pattern, unreadable config, failed analysis)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().Float64Var(&opts.threshold, "threshold", 0,
		"Largest spectral radius considered safe (0 selects the default)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Print the analysis trace for every pattern")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false,
		"Disable colored diagnostics")

	root.AddCommand(
		newCheckCmd(opts),
		newScanCmd(opts),
		newGenCmd(opts),
	)
	return root
}

// execute runs the CLI and maps the outcome to an exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return ExitSafe
	case errors.Is(err, errUnsafeFound):
		return ExitUnsafe
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}
}
