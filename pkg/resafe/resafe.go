// Package resafe detects regular expressions prone to catastrophic
// backtracking without running them. A pattern is compiled into a
// nondeterministic automaton and the spectral radius of its transition-count
// matrix is compared against a threshold.
package resafe

import (
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"regexp/syntax"

	"github.com/KromDaniel/resafe/internal/analyzer"
	"github.com/KromDaniel/resafe/internal/diag"
)

// DefaultThreshold is used when Options.Threshold is zero or negative.
const DefaultThreshold = analyzer.DefaultThreshold

var (
	// ErrEmptyPattern is returned for an empty pattern.
	ErrEmptyPattern = errors.New("resafe: empty regex")

	// ErrInvalidSyntax wraps a regexp/syntax parse error.
	ErrInvalidSyntax = errors.New("resafe: invalid regex syntax")

	// ErrUnsafe is returned by Check when Options.ReturnErr is set and the pattern is unsafe.
	ErrUnsafe = errors.New("resafe: unsafe regex")

	// ErrInvalidOptions wraps every Options.Validate failure.
	ErrInvalidOptions = errors.New("resafe: invalid options")

	// ErrAnalysisFailed is returned when the analysis pipeline could not complete.
	ErrAnalysisFailed = analyzer.ErrAnalysisFailed
)

// Status tags how a Result was produced.
type Status = analyzer.Status

const (
	StatusSafe   = analyzer.StatusSafe
	StatusUnsafe = analyzer.StatusUnsafe
	StatusFailed = analyzer.StatusFailed
)

// Options configures Check.
type Options struct {
	// Threshold is the largest spectral radius still considered safe.
	// Zero or negative selects DefaultThreshold.
	Threshold float64

	// Silent suppresses the unsafe-pattern diagnostic.
	Silent bool

	// ReturnErr makes Check return ErrUnsafe alongside the result for unsafe patterns.
	ReturnErr bool

	// Verbose logs pipeline statistics through Logger.
	Verbose bool

	// Logger receives diagnostics. Nil selects a stderr logger.
	Logger *diag.Logger
}

// Validate checks if the options are valid.
func (o Options) Validate() error {
	if math.IsNaN(o.Threshold) || math.IsInf(o.Threshold, 0) {
		return fmt.Errorf("%w: threshold must be finite, got %v", ErrInvalidOptions, o.Threshold)
	}
	return nil
}

func (o Options) threshold() float64 {
	if o.Threshold <= 0 {
		return DefaultThreshold
	}
	return o.Threshold
}

func (o Options) logger() *diag.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return diag.New(os.Stderr, diag.WithVerbose(o.Verbose))
}

// Result is the verdict for one pattern.
type Result struct {
	Pattern   string  `json:"pattern"`
	Threshold float64 `json:"threshold"`
	Safe      bool    `json:"safe"`

	// Radius is the estimated spectral radius rounded to 4 decimals.
	Radius float64 `json:"radius"`
	Status Status  `json:"status"`
	States int     `json:"states"`
}

var unicodeEscape = regexp.MustCompile(`\\x\{[0-9A-Fa-f]+\}`)

// Check validates pattern with the regexp/syntax parser and analyzes it.
//
// Errors:
//   - ErrEmptyPattern, ErrInvalidSyntax: the pattern was rejected before analysis (nil result).
//   - ErrAnalysisFailed: the pipeline failed; the result has Status StatusFailed.
//   - ErrUnsafe: only with Options.ReturnErr; the result is still returned.
func Check(pattern string, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	log := opts.logger()
	threshold := opts.threshold()

	if pattern == "" {
		log.Warn("Empty regex!", diag.Details{Lines: []string{"? Provide a valid regex."}})
		return nil, ErrEmptyPattern
	}

	if _, err := syntax.Parse(pattern, syntax.Perl); err != nil {
		log.Error("Invalid regex syntax!", diag.Details{Lines: []string{"? " + err.Error()}})
		return nil, fmt.Errorf("%w: %w", ErrInvalidSyntax, err)
	}

	if unicodeEscape.MatchString(pattern) {
		log.Warn("Unicode escape sequences may not be fully supported", diag.Details{
			Property: &diag.Property{Name: "pattern", Value: pattern},
		})
	}

	res, err := analyzer.Analyze(pattern, analyzer.Config{Threshold: threshold})
	result := &Result{
		Pattern:   pattern,
		Threshold: threshold,
		Safe:      res.Safe,
		Radius:    round4(res.Radius),
		Status:    res.Status,
		States:    res.States,
	}

	if log.Verbose() {
		log.Block("Spectral Analysis",
			"Pattern: "+pattern,
			fmt.Sprintf("Automaton states: %d", res.States),
			fmt.Sprintf("Power iterations: %d (converged: %v)", res.Iterations, res.Converged),
			fmt.Sprintf("Spectral radius: %v (threshold: %v)", result.Radius, threshold),
			fmt.Sprintf("Verdict: %s", res.Status),
		)
	}

	if err != nil {
		return result, err
	}

	if !result.Safe {
		if !opts.Silent {
			log.Error("Unsafe Regex!", diag.Details{
				Property: &diag.Property{Name: "regex", Value: "/" + pattern + "/", Emphasis: true},
				Lines: []string{
					fmt.Sprintf("Spectral radius: %v (threshold: %v)", result.Radius, threshold),
					"? Consider simplifying quantifiers",
				},
			})
		}
		if opts.ReturnErr {
			return result, fmt.Errorf("%w (spectral radius %v)", ErrUnsafe, result.Radius)
		}
	}

	return result, nil
}

// CheckRegexp checks the source of a compiled regular expression.
func CheckRegexp(re *regexp.Regexp, opts Options) (*Result, error) {
	if re == nil {
		return nil, ErrEmptyPattern
	}
	return Check(re.String(), opts)
}

// IsSafe reports whether pattern passes validation and analysis at the
// default threshold. No diagnostics are printed.
func IsSafe(pattern string) bool {
	res, err := Check(pattern, Options{Silent: true, Logger: diag.Discard()})
	return err == nil && res.Safe
}

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
