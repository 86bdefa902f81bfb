// Package analyzer classifies regex patterns by the spectral radius of their
// epsilon-free automaton.
package analyzer

import (
	"errors"
	"fmt"
	"math"

	"github.com/KromDaniel/resafe/internal/automaton"
	"github.com/KromDaniel/resafe/internal/spectral"
)

// DefaultThreshold is the radius above which a pattern is considered unsafe.
const DefaultThreshold = 1.0

var (
	// ErrAnalysisFailed wraps any unexpected failure inside the pipeline.
	ErrAnalysisFailed = errors.New("analyzer: analysis failed")

	// ErrInvalidThreshold is returned for NaN, infinite or negative thresholds.
	ErrInvalidThreshold = errors.New("analyzer: threshold must be finite and non-negative")
)

// Status tags how a Result was produced.
type Status int

const (
	// StatusSafe means the pipeline ran and the radius is within the threshold.
	StatusSafe Status = iota
	// StatusUnsafe means the pipeline ran and the radius exceeds the threshold.
	StatusUnsafe
	// StatusFailed means the pipeline did not complete; the verdict is a fallback.
	StatusFailed
)

// String returns "safe", "unsafe" or "failed".
func (s Status) String() string {
	switch s {
	case StatusSafe:
		return "safe"
	case StatusUnsafe:
		return "unsafe"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config holds the classifier settings.
type Config struct {
	Threshold float64
}

// DefaultConfig returns a Config with DefaultThreshold.
func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold}
}

// Validate checks the threshold is usable.
func (c Config) Validate() error {
	if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) || c.Threshold < 0 {
		return fmt.Errorf("threshold %v: %w", c.Threshold, ErrInvalidThreshold)
	}
	return nil
}

// Result is the verdict for one pattern.
type Result struct {
	Safe   bool    `json:"safe"`
	Radius float64 `json:"radius"`
	Status Status  `json:"status"`

	// Pipeline statistics
	States     int  `json:"states"`
	Iterations int  `json:"iterations"`
	Converged  bool `json:"converged"`
}

// estimate is the spectral step of the pipeline.
var estimate = func(m *spectral.Matrix) spectral.Estimation {
	return spectral.Estimate(m)
}

// SwapEstimator replaces the spectral step and returns a function restoring
// the previous one. It lets tests in dependent packages force pipeline
// failures; it is not safe to call while analyses are running.
func SwapEstimator(fn func(*spectral.Matrix) spectral.Estimation) (restore func()) {
	prev := estimate
	estimate = fn
	return func() { estimate = prev }
}

// Analyze runs the full pipeline on pattern and compares the estimated
// spectral radius against cfg.Threshold. Leading '^' and trailing '$' are
// stripped first.
//
// A failure inside the pipeline does not propagate as a panic. It yields a
// StatusFailed result whose Safe field is true (no detection) together with
// an error wrapping ErrAnalysisFailed, so callers can tell the two apart.
func Analyze(pattern string, cfg Config) (res Result, err error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	defer func() {
		if r := recover(); r != nil {
			res = Result{Safe: true, Status: StatusFailed}
			err = fmt.Errorf("%w: %v", ErrAnalysisFailed, r)
		}
	}()

	nfa := automaton.Build(automaton.TrimAnchors(pattern))
	reduced := automaton.RemoveEpsilon(nfa)
	matrix := spectral.BuildMatrix(reduced)
	est := estimate(matrix)
	if math.IsNaN(est.Radius) || math.IsInf(est.Radius, 0) {
		return Result{Safe: true, Status: StatusFailed}, fmt.Errorf("%w: non-finite radius", ErrAnalysisFailed)
	}

	res = Result{
		Radius:     est.Radius,
		States:     matrix.Size(),
		Iterations: est.Iterations,
		Converged:  est.Converged,
	}
	res.Safe = res.Radius <= cfg.Threshold
	if res.Safe {
		res.Status = StatusSafe
	} else {
		res.Status = StatusUnsafe
	}

	return res, nil
}

// Detect reports whether pattern is flagged at DefaultThreshold.
// Any failure counts as "not detected".
func Detect(pattern string) bool {
	res, err := Analyze(pattern, DefaultConfig())
	if err != nil {
		return false
	}
	return !res.Safe
}
