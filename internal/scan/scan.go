// Package scan checks a batch of named patterns concurrently.
package scan

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/KromDaniel/resafe/internal/config"
	"github.com/KromDaniel/resafe/internal/diag"
	"github.com/KromDaniel/resafe/internal/metrics"
	"github.com/KromDaniel/resafe/pkg/resafe"
)

// Finding is the outcome for one configured pattern.
type Finding struct {
	Name      string  `json:"name"`
	Pattern   string  `json:"pattern"`
	Threshold float64 `json:"threshold"`
	Radius    float64 `json:"radius"`
	States    int     `json:"states"`
	Safe      bool    `json:"safe"`

	// Verdict is one of the metrics verdict labels.
	Verdict string `json:"verdict"`
	Error   string `json:"error,omitempty"`
}

// Report collects the findings of one Run, in input order.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Findings   []Finding `json:"findings"`
}

// Unsafe returns the findings whose analysis completed with an unsafe verdict.
func (r *Report) Unsafe() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Verdict == metrics.VerdictUnsafe {
			out = append(out, f)
		}
	}
	return out
}

// Failed returns the findings that carry an error.
func (r *Report) Failed() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Error != "" {
			out = append(out, f)
		}
	}
	return out
}

// Scanner runs resafe.Check over many patterns.
type Scanner struct {
	// Concurrency bounds the number of checks in flight. Zero or negative
	// selects config.DefaultConcurrency.
	Concurrency int

	// Threshold applies to patterns without their own threshold.
	Threshold float64

	// Logger receives verbose traces and syntax errors. Nil discards them.
	Logger *diag.Logger

	// Metrics, when set, observes every check.
	Metrics *metrics.Collector
}

// Run checks every pattern and returns the report. It returns ctx.Err() if
// the context is cancelled before all checks finish.
func (s *Scanner) Run(ctx context.Context, patterns []config.Pattern) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Findings:  make([]Finding, len(patterns)),
	}

	logger := s.Logger
	if logger == nil {
		logger = diag.Discard()
	}

	limit := s.Concurrency
	if limit <= 0 {
		limit = config.DefaultConcurrency
	}

	defaults := &config.Config{Threshold: s.Threshold}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, p := range patterns {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			res, err := resafe.Check(p.Pattern, resafe.Options{
				Threshold: defaults.EffectiveThreshold(p),
				Silent:    true,
				Logger:    logger,
			})
			if s.Metrics != nil {
				s.Metrics.Observe(res, err)
			}

			report.Findings[i] = newFinding(p, res, err)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A cancellation racing the last check is still reported.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report.FinishedAt = time.Now().UTC()
	logger.Log("scan %s: %d patterns, %d unsafe, %d failed",
		report.RunID, len(report.Findings), len(report.Unsafe()), len(report.Failed()))
	return report, nil
}

func newFinding(p config.Pattern, res *resafe.Result, err error) Finding {
	f := Finding{Name: p.Name, Pattern: p.Pattern}
	if err != nil {
		f.Error = err.Error()
	}

	if res == nil {
		f.Verdict = metrics.VerdictRejected
		return f
	}

	f.Threshold = res.Threshold
	f.Radius = res.Radius
	f.States = res.States
	f.Safe = res.Safe
	f.Verdict = metrics.Verdict(res)
	return f
}
