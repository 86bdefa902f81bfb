package scan

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KromDaniel/resafe/internal/analyzer"
	"github.com/KromDaniel/resafe/internal/config"
	"github.com/KromDaniel/resafe/internal/diag"
	"github.com/KromDaniel/resafe/internal/metrics"
	"github.com/KromDaniel/resafe/internal/spectral"
)

var patterns = []config.Pattern{
	{Name: "literal", Pattern: `^abc$`},
	{Name: "nested", Pattern: `(a+)+`},
	{Name: "relaxed", Pattern: `(a+)+`, Threshold: 5},
	{Name: "broken", Pattern: `(abc`},
	{Name: "alternation", Pattern: `(a|a)*`},
}

func TestScannerRun(t *testing.T) {
	s := &Scanner{Concurrency: 2, Threshold: 1}

	report, err := s.Run(context.Background(), patterns)
	require.NoError(t, err)

	_, err = uuid.Parse(report.RunID)
	assert.NoError(t, err)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	require.Len(t, report.Findings, len(patterns))
	for i, f := range report.Findings {
		assert.Equal(t, patterns[i].Name, f.Name, "findings keep input order")
	}

	tests := []struct {
		name      string
		verdict   string
		safe      bool
		threshold float64
		radius    float64
	}{
		{"literal", metrics.VerdictSafe, true, 1, 0},
		{"nested", metrics.VerdictUnsafe, false, 1, 4},
		{"relaxed", metrics.VerdictSafe, true, 5, 4},
		{"broken", metrics.VerdictRejected, false, 0, 0},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := report.Findings[i]
			assert.Equal(t, tt.verdict, f.Verdict)
			assert.Equal(t, tt.safe, f.Safe)
			assert.Equal(t, tt.threshold, f.Threshold)
			assert.Equal(t, tt.radius, f.Radius)
		})
	}

	unsafe := report.Unsafe()
	require.Len(t, unsafe, 2)
	assert.Equal(t, "nested", unsafe[0].Name)
	assert.Equal(t, "alternation", unsafe[1].Name)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "broken", failed[0].Name)
	assert.Contains(t, failed[0].Error, "invalid regex syntax")
}

func TestScannerMetrics(t *testing.T) {
	m := metrics.NewCollector()
	s := &Scanner{Metrics: m}

	_, err := s.Run(context.Background(), patterns)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "resafe.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, `resafe_checks_total{verdict="safe"} 2`)
	assert.Contains(t, out, `resafe_checks_total{verdict="unsafe"} 2`)
	assert.Contains(t, out, `resafe_checks_total{verdict="rejected"} 1`)
	assert.Contains(t, out, "resafe_automaton_states_count 4")
}

func TestScannerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := (&Scanner{}).Run(ctx, patterns)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, report)
}

func TestScannerVerboseLogger(t *testing.T) {
	var buf bytes.Buffer
	s := &Scanner{Concurrency: 1, Logger: diag.New(&buf, diag.WithVerbose(true))}

	report, err := s.Run(context.Background(), patterns[:2])
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "=== Spectral Analysis ===")
	assert.Contains(t, buf.String(), fmt.Sprintf("scan %s: 2 patterns, 1 unsafe, 0 failed", report.RunID))
}

func TestScannerVerboseConcurrent(t *testing.T) {
	var many []config.Pattern
	traced := 0
	for i := 0; i < 32; i++ {
		p := patterns[i%len(patterns)]
		if p.Name != "broken" {
			traced++
		}
		p.Name = fmt.Sprintf("%s-%d", p.Name, i)
		many = append(many, p)
	}

	var buf bytes.Buffer
	s := &Scanner{Concurrency: 8, Logger: diag.New(&buf, diag.WithVerbose(true))}

	_, err := s.Run(context.Background(), many)
	require.NoError(t, err)

	// Every valid pattern leaves one contiguous trace block.
	blocks := strings.Split(buf.String(), "[resafe] === Spectral Analysis ===\n")
	require.Len(t, blocks, traced+1)
	for _, block := range blocks[1:] {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		require.GreaterOrEqual(t, len(lines), 5, block)
		assert.True(t, strings.HasPrefix(lines[0], "[resafe] Pattern: "), block)
		assert.True(t, strings.HasPrefix(lines[1], "[resafe] Automaton states: "), block)
		assert.True(t, strings.HasPrefix(lines[2], "[resafe] Power iterations: "), block)
		assert.True(t, strings.HasPrefix(lines[3], "[resafe] Spectral radius: "), block)
		assert.True(t, strings.HasPrefix(lines[4], "[resafe] Verdict: "), block)
	}
}

func TestScannerAnalysisFailure(t *testing.T) {
	restore := analyzer.SwapEstimator(func(*spectral.Matrix) spectral.Estimation {
		panic("estimator exploded")
	})
	defer restore()

	m := metrics.NewCollector()
	report, err := (&Scanner{Concurrency: 2, Metrics: m}).Run(context.Background(), patterns[:2])
	require.NoError(t, err)

	require.Len(t, report.Failed(), 2)
	assert.Empty(t, report.Unsafe())
	for _, f := range report.Findings {
		assert.Equal(t, metrics.VerdictFailed, f.Verdict)
		assert.Contains(t, f.Error, "analysis failed")
	}

	path := filepath.Join(t.TempDir(), "resafe.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `resafe_checks_total{verdict="failed"} 2`)
}

func TestScannerEmpty(t *testing.T) {
	report, err := (&Scanner{}).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Findings)
	assert.Empty(t, report.Unsafe())
}
