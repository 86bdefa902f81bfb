package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrayFlagsString(t *testing.T) {
	tests := []struct {
		name     string
		flags    arrayFlags
		expected string
	}{
		{
			name:     "empty",
			flags:    arrayFlags{},
			expected: "",
		},
		{
			name:     "single",
			flags:    arrayFlags{"(a+)+"},
			expected: "(a+)+",
		},
		{
			name:     "multiple",
			flags:    arrayFlags{"(a+)+", "^abc$", "[a-z]*"},
			expected: "(a+)+, ^abc$, [a-z]*",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.flags.String()
			if result != tt.expected {
				t.Errorf("String() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestArrayFlagsSet(t *testing.T) {
	var flags arrayFlags

	if err := flags.Set("(a+)+"); err != nil {
		t.Errorf("Set() returned error: %v", err)
	}
	if len(flags) != 1 || flags[0] != "(a+)+" {
		t.Errorf("Set() = %v, want [\"(a+)+\"]", flags)
	}

	if err := flags.Set("^abc$"); err != nil {
		t.Errorf("Set() returned error: %v", err)
	}
	if len(flags) != 2 || flags[1] != "^abc$" {
		t.Errorf("Set() = %v, want [\"(a+)+\", \"^abc$\"]", flags)
	}

	if flags.Type() != "pattern" {
		t.Errorf("Type() = %q, want %q", flags.Type(), "pattern")
	}
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), append([]string{"--no-color"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCheckCommand(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{"safe literal", []string{"check", "abc"}, ExitSafe, "0.0000  abc", ""},
		{"nested plus", []string{"check", "(a+)+"}, ExitUnsafe, "4.0000  (a+)+", "Unsafe Regex!"},
		{"pattern flag", []string{"check", "-p", "^abc$", "-p", "(a|a)*"}, ExitUnsafe, "unsafe", ""},
		{"raised threshold", []string{"check", "--threshold", "5", "(a+)+"}, ExitSafe, "safe", ""},
		{"invalid syntax", []string{"check", "(", "abc"}, ExitError, "invalid", "Invalid regex syntax!"},
		{"no patterns", []string{"check"}, ExitError, "", "no patterns given"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := run(t, tt.args...)
			assert.Equal(t, tt.wantCode, code, "stderr: %s", stderr)
			assert.Contains(t, stdout, tt.wantStdout)
			assert.Contains(t, stderr, tt.wantStderr)
		})
	}
}

func TestCheckCommandJSON(t *testing.T) {
	code, stdout, stderr := run(t, "check", "--json", "abc", "(a+)+")
	assert.Equal(t, ExitUnsafe, code)
	assert.NotContains(t, stderr, "Unsafe Regex!")

	var entries []struct {
		Pattern string `json:"pattern"`
		Result  struct {
			Safe   bool    `json:"safe"`
			Radius float64 `json:"radius"`
			Status string  `json:"status"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
	require.Len(t, entries, 2)

	assert.True(t, entries[0].Result.Safe)
	assert.Equal(t, "safe", entries[0].Result.Status)
	assert.Equal(t, "(a+)+", entries[1].Pattern)
	assert.Equal(t, 4.0, entries[1].Result.Radius)
	assert.Equal(t, "unsafe", entries[1].Result.Status)
}

const scanConfig = `
concurrency: 2
patterns:
  - name: literal
    pattern: '^abc$'
  - name: nested
    pattern: '(a+)+'
  - name: relaxed
    pattern: '(a+)+'
    threshold: 5
`

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resafe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestScanCommand(t *testing.T) {
	cfg := writeConfig(t, scanConfig)
	prom := filepath.Join(t.TempDir(), "resafe.prom")

	code, stdout, stderr := run(t, "scan", "-c", cfg, "--metrics-out", prom)
	assert.Equal(t, ExitUnsafe, code, "stderr: %s", stderr)
	assert.Contains(t, stdout, "3 patterns, 1 unsafe, 0 failed")
	assert.Contains(t, stderr, "Unsafe Regex! nested=/(a+)+/")

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), `resafe_checks_total{verdict="unsafe"} 1`)
}

func TestScanCommandJSON(t *testing.T) {
	cfg := writeConfig(t, scanConfig)

	code, stdout, _ := run(t, "scan", "-c", cfg, "--json", "--threshold", "10")
	assert.Equal(t, ExitSafe, code)

	var report struct {
		RunID    string `json:"run_id"`
		Findings []struct {
			Name    string `json:"name"`
			Verdict string `json:"verdict"`
		} `json:"findings"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.NotEmpty(t, report.RunID)
	require.Len(t, report.Findings, 3)
	for _, f := range report.Findings {
		assert.Equal(t, "safe", f.Verdict, f.Name)
	}
}

func TestScanCommandErrors(t *testing.T) {
	t.Run("missing config", func(t *testing.T) {
		code, _, stderr := run(t, "scan", "-c", filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Equal(t, ExitError, code)
		assert.Contains(t, stderr, "failed to read config")
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := writeConfig(t, "patterns:\n  - name: x\n    pattern: '(x'\n")
		code, _, stderr := run(t, "scan", "-c", cfg)
		assert.Equal(t, ExitError, code)
		assert.Contains(t, stderr, "is not a valid regex")
	})
}

func TestScanCommandWatch(t *testing.T) {
	cfg := writeConfig(t, scanConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var stdout, stderr bytes.Buffer
	code := execute(ctx, []string{"--no-color", "scan", "-c", cfg, "--watch"}, &stdout, &stderr)

	assert.Equal(t, ExitSafe, code, "stderr: %s", stderr.String())
	assert.Contains(t, stdout.String(), "3 patterns, 1 unsafe, 0 failed")
	assert.NotContains(t, stderr.String(), "Scan failed")
}

func TestGenCommand(t *testing.T) {
	cfg := writeConfig(t, scanConfig)
	out := filepath.Join(t.TempDir(), "guard_test.go")

	code, stdout, stderr := run(t, "gen", "-c", cfg, "-o", out, "--package", "patterns")
	require.Equal(t, ExitSafe, code, "stderr: %s", stderr)
	assert.Contains(t, stdout, "wrote "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "package patterns")
	assert.Contains(t, string(data), "func TestResafeGuard(t *testing.T)")
}

func TestGenCommandInvalidPackage(t *testing.T) {
	cfg := writeConfig(t, scanConfig)

	code, _, stderr := run(t, "gen", "-c", cfg, "-o", filepath.Join(t.TempDir(), "g_test.go"), "--package", "not-valid")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "invalid package name")
}
