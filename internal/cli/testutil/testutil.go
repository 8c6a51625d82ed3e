// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	sharedtest "github.com/leapstack-labs/leapmetrics/internal/testutil"
)

// SchemaYAML declares columns for the project's models plus one model that
// has no SQL file.
const SchemaYAML = `version: 2
models:
  - name: customer_rollup
    columns:
      - name: customer_id
      - name: total_amount
  - name: finance_summary
    meta:
      rollup: true
    columns:
      - name: revenue_total
      - name: cost_amount
`

// SetupTestProject creates a temporary project with test models and returns
// its root. Models live under <root>/models.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	models := filepath.Join(root, "models")
	sharedtest.WriteModel(t, models, "marts/customer_rollup.sql", sharedtest.CustomerRollupSQL)
	sharedtest.WriteModel(t, models, "marts/conversion.sql", sharedtest.ConversionSQL)
	sharedtest.WriteModel(t, models, "marts/schema.yml", SchemaYAML)
	sharedtest.WriteModel(t, models, "staging/raw_customers.sql", sharedtest.RawCustomersSQL)
	return root
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the captured stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if fenceCount := strings.Count(md, "```"); fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
