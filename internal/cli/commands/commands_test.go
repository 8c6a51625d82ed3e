package commands

import (
	"bytes"
	"testing"

	"github.com/leapstack-labs/leapmetrics/internal/cli/testutil"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/leapstack-labs/leapmetrics/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("1.2.3")
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "leapmetrics v1.2.3")
	assert.Equal(t, "version", cmd.Use)
	assert.NotEmpty(t, cmd.Long)
}

func TestCommandMetadata(t *testing.T) {
	scan := NewScanCommand()
	assert.Equal(t, "scan", scan.Use)
	assert.NotEmpty(t, scan.Example)
	for _, flag := range []string{"details", "min-confidence", "watch", "record", "workers"} {
		assert.NotNil(t, scan.Flags().Lookup(flag), "flag %q should exist", flag)
	}

	history := NewHistoryCommand()
	assert.Equal(t, "history [run-id]", history.Use)
	assert.NotNil(t, history.Flags().Lookup("limit"))

	assert.Equal(t, "analyze <file>...", NewAnalyzeCommand().Use)
	assert.Equal(t, "parse <file>", NewParseCommand().Use)
	assert.Equal(t, "patterns", NewPatternsCommand().Use)
}

func TestKindLabel(t *testing.T) {
	assert.Equal(t, "Single Value", kindLabel(core.KindSingleValue))
	assert.Equal(t, "Ratio", kindLabel(core.KindRatio))
	assert.Equal(t, "Custom Expression", kindLabel(core.KindCustomExpression))
}

func TestBuildPatternsOutput(t *testing.T) {
	out := buildPatternsOutput()

	require.Len(t, out.Patterns, len(metrics.Patterns))
	assert.Equal(t, "_value$", out.Patterns[0].Pattern)
	assert.Equal(t, "single_value", out.Patterns[0].Shape)
	for i := 1; i < len(out.AggregateBaselines); i++ {
		assert.GreaterOrEqual(t, out.AggregateBaselines[i-1].Baseline, out.AggregateBaselines[i].Baseline)
	}
	assert.Equal(t, metrics.MinConfidence, out.MinConfidence)
}

func sampleResult() *core.DiscoveryResult {
	return &core.DiscoveryResult{
		UnitName:          "customer_rollup",
		SourcePath:        "models/customer_rollup.sql",
		IsRollupUnit:      true,
		Attempt:           core.AttemptStructural,
		OverallConfidence: 0.95,
		Candidates: []core.MetricCandidate{{
			Kind:             core.KindSingleValue,
			DerivedName:      "Order",
			DerivedShortCode: "ORDER",
			Category:         core.CategoryOrder,
			ValueColumn:      "order_count",
			Confidence:       0.9,
		}},
		Notes:       []string{"found 1 potential metrics"},
		ColumnNotes: map[string]string{"order_count": "count metric"},
	}
}

func TestRenderDiscovery_Markdown(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()

	require.NoError(t, renderDiscoveries(tr.Renderer, []*core.DiscoveryResult{sampleResult()}))

	out := tr.Output()
	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "## customer_rollup")
	assert.Contains(t, out, "- **Confidence:** 0.95")
	assert.Contains(t, out, "| Order | ORDER | Single Value | Order | order_count | 0.90 |")
	assert.Contains(t, out, "- found 1 potential metrics")
	assert.Contains(t, out, "- **order_count:** count metric")
}

func TestRenderScan_HiddenAndRun(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()
	out := &ScanOutput{
		Results: []*core.DiscoveryResult{sampleResult()},
		Summary: ScanSummary{Units: 2, Rollups: 1, Candidates: 1, Hidden: 1},
		RunID:   "run-1",
	}

	require.NoError(t, renderScan(tr.Renderer, out, false))

	got := tr.Output()
	assert.Contains(t, got, "# Metric discovery (2 models)")
	assert.Contains(t, got, "| customer_rollup | yes | 1 | 0.95 | Order | structural |")
	assert.Contains(t, got, "- **Hidden:** 1 below min confidence")
	assert.Contains(t, got, "- **Run:** run-1")
	assert.NotContains(t, got, "## customer_rollup")
}

func TestRenderParse_JSON(t *testing.T) {
	tr := testutil.NewTestRendererJSON()
	res := &core.ParseResult{UnitName: "orders", Attempt: core.AttemptFallback, ParseErrors: []string{"structural: boom"}}

	require.NoError(t, renderParse(tr.Renderer, res))
	assert.Contains(t, tr.Output(), `"attempt": "fallback"`)
	assert.Contains(t, tr.Output(), `"structural: boom"`)
}
