package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapmetrics/internal/cli/config"
	"github.com/leapstack-labs/leapmetrics/internal/cli/testutil"
	sharedtest "github.com/leapstack-labs/leapmetrics/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scanJSON struct {
	ModelsDir string `json:"models_dir"`
	Summary   struct {
		Units      int `json:"units"`
		Rollups    int `json:"rollups"`
		Candidates int `json:"candidates"`
		Hidden     int `json:"hidden"`
	} `json:"summary"`
	Results []struct {
		UnitName          string  `json:"unit_name"`
		IsRollupUnit      bool    `json:"is_rollup_unit"`
		OverallConfidence float64 `json:"overall_confidence"`
		Attempt           string  `json:"attempt"`
		Candidates        []struct {
			Kind        string `json:"kind"`
			DerivedName string `json:"derived_name"`
		} `json:"candidates"`
		Notes []string `json:"notes"`
	} `json:"results"`
	Warnings []string `json:"warnings"`
	RunID    string   `json:"run_id"`
}

// run executes the root command inside the test project.
func run(t *testing.T, root string, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	t.Chdir(root)

	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "leapmetrics v"+Version)
}

func TestAnalyzeCommand_JSON(t *testing.T) {
	root := testutil.SetupTestProject(t)

	out, _, err := run(t, root, "analyze", "-o", "json", filepath.Join("models", "marts", "customer_rollup.sql"))
	require.NoError(t, err)

	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "customer_rollup", results[0]["unit_name"])
	assert.Equal(t, true, results[0]["is_rollup_unit"])
	assert.Equal(t, "structural", results[0]["attempt"])
	assert.NotEmpty(t, results[0]["candidates"])
}

func TestAnalyzeCommand_Markdown(t *testing.T) {
	root := testutil.SetupTestProject(t)

	out, _, err := run(t, root, "analyze", filepath.Join("models", "marts", "conversion.sql"))
	require.NoError(t, err)

	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "## conversion")
	assert.Contains(t, out, "- **Rollup:** yes")
	assert.Contains(t, out, "| Ratio |")
}

func TestAnalyzeCommand_RequiresFile(t *testing.T) {
	_, _, err := run(t, t.TempDir(), "analyze")
	assert.Error(t, err)
}

func TestParseCommand(t *testing.T) {
	root := testutil.SetupTestProject(t)

	out, _, err := run(t, root, "parse", "-o", "markdown", filepath.Join("models", "marts", "customer_rollup.sql"))
	require.NoError(t, err)

	assert.Contains(t, out, "## customer_rollup")
	assert.Contains(t, out, "- **Parse:** structural")
	assert.Contains(t, out, "- **Tables:** orders")
	assert.Contains(t, out, "total_revenue_value")
	assert.Contains(t, out, "SUM")
}

func TestParseCommand_JSONTemplated(t *testing.T) {
	root := testutil.SetupTestProject(t)

	out, _, err := run(t, root, "parse", "-o", "json", filepath.Join("models", "marts", "conversion.sql"))
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "conversion", res["unit_name"])
	assert.Equal(t, []any{"stg_sessions"}, res["referenced_tables"])
}

func TestScanCommand_JSON(t *testing.T) {
	root := testutil.SetupTestProject(t)

	out, _, err := run(t, root, "scan", "-o", "json")
	require.NoError(t, err)

	var got scanJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, filepath.Join(root, "models"), got.ModelsDir)
	assert.Equal(t, 4, got.Summary.Units)
	assert.Equal(t, 3, got.Summary.Rollups)
	assert.Equal(t, 0, got.Summary.Hidden)
	assert.Empty(t, got.Warnings)
	assert.Empty(t, got.RunID)

	names := make([]string, 0, len(got.Results))
	for _, r := range got.Results {
		names = append(names, r.UnitName)
	}
	assert.Equal(t, []string{"conversion", "customer_rollup", "finance_summary", "raw_customers"}, names)

	declared := got.Results[2]
	assert.True(t, declared.IsRollupUnit)
	assert.Equal(t, "none", declared.Attempt)
	assert.Contains(t, declared.Notes, "analysis used declared columns only")
}

func TestScanCommand_MinConfidenceHidesModels(t *testing.T) {
	root := testutil.SetupTestProject(t)

	out, _, err := run(t, root, "scan", "-o", "json", "--min-confidence", "0.01")
	require.NoError(t, err)

	var got scanJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 4, got.Summary.Units)
	assert.Equal(t, got.Summary.Units-len(got.Results), got.Summary.Hidden)
	for _, r := range got.Results {
		assert.GreaterOrEqual(t, r.OverallConfidence, 0.01)
		assert.NotEqual(t, "raw_customers", r.UnitName)
	}
}

func TestScanCommand_MarkdownDetails(t *testing.T) {
	root := testutil.SetupTestProject(t)
	sharedtest.WriteModel(t, root, "models/broken.yml", "models: [\n")

	out, errOut, err := run(t, root, "scan", "--details", "--workers", "2")
	require.NoError(t, err)

	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "# Metric discovery (4 models)")
	assert.Contains(t, out, "| Model | Rollup |")
	assert.Contains(t, out, "## customer_rollup")
	assert.Contains(t, errOut, "broken.yml")
}

func TestScanCommand_MissingModelsDir(t *testing.T) {
	_, _, err := run(t, t.TempDir(), "scan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "models directory does not exist")
}

func TestScanRecordAndHistory(t *testing.T) {
	root := testutil.SetupTestProject(t)

	out, _, err := run(t, root, "scan", "-o", "json", "--record")
	require.NoError(t, err)
	var scan scanJSON
	require.NoError(t, json.Unmarshal([]byte(out), &scan))
	require.NotEmpty(t, scan.RunID)

	out, _, err = run(t, root, "history", "-o", "json")
	require.NoError(t, err)
	var runs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, scan.RunID, runs[0]["id"])
	assert.Equal(t, float64(4), runs[0]["units_total"])

	out, _, err = run(t, root, "history", "-o", "json", scan.RunID)
	require.NoError(t, err)
	var detail struct {
		Units []map[string]any `json:"units"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &detail))
	require.Len(t, detail.Units, 4)
	assert.Equal(t, "conversion", detail.Units[0]["unit_name"])

	_, _, err = run(t, root, "history", "does-not-exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestHistoryCommand_NoDatabase(t *testing.T) {
	_, _, err := run(t, t.TempDir(), "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no run history")
}

func TestPatternsCommand(t *testing.T) {
	out, _, err := run(t, t.TempDir(), "patterns", "-o", "json")
	require.NoError(t, err)

	var got struct {
		Patterns           []map[string]any `json:"patterns"`
		AggregateBaselines []map[string]any `json:"aggregate_baselines"`
		MinConfidence      float64          `json:"min_confidence"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Patterns, 13)
	assert.Equal(t, "_value$", got.Patterns[0]["pattern"])
	assert.Equal(t, "COUNT", got.AggregateBaselines[0]["function"])
	assert.Equal(t, 0.30, got.MinConfidence)
}

func TestInvalidOutputFlag(t *testing.T) {
	_, _, err := run(t, t.TempDir(), "patterns", "-o", "html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output")
}
