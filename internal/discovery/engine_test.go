package discovery

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapmetrics/internal/testutil"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/leapstack-labs/leapmetrics/pkg/metrics"
)

func newTestEngine(t *testing.T, workers int) *Engine {
	t.Helper()
	return New(Config{Logger: testutil.NewTestLogger(t), Workers: workers})
}

func TestAnalyzeSQL_CustomerRollup(t *testing.T) {
	e := newTestEngine(t, 1)

	r := e.AnalyzeSQL("customer_rollup", testutil.CustomerRollupSQL)

	assert.Equal(t, "customer_rollup", r.UnitName)
	assert.True(t, r.IsRollupUnit)
	assert.Equal(t, core.AttemptStructural, r.Attempt)

	byColumn := make(map[string]core.MetricCandidate)
	for _, c := range r.Candidates {
		if c.Kind == core.KindSingleValue {
			byColumn[c.ValueColumn] = c
		}
	}
	require.Contains(t, byColumn, "total_revenue_value")
	require.Contains(t, byColumn, "order_count")
	assert.Equal(t, "Total Revenue", byColumn["total_revenue_value"].DerivedName)
	assert.Equal(t, core.CategoryFinancial, byColumn["total_revenue_value"].Category)
	assert.Greater(t, byColumn["total_revenue_value"].Confidence, 0.30)
	assert.Greater(t, byColumn["order_count"].Confidence, 0.30)
	assert.Equal(t, 0, e.CacheLen(), "ad-hoc analysis is not cached")
}

func TestAnalyzeSQL_ConversionRatio(t *testing.T) {
	e := newTestEngine(t, 1)

	r := e.AnalyzeSQL("campaign_conversions", testutil.ConversionSQL)

	require.Equal(t, 1, r.CountByKind(core.KindRatio))
	for _, c := range r.Candidates {
		if c.Kind == core.KindRatio {
			assert.Equal(t, "conversion_numerator", c.NumeratorColumn)
			assert.Equal(t, "conversion_denominator", c.DenominatorColumn)
			assert.GreaterOrEqual(t, c.Confidence, 0.80)
		}
	}
}

func TestAnalyzeSQL_NotRollup(t *testing.T) {
	e := newTestEngine(t, 1)

	r := e.AnalyzeSQL("raw_customers", testutil.RawCustomersSQL)

	assert.False(t, r.IsRollupUnit)
	assert.Empty(t, r.Candidates)
	assert.Equal(t, 0.0, r.OverallConfidence)
	assert.Contains(t, r.Notes, metrics.NoteNotRollup)
}

func TestAnalyzeSQL_CommentsDoNotCreateCustomCandidates(t *testing.T) {
	e := newTestEngine(t, 1)

	r := e.AnalyzeSQL("customer_rollup", `SELECT customer_id,
    SUM(amount) AS revenue_value -- in case of refunds, round(net)
  , COUNT(*) AS order_count
FROM orders
GROUP BY customer_id`)

	require.Equal(t, core.AttemptStructural, r.Attempt)
	assert.Equal(t, 0, r.CountByKind(core.KindCustomExpression))
	assert.Equal(t, 2, r.CountByKind(core.KindSingleValue))
	for _, c := range r.Candidates {
		assert.NotContains(t, c.RawExpression, "--")
	}
}

func TestAnalyzeSQL_Malformed(t *testing.T) {
	e := newTestEngine(t, 1)

	r := e.AnalyzeSQL("orders", testutil.MalformedSQL)

	assert.Equal(t, core.AttemptFallback, r.Attempt)
	assert.Contains(t, r.Notes, metrics.NoteFallback)
	assert.NotEmpty(t, r.Candidates, "total_amount survives the fallback path")
}

func TestAnalyze_Idempotent(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteModel(t, dir, "customer_rollup.sql", testutil.CustomerRollupSQL)
	e := newTestEngine(t, 1)
	u := core.Unit{Path: path}

	first, err := e.Analyze(u)
	require.NoError(t, err)
	second, err := e.Analyze(u)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "customer_rollup", first.UnitName)
	assert.Equal(t, 1, e.CacheLen())

	e.ClearCache()
	assert.Equal(t, 0, e.CacheLen())

	third, err := e.Analyze(u)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, first, third)
}

func TestAnalyze_CacheKeyIncludesPath(t *testing.T) {
	dir := t.TempDir()
	a := testutil.WriteModel(t, dir, "a/model.sql", testutil.CustomerRollupSQL)
	b := testutil.WriteModel(t, dir, "b/model.sql", testutil.RawCustomersSQL)
	e := newTestEngine(t, 1)

	ra, err := e.Analyze(core.Unit{Name: "model", Path: a})
	require.NoError(t, err)
	rb, err := e.Analyze(core.Unit{Name: "model", Path: b})
	require.NoError(t, err)

	assert.NotSame(t, ra, rb)
	assert.True(t, ra.IsRollupUnit)
	assert.False(t, rb.IsRollupUnit)
	assert.Equal(t, 2, e.CacheLen())
}

func TestAnalyze_ConcurrentSameKey(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteModel(t, dir, "orders_rollup.sql", testutil.CustomerRollupSQL)
	e := newTestEngine(t, 1)
	u := core.Unit{Path: path}

	const n = 16
	results := make([]*core.DiscoveryResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := e.Analyze(u)
			assert.NoError(t, err)
			results[i] = r
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestAnalyze_InvalidUnit(t *testing.T) {
	e := newTestEngine(t, 1)

	r, err := e.Analyze(core.Unit{})

	assert.Nil(t, r)
	assert.ErrorIs(t, err, ErrInvalidUnit)
}

func TestAnalyze_DeclaredColumnsOnly(t *testing.T) {
	e := newTestEngine(t, 1)
	u := core.Unit{
		Name:            "orders_summary",
		DeclaredColumns: []string{"order_id", "order_count", "revenue_total"},
	}

	r, err := e.Analyze(u)
	require.NoError(t, err)

	assert.Equal(t, core.AttemptNone, r.Attempt)
	assert.True(t, r.IsRollupUnit, "suffix patterns classify declared columns")
	assert.Len(t, r.Candidates, 2)
	assert.Equal(t, metrics.NoteDeclaredOnly, r.Notes[0])
}

func TestAnalyze_DeclaredRollupOverride(t *testing.T) {
	e := newTestEngine(t, 1)
	u := core.Unit{
		Name:            "orders",
		DeclaredColumns: []string{"order_count"},
		DeclaredRollup:  core.BoolPtr(false),
	}

	r, err := e.Analyze(u)
	require.NoError(t, err)

	assert.False(t, r.IsRollupUnit)
	assert.Empty(t, r.Candidates)
	assert.Equal(t, 0.0, r.OverallConfidence)
}

func TestAnalyze_UnreadableFileUsesDeclaredColumns(t *testing.T) {
	e := newTestEngine(t, 1)
	u := core.Unit{
		Name:            "revenue_rollup",
		Path:            filepath.Join(t.TempDir(), "missing.sql"),
		DeclaredColumns: []string{"revenue_value"},
	}

	r, err := e.Analyze(u)
	require.NoError(t, err)

	require.Len(t, r.Candidates, 1)
	assert.Equal(t, "revenue_value", r.Candidates[0].ValueColumn)
	require.GreaterOrEqual(t, len(r.Notes), 2)
	assert.Contains(t, r.Notes[1], "parse: read: ")
}

func TestAnalyze_PanicBecomesAnalysisError(t *testing.T) {
	e := New(Config{
		Logger: testutil.NewTestLogger(t),
		ReadFile: func(string) ([]byte, error) {
			panic("disk on fire")
		},
	})

	r, err := e.Analyze(core.Unit{Path: "boom.sql"})

	assert.Nil(t, r)
	var aerr *AnalysisError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "boom", aerr.Unit)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Equal(t, 0, e.CacheLen(), "failures are not cached")
}

func TestBatchAnalyze_MissingFileIsolated(t *testing.T) {
	dir := t.TempDir()
	units := []core.Unit{
		{Path: testutil.WriteModel(t, dir, "customer_rollup.sql", testutil.CustomerRollupSQL)},
		{Path: filepath.Join(dir, "gone.sql")},
		{Path: testutil.WriteModel(t, dir, "campaign_conversions.sql", testutil.ConversionSQL)},
	}
	e := newTestEngine(t, 1)

	results := e.BatchAnalyze(context.Background(), units)

	require.Len(t, results, 3)
	assert.Equal(t, "customer_rollup", results[0].UnitName)
	assert.NotEmpty(t, results[0].Candidates)

	assert.Equal(t, "gone", results[1].UnitName)
	assert.Empty(t, results[1].Candidates)
	assert.Equal(t, 0.0, results[1].OverallConfidence)
	var mentioned bool
	for _, n := range results[1].Notes {
		if strings.HasPrefix(n, "parse: read: ") {
			mentioned = true
		}
	}
	assert.True(t, mentioned, "notes mention the read failure: %v", results[1].Notes)

	assert.Equal(t, "campaign_conversions", results[2].UnitName)
	assert.Equal(t, 1, results[2].CountByKind(core.KindRatio))
}

func TestBatchAnalyze_FailureDoesNotAbort(t *testing.T) {
	e := New(Config{
		Logger: testutil.NewTestLogger(t),
		ReadFile: func(path string) ([]byte, error) {
			if path == "bad.sql" {
				panic("unexpected")
			}
			return []byte(testutil.CustomerRollupSQL), nil
		},
	})
	units := []core.Unit{{Path: "a.sql"}, {Path: "bad.sql"}, {}, {Path: "c.sql"}}

	results := e.BatchAnalyze(context.Background(), units)

	require.Len(t, results, 4)
	assert.NotEmpty(t, results[0].Candidates)
	assert.Empty(t, results[1].Candidates)
	require.Len(t, results[1].Notes, 1)
	assert.Contains(t, results[1].Notes[0], "analysis failed: ")
	assert.Contains(t, results[1].Notes[0], "unexpected")
	assert.Equal(t, "unknown", results[2].UnitName)
	assert.Contains(t, results[2].Notes[0], ErrInvalidUnit.Error())
	assert.NotEmpty(t, results[3].Candidates)
}

func TestBatchAnalyze_ParallelPreservesOrder(t *testing.T) {
	dir := t.TempDir()
	var units []core.Unit
	for _, name := range []string{"a_rollup", "b_raw", "c_rollup", "d_raw", "e_rollup", "f_raw"} {
		sql := testutil.CustomerRollupSQL
		if strings.HasSuffix(name, "_raw") {
			sql = testutil.RawCustomersSQL
		}
		units = append(units, core.Unit{Path: testutil.WriteModel(t, dir, name+".sql", sql)})
	}

	sequential := newTestEngine(t, 1).BatchAnalyze(context.Background(), units)
	parallel := newTestEngine(t, 4).BatchAnalyze(context.Background(), units)

	require.Len(t, parallel, len(units))
	for i := range units {
		assert.Equal(t, units[i].UnitName(), parallel[i].UnitName)
		assert.Equal(t, sequential[i], parallel[i])
	}
}

func TestBatchAnalyze_Cancelled(t *testing.T) {
	dir := t.TempDir()
	units := []core.Unit{
		{Path: testutil.WriteModel(t, dir, "a.sql", testutil.CustomerRollupSQL)},
		{Path: testutil.WriteModel(t, dir, "b.sql", testutil.CustomerRollupSQL)},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := newTestEngine(t, 2).BatchAnalyze(ctx, units)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Empty(t, r.Candidates)
		require.Len(t, r.Notes, 1)
		assert.True(t, errors.Is(ctx.Err(), context.Canceled))
		assert.Contains(t, r.Notes[0], "context canceled")
	}
}
