package metrics

import "github.com/leapstack-labs/leapmetrics/pkg/core"

// Discover runs generation, scoring, and note building for one model.
// A non-rollup context always yields no candidates and zero confidence.
func Discover(ctx Context) *core.DiscoveryResult {
	result := &core.DiscoveryResult{
		UnitName:     ctx.UnitName,
		SourcePath:   ctx.SourcePath,
		Candidates:   []core.MetricCandidate{},
		ColumnNotes:  map[string]string{},
		IsRollupUnit: ctx.IsRollup,
		Attempt:      ctx.Attempt,
	}

	if ctx.IsRollup {
		result.Candidates = Rank(Generate(ctx), ctx)
		result.OverallConfidence = OverallConfidence(result.Candidates, true)
		result.ColumnNotes = ColumnNotes(ctx.Columns)
	}
	result.Notes = Notes(ctx, result.Candidates)
	return result
}
