package metrics

import (
	"math"
	"regexp"
	"sort"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// Confidence adjustments applied by Score.
const (
	BusinessBoost    = 0.10
	RollupBoost      = 0.10
	RollupNameBoost  = 0.15
	GenericPenalty   = 0.20
	MaxCountBoost    = 0.20
	PerCandidateStep = 0.05
)

var rollupUnitName = regexp.MustCompile(`(?i)rollup|agg|summary`)

// Score returns a copy of c with its confidence adjusted for context.
func Score(c core.MetricCandidate, ctx Context) core.MetricCandidate {
	confidence := c.Confidence
	if _, ok := BusinessKeyword(c.DerivedName); ok {
		confidence += BusinessBoost
	}
	if ctx.IsRollup {
		confidence += RollupBoost
	}
	if rollupUnitName.MatchString(ctx.UnitName) {
		confidence += RollupNameBoost
	}
	if isGenericName(c.DerivedName) {
		confidence -= GenericPenalty
	}
	return c.WithConfidence(clamp(confidence))
}

// Rank scores every candidate, drops those below MinConfidence, and sorts the
// rest by descending confidence keeping generation order for ties.
func Rank(candidates []core.MetricCandidate, ctx Context) []core.MetricCandidate {
	out := make([]core.MetricCandidate, 0, len(candidates))
	for _, c := range candidates {
		if scored := Score(c, ctx); scored.Confidence >= MinConfidence {
			out = append(out, scored)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// OverallConfidence summarizes retained candidates into one score.
func OverallConfidence(candidates []core.MetricCandidate, isRollup bool) float64 {
	if len(candidates) == 0 {
		return 0
	}
	var sum float64
	for _, c := range candidates {
		sum += c.Confidence
	}
	overall := sum/float64(len(candidates)) +
		math.Min(MaxCountBoost, PerCandidateStep*float64(len(candidates)))
	if isRollup {
		overall += RollupBoost
	}
	return clamp(overall)
}

// clamp bounds v to [0, 1] and rounds to four decimals so sums of the fixed
// adjustments compare exactly against thresholds.
func clamp(v float64) float64 {
	v = math.Max(0, math.Min(1, v))
	return math.Round(v*1e4) / 1e4
}
