package commands

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/leapstack-labs/leapmetrics/pkg/metrics"
	"github.com/spf13/cobra"
)

// PatternInfo is the JSON shape of a registry row.
type PatternInfo struct {
	Pattern     string  `json:"pattern"`
	Shape       string  `json:"shape"`
	Baseline    float64 `json:"baseline"`
	Description string  `json:"description"`
}

// BaselineInfo is the JSON shape of an aggregate baseline.
type BaselineInfo struct {
	Function string  `json:"function"`
	Baseline float64 `json:"baseline"`
}

// PatternsOutput is the JSON shape of the patterns command.
type PatternsOutput struct {
	Patterns           []PatternInfo  `json:"patterns"`
	AggregateBaselines []BaselineInfo `json:"aggregate_baselines"`
	DefaultAggregate   float64        `json:"default_aggregate_baseline"`
	Ratio              float64        `json:"ratio_baseline"`
	Custom             float64        `json:"custom_baseline"`
	MinConfidence      float64        `json:"min_confidence"`
}

// NewPatternsCommand creates the patterns command.
func NewPatternsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "List the metric naming patterns and confidence baselines",
		Long: `Print the column suffix registry used to recognize metrics, the baseline
confidence for aggregated columns, and the fixed scoring thresholds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return renderPatterns(NewCommandContext(cmd).Renderer, buildPatternsOutput())
		},
	}
}

func buildPatternsOutput() *PatternsOutput {
	out := &PatternsOutput{
		Patterns:           make([]PatternInfo, 0, len(metrics.Patterns)),
		AggregateBaselines: make([]BaselineInfo, 0, len(metrics.AggregateBaselines)),
		DefaultAggregate:   metrics.DefaultAggregateBaseline,
		Ratio:              metrics.RatioBaseline,
		Custom:             metrics.CustomBaseline,
		MinConfidence:      metrics.MinConfidence,
	}
	for _, p := range metrics.Patterns {
		out.Patterns = append(out.Patterns, PatternInfo{
			Pattern:     p.Expr,
			Shape:       p.Shape.String(),
			Baseline:    p.Baseline,
			Description: p.Description,
		})
	}
	for fn, b := range metrics.AggregateBaselines {
		out.AggregateBaselines = append(out.AggregateBaselines, BaselineInfo{Function: string(fn), Baseline: b})
	}
	sort.Slice(out.AggregateBaselines, func(i, j int) bool {
		a, b := out.AggregateBaselines[i], out.AggregateBaselines[j]
		if a.Baseline != b.Baseline {
			return a.Baseline > b.Baseline
		}
		return a.Function < b.Function
	})
	return out
}

func renderPatterns(r *output.Renderer, out *PatternsOutput) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, "Column patterns")
	rows := make([][]string, 0, len(out.Patterns))
	for _, p := range out.Patterns {
		rows = append(rows, []string{p.Pattern, p.Shape, formatConfidence(p.Baseline), p.Description})
	}
	r.Table([]string{"Pattern", "Shape", "Baseline", "Description"}, rows)

	r.Header(1, "Aggregate baselines")
	rows = rows[:0]
	for _, b := range out.AggregateBaselines {
		rows = append(rows, []string{b.Function, formatConfidence(b.Baseline)})
	}
	rows = append(rows, []string{"other", formatConfidence(out.DefaultAggregate)})
	r.Table([]string{"Function", "Baseline"}, rows)

	r.KeyValue("Ratio", formatConfidence(out.Ratio))
	r.KeyValue("Custom", formatConfidence(out.Custom))
	r.KeyValue("Minimum", fmt.Sprintf("%s (candidates below are dropped)", formatConfidence(out.MinConfidence)))
	return nil
}
