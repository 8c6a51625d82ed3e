package metrics

import (
	"regexp"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// Shape is the metric shape a suffix pattern implies.
type Shape int

// Pattern shapes.
const (
	ShapeSingleValue Shape = iota
	ShapeRatioComponent
)

// String returns the shape name.
func (s Shape) String() string {
	if s == ShapeRatioComponent {
		return "ratio_component"
	}
	return "single_value"
}

// Pattern is one row of the suffix pattern registry.
type Pattern struct {
	// Expr is the case-insensitive suffix regex matched against a column name
	Expr        string
	Shape       Shape
	Baseline    float64
	Description string

	re *regexp.Regexp
}

// Match reports whether column ends with the pattern's suffix.
func (p Pattern) Match(column string) bool {
	return p.re.MatchString(column)
}

func pattern(expr string, shape Shape, baseline float64, description string) Pattern {
	return Pattern{
		Expr:        expr,
		Shape:       shape,
		Baseline:    baseline,
		Description: description,
		re:          regexp.MustCompile(`(?i)` + expr),
	}
}

// Patterns is the ordered suffix registry. The first match wins per column.
var Patterns = []Pattern{
	pattern(`_value$`, ShapeSingleValue, 0.90, "direct value metric"),
	pattern(`_count$`, ShapeSingleValue, 0.80, "count metric"),
	pattern(`_total$`, ShapeSingleValue, 0.80, "total metric"),
	pattern(`_sum$`, ShapeSingleValue, 0.70, "sum metric"),
	pattern(`_amount$`, ShapeSingleValue, 0.70, "amount metric"),
	pattern(`_avg$`, ShapeSingleValue, 0.60, "average metric"),
	pattern(`_mean$`, ShapeSingleValue, 0.60, "mean metric"),
	pattern(`_numerator$`, ShapeRatioComponent, 0.90, "ratio numerator"),
	pattern(`_denominator$`, ShapeRatioComponent, 0.90, "ratio denominator"),
	pattern(`_rate$`, ShapeRatioComponent, 0.70, "rate metric"),
	pattern(`_ratio$`, ShapeRatioComponent, 0.70, "ratio metric"),
	pattern(`_percentage$`, ShapeRatioComponent, 0.60, "percentage metric"),
	pattern(`_pct$`, ShapeRatioComponent, 0.60, "percentage metric"),
}

// MatchPattern returns the first registry pattern matching column.
func MatchPattern(column string) (Pattern, bool) {
	for _, p := range Patterns {
		if p.Match(column) {
			return p, true
		}
	}
	return Pattern{}, false
}

// AggregateBaselines assigns a baseline confidence to aggregated columns that
// no suffix pattern claimed.
var AggregateBaselines = map[core.AggregateFunc]float64{
	core.AggCount:   0.90,
	core.AggSum:     0.80,
	core.AggAvg:     0.70,
	core.AggAverage: 0.70,
	core.AggMax:     0.60,
	core.AggMin:     0.60,
	core.AggMedian:  0.60,
}

// Fixed baselines and thresholds.
const (
	// DefaultAggregateBaseline applies to aggregates missing from AggregateBaselines.
	DefaultAggregateBaseline = 0.50
	RatioBaseline            = 0.80
	CustomBaseline           = 0.40
	// MinConfidence is the lowest score a retained candidate may carry.
	MinConfidence = 0.30
)

// AggregateBaseline returns the baseline for an aggregate function tag.
func AggregateBaseline(fn core.AggregateFunc) float64 {
	if b, ok := AggregateBaselines[fn]; ok {
		return b
	}
	return DefaultAggregateBaseline
}

// BusinessKeywords mark a derived name as business-relevant. Order matters:
// only the first match is reported.
var BusinessKeywords = []string{
	"revenue", "sales", "income", "profit", "cost", "expense",
	"conversion", "retention", "churn", "acquisition",
	"engagement", "usage", "activity", "frequency",
	"growth", "performance", "efficiency", "productivity",
}

// CategoryRule maps any of its keywords to a category.
type CategoryRule struct {
	Keywords []string
	Category core.Category
}

// NameCategoryRules are matched against the derived metric name first.
var NameCategoryRules = []CategoryRule{
	{Keywords: []string{"revenue", "sales", "income", "profit"}, Category: core.CategoryFinancial},
	{Keywords: []string{"conversion", "retention", "churn"}, Category: core.CategoryMarketing},
	{Keywords: []string{"engagement", "usage", "activity"}, Category: core.CategoryEngagement},
	{Keywords: []string{"growth", "performance"}, Category: core.CategoryPerformance},
}

// UnitCategoryRules are matched against the unit name when no name rule hit.
var UnitCategoryRules = []CategoryRule{
	{Keywords: []string{"customer"}, Category: core.CategoryCustomer},
	{Keywords: []string{"order"}, Category: core.CategoryOrder},
	{Keywords: []string{"product"}, Category: core.CategoryProduct},
}

// GenericNames are derived names too vague to be useful on their own.
var GenericNames = []string{"value", "count", "total", "amount"}
