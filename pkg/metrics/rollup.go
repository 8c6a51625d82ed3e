package metrics

import (
	"regexp"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

var rollupIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\brollup\b`),
	regexp.MustCompile(`(?i)\bgroup\s+by\b`),
	regexp.MustCompile(`(?i)\bsum\s*\(`),
	regexp.MustCompile(`(?i)\bcount\s*\(`),
	regexp.MustCompile(`(?i)\bavg\s*\(`),
	regexp.MustCompile(`(?i)\bmax\s*\(`),
	regexp.MustCompile(`(?i)\bmin\s*\(`),
	regexp.MustCompile(`(?i)_rollup`),
	regexp.MustCompile(`(?i)_agg`),
	regexp.MustCompile(`(?i)_summary`),
}

// IsRollup reports whether a query looks like an aggregation model: its text
// carries a grouping or aggregate marker, a column is aggregated, or a column
// name matches a metric suffix pattern.
func IsRollup(rawText string, columns []core.ColumnFact) bool {
	for _, re := range rollupIndicators {
		if re.MatchString(rawText) {
			return true
		}
	}
	for _, c := range columns {
		if c.IsAggregated {
			return true
		}
	}
	for _, c := range columns {
		if _, ok := MatchPattern(c.Name); ok {
			return true
		}
	}
	return false
}
