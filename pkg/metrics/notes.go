package metrics

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// Discovery note texts.
const (
	NoteNotRollup     = "model does not appear to be a rollup/aggregation model"
	NoteRollup        = "model identified as rollup/aggregation model"
	NoteFallback      = "fallback parser used"
	NoteNoCandidates  = "no metrics found meeting confidence threshold"
	NoteDeclaredOnly  = "analysis used declared columns only"
	NoteAnalysisError = "analysis failed"
)

// Notes explains a discovery outcome in order: caller notes, parse
// diagnostics, the parse path, rollup status, candidate counts, and the
// number of columns analyzed.
func Notes(ctx Context, candidates []core.MetricCandidate) []string {
	notes := append([]string{}, ctx.Notes...)
	for _, e := range ctx.ParseErrors {
		notes = append(notes, "parse: "+e)
	}
	if ctx.Attempt == core.AttemptFallback {
		notes = append(notes, NoteFallback)
	}
	if !ctx.IsRollup {
		return append(notes, NoteNotRollup)
	}

	notes = append(notes, NoteRollup)
	if len(candidates) == 0 {
		notes = append(notes, NoteNoCandidates)
	} else {
		notes = append(notes, fmt.Sprintf("found %d potential metrics", len(candidates)))
		for _, kind := range []core.MetricKind{core.KindSingleValue, core.KindRatio, core.KindCustomExpression} {
			if n := countKind(candidates, kind); n > 0 {
				notes = append(notes, fmt.Sprintf("%s candidates: %d", kind, n))
			}
		}
	}
	if len(ctx.Columns) > 0 {
		notes = append(notes, fmt.Sprintf("analyzed %d columns", len(ctx.Columns)))
	}
	return notes
}

// ColumnNotes annotates each column with its pattern match, aggregation, and
// business keyword. Columns with nothing to say are omitted.
func ColumnNotes(columns []core.ColumnFact) map[string]string {
	out := make(map[string]string)
	for _, col := range columns {
		var parts []string
		if p, ok := MatchPattern(col.Name); ok {
			parts = append(parts, "matches "+p.Description)
		}
		if col.IsAggregated {
			parts = append(parts, fmt.Sprintf("aggregated (%s)", aggregateLabel(col.AggregateFunction)))
		}
		if kw, ok := BusinessKeyword(col.Name); ok {
			parts = append(parts, "business domain: "+kw)
		}
		if len(parts) > 0 {
			out[col.Name] = strings.Join(parts, "; ")
		}
	}
	return out
}

func countKind(candidates []core.MetricCandidate, kind core.MetricKind) int {
	n := 0
	for _, c := range candidates {
		if c.Kind == kind {
			n++
		}
	}
	return n
}
