package metrics

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

var (
	conditionalExpr = regexp.MustCompile(`(?i)\bcase\b|\biff?\s*\(`)
	scalarFuncCall  = regexp.MustCompile(`(?i)\b(round|ceil|floor|abs|coalesce|least|greatest)\s*\(`)
)

// Context is everything generation and scoring know about one model.
type Context struct {
	UnitName         string
	SourcePath       string
	Columns          []core.ColumnFact
	IsRollup         bool
	ReferencedTables []string
	RawText          string

	// ParseErrors and Attempt describe how Columns were obtained
	ParseErrors []string
	Attempt     core.ParseAttempt
	// Notes are caller diagnostics placed ahead of the generated notes
	Notes []string
}

// NewContext builds a Context from a parse result. An empty unitName falls
// back to the parse result's own name.
func NewContext(unitName string, r *core.ParseResult) Context {
	if unitName == "" {
		unitName = r.UnitName
	}
	return Context{
		UnitName:         unitName,
		SourcePath:       r.SourcePath,
		Columns:          r.Columns,
		IsRollup:         r.IsRollupUnit,
		ReferencedTables: r.ReferencedTables,
		RawText:          r.RawText,
		ParseErrors:      r.ParseErrors,
		Attempt:          r.Attempt,
	}
}

// Generate proposes candidates with baseline confidences, single values
// first, then ratios, then custom expressions. A non-rollup context yields
// no candidates.
func Generate(ctx Context) []core.MetricCandidate {
	out := []core.MetricCandidate{}
	if !ctx.IsRollup {
		return out
	}
	out = append(out, singleValueCandidates(ctx)...)
	out = append(out, ratioCandidates(ctx)...)
	out = append(out, customCandidates(ctx)...)
	return out
}

func singleValueCandidates(ctx Context) []core.MetricCandidate {
	var out []core.MetricCandidate
	emitted := make(map[string]bool)

	for _, col := range ctx.Columns {
		if p, ok := MatchPattern(col.Name); ok && p.Shape == ShapeSingleValue {
			c := newCandidate(core.KindSingleValue, col.Name, ctx.UnitName, p.Baseline)
			c.ValueColumn = col.Name
			c.Rationale = fmt.Sprintf("%s matches %s", col.Name, p.Description)
			emitted[c.DerivedName] = true
			out = append(out, c)
		}

		if !col.IsAggregated || emitted[DerivedName(col.Name)] {
			continue
		}
		c := newCandidate(core.KindSingleValue, col.Name, ctx.UnitName, AggregateBaseline(col.AggregateFunction))
		c.ValueColumn = col.Name
		c.Rationale = fmt.Sprintf("%s is aggregated (%s)", col.Name, aggregateLabel(col.AggregateFunction))
		emitted[c.DerivedName] = true
		out = append(out, c)
	}
	return out
}

type ratioGroup struct {
	base        string
	numerator   string
	denominator string
}

func ratioCandidates(ctx Context) []core.MetricCandidate {
	var groups []*ratioGroup
	byBase := make(map[string]*ratioGroup)

	for _, col := range ctx.Columns {
		base := BaseName(col.Name)
		g, ok := byBase[base]
		if !ok {
			g = &ratioGroup{base: base}
			byBase[base] = g
			groups = append(groups, g)
		}
		switch {
		case numerator.MatchString(col.Name):
			g.numerator = col.Name
		case denominator.MatchString(col.Name):
			g.denominator = col.Name
		}
	}

	var out []core.MetricCandidate
	for _, g := range groups {
		if g.numerator == "" || g.denominator == "" {
			continue
		}
		c := newCandidate(core.KindRatio, g.base, ctx.UnitName, RatioBaseline)
		c.NumeratorColumn = g.numerator
		c.DenominatorColumn = g.denominator
		c.Rationale = fmt.Sprintf("ratio of %s / %s", g.numerator, g.denominator)
		out = append(out, c)
	}
	return out
}

func customCandidates(ctx Context) []core.MetricCandidate {
	var out []core.MetricCandidate
	for _, col := range ctx.Columns {
		if !IsCustomExpression(col.SourceExpression) {
			continue
		}
		c := newCandidate(core.KindCustomExpression, col.Name, ctx.UnitName, CustomBaseline)
		c.RawExpression = col.SourceExpression
		c.Rationale = "custom expression: " + col.SourceExpression
		out = append(out, c)
	}
	return out
}

func newCandidate(kind core.MetricKind, name, unitName string, baseline float64) core.MetricCandidate {
	derived := DerivedName(name)
	return core.MetricCandidate{
		Kind:             kind,
		DerivedName:      derived,
		DerivedShortCode: ShortCode(name),
		Category:         InferCategory(derived, unitName),
		Confidence:       baseline,
		SourceUnit:       unitName,
	}
}

// IsCustomExpression reports whether an expression computes something beyond
// a plain column or aggregate: arithmetic, a conditional, or a scalar
// function from a fixed allow-list.
func IsCustomExpression(expr string) bool {
	return hasArithmetic(expr) ||
		conditionalExpr.MatchString(expr) ||
		scalarFuncCall.MatchString(expr)
}

// hasArithmetic looks for + - * / outside quotes and comments. A star in
// COUNT(*) or t.* is not arithmetic.
func hasArithmetic(expr string) bool {
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch c {
		case '\'', '"', '`':
			end := strings.IndexByte(expr[i+1:], c)
			if end < 0 {
				return false
			}
			i += end + 1
		case '-':
			if i+1 < len(expr) && expr[i+1] == '-' {
				nl := strings.IndexByte(expr[i:], '\n')
				if nl < 0 {
					return false
				}
				i += nl
				continue
			}
			return true
		case '/':
			if i+1 < len(expr) && expr[i+1] == '*' {
				end := strings.Index(expr[i+2:], "*/")
				if end < 0 {
					return false
				}
				i += end + 3
				continue
			}
			return true
		case '+':
			return true
		case '*':
			prev := strings.TrimRight(expr[:i], " \t\n")
			next := strings.TrimLeft(expr[i+1:], " \t\n")
			if strings.HasSuffix(prev, ".") || (strings.HasSuffix(prev, "(") && strings.HasPrefix(next, ")")) {
				continue
			}
			return true
		}
	}
	return false
}

func aggregateLabel(fn core.AggregateFunc) string {
	if fn == core.AggNone {
		return "aggregate"
	}
	return string(fn)
}
