// Package sqlfacts extracts output-column, table, and CTE facts from model SQL.
//
// The primary path builds a PostgreSQL syntax tree with pg_query and walks it.
// When the tree cannot be built, or holds no SELECT, a regex-based fallback
// recovers what it can from the text. Neither path returns an error: problems
// are recorded as diagnostics in core.ParseResult.ParseErrors, and the path
// taken is recorded in core.ParseResult.Attempt.
package sqlfacts

import (
	"os"
	"regexp"
	"sort"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/leapstack-labs/leapmetrics/pkg/metrics"
	"github.com/leapstack-labs/leapmetrics/pkg/normalize"
)

// facts is the output of one extraction path.
type facts struct {
	columns     []core.ColumnFact
	tables      []string
	ctes        []string
	diagnostics []string
}

// Parse extracts facts from already-normalized SQL.
func Parse(sql string) *core.ParseResult {
	result := &core.ParseResult{
		UnitName:         core.StemName(""),
		Columns:          []core.ColumnFact{},
		ReferencedTables: []string{},
		NamedSubqueries:  []string{},
		ParseErrors:      []string{},
		RawText:          sql,
	}

	f, err := parseStructural(sql)
	if err != nil {
		result.ParseErrors = append(result.ParseErrors, err.Error())
		f = parseFallback(sql)
		result.Attempt = core.AttemptFallback
	} else {
		result.Attempt = core.AttemptStructural
	}

	if f.columns != nil {
		result.Columns = f.columns
	}
	if f.tables != nil {
		result.ReferencedTables = f.tables
	}
	if f.ctes != nil {
		result.NamedSubqueries = f.ctes
	}
	result.ParseErrors = append(result.ParseErrors, f.diagnostics...)
	result.IsRollupUnit = metrics.IsRollup(sql, result.Columns)

	return result
}

// ParseSQL normalizes templated model SQL, parses it, and classifies it.
// Rollup classification looks at the raw text.
func ParseSQL(raw, sourcePath string) *core.ParseResult {
	result := Parse(normalize.Normalize(raw))
	result.SourcePath = sourcePath
	result.UnitName = core.StemName(sourcePath)
	result.RawText = raw
	result.IsRollupUnit = metrics.IsRollup(raw, result.Columns)
	return result
}

// ParseFile reads and parses a model file. A read failure is reported as a
// diagnostic on an otherwise empty result.
func ParseFile(path string) *core.ParseResult {
	content, err := os.ReadFile(path)
	if err != nil {
		return &core.ParseResult{
			SourcePath:       path,
			UnitName:         core.StemName(path),
			Columns:          []core.ColumnFact{},
			ReferencedTables: []string{},
			NamedSubqueries:  []string{},
			ParseErrors:      []string{(&ParseError{Stage: StageRead, Message: err.Error()}).Error()},
			Attempt:          core.AttemptNone,
		}
	}
	return ParseSQL(string(content), path)
}

func parseStructural(sql string) (*facts, error) {
	tree, err := pg_query.Parse(sql)
	if err != nil {
		return nil, structuralError(err.Error())
	}

	for _, raw := range tree.GetStmts() {
		root := queryNode(raw.GetStmt())
		if root == nil {
			continue
		}
		sel := root.GetSelectStmt()

		f := &facts{
			tables: referencedTables(root),
			ctes:   namedSubqueries(sel, root),
		}
		f.columns, f.diagnostics = selectColumns(sql, leftmostArm(sel))
		return f, nil
	}
	return nil, structuralError("no SELECT statement found")
}

// queryNode returns the node holding the SELECT of a statement: the statement
// itself, or the query of CREATE VIEW / CREATE TABLE AS.
func queryNode(node *pg_query.Node) *pg_query.Node {
	switch {
	case node.GetSelectStmt() != nil:
		return node
	case node.GetViewStmt() != nil:
		return queryNode(node.GetViewStmt().GetQuery())
	case node.GetCreateTableAsStmt() != nil:
		return queryNode(node.GetCreateTableAsStmt().GetQuery())
	}
	return nil
}

// leftmostArm descends set operations; the leftmost SELECT names the columns.
func leftmostArm(sel *pg_query.SelectStmt) *pg_query.SelectStmt {
	for sel.GetLarg() != nil {
		sel = sel.GetLarg()
	}
	return sel
}

func selectColumns(sql string, sel *pg_query.SelectStmt) ([]core.ColumnFact, []string) {
	targets := sel.GetTargetList()
	columns := make([]core.ColumnFact, 0, len(targets))
	index := make(map[string]int, len(targets))
	wildcards := 0

	for _, node := range targets {
		rt := node.GetResTarget()
		if rt == nil {
			continue
		}
		if ref := rt.GetVal().GetColumnRef(); ref != nil && isWildcard(ref) {
			wildcards++
			continue
		}

		col := columnFact(sql, rt)
		// duplicate names: the later definition wins, the first position stays
		if i, ok := index[col.Name]; ok {
			columns[i] = col
			continue
		}
		index[col.Name] = len(columns)
		columns = append(columns, col)
	}

	var diagnostics []string
	switch {
	case len(targets) == 0:
		diagnostics = append(diagnostics, structuralError("select list is empty").Error())
	case wildcards == len(targets):
		diagnostics = append(diagnostics, structuralError("select list contains only wildcards").Error())
	}
	return columns, diagnostics
}

func columnFact(sql string, rt *pg_query.ResTarget) core.ColumnFact {
	val := rt.GetVal()
	expr, alias := expressionText(sql, int(rt.GetLocation()), rt.GetName())
	col := core.ColumnFact{SourceExpression: expr}

	var bare string
	if ref := val.GetColumnRef(); ref != nil {
		parts := fieldNames(ref)
		if len(parts) > 0 {
			bare = parts[len(parts)-1]
		}
		if len(parts) > 1 {
			col.QualifyingTable = strings.Join(parts[:len(parts)-1], ".")
		}
	}

	// the tree folds unquoted identifiers to lower case; names keep their
	// source spelling so both parse paths agree
	switch {
	case alias != "":
		col.Name = alias
	case rt.GetName() != "":
		col.Name = rt.GetName()
	case bare != "":
		col.Name = sourceSpelling(expr, bare)
	default:
		col.Name = col.SourceExpression
	}
	if col.SourceExpression == "" {
		col.SourceExpression = col.Name
	}

	if fn := firstAggregate(val); fn != core.AggNone {
		col.IsAggregated = true
		col.AggregateFunction = fn
	}
	return col
}

// expressionText slices the verbatim expression of a select target starting at
// its location. Comments are dropped and the trailing alias is split off and
// returned as written in the source.
func expressionText(sql string, location int, alias string) (string, string) {
	if location < 0 || location >= len(sql) {
		return "", ""
	}
	text := stripComments(sql[location:spanEnd(sql, location, clauseKeywords, true)])
	if alias == "" {
		return text, ""
	}

	re, err := regexp.Compile(`(?is)^(.*?)\s+(?:AS\s+)?"?(` + regexp.QuoteMeta(alias) + `)"?$`)
	if err != nil {
		return text, ""
	}
	if m := re.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), m[2]
	}
	return text, ""
}

// sourceSpelling returns the last dotted part of a column reference as it is
// written in expr, or bare when expr spells a different name.
func sourceSpelling(expr, bare string) string {
	name := expr
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Trim(strings.TrimSpace(name), `"`)
	if strings.EqualFold(name, bare) {
		return name
	}
	return bare
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
