package sqlfacts

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

var (
	selectKeyword  = regexp.MustCompile(`(?i)\bSELECT\b`)
	distinctPrefix = regexp.MustCompile(`(?is)^DISTINCT(?:\s+ON\s*\([^)]*\))?\s+`)
	aliasSplit     = regexp.MustCompile(`(?is)^(.+)\s+AS\s+"?(\w+)"?$`)
	aggregateCall  = regexp.MustCompile(`(?i)\b(SUM|COUNT|AVG|MAX|MIN)\s*\(`)
	fromTable      = regexp.MustCompile(`(?i)\bFROM\s+([\w.]+)`)
	joinTable      = regexp.MustCompile(`(?i)\bJOIN\s+([\w.]+)`)
	withCTE        = regexp.MustCompile(`(?i)\bWITH\s+(?:RECURSIVE\s+)?(\w+)\s+AS\s*(?:(?:NOT\s+)?MATERIALIZED\s*)?\(`)
	chainedCTE     = regexp.MustCompile(`(?i)^\s*,\s*(\w+)\s+AS\s*(?:(?:NOT\s+)?MATERIALIZED\s*)?\(`)
)

// parseFallback recovers facts from text alone. The select list is the text
// between the first SELECT and the FROM that closes it.
func parseFallback(sql string) *facts {
	f := &facts{
		columns: []core.ColumnFact{},
		tables:  fallbackTables(sql),
		ctes:    fallbackCTEs(sql),
	}

	loc := selectKeyword.FindStringIndex(sql)
	if loc == nil {
		f.diagnostics = append(f.diagnostics, fallbackError("no SELECT clause found").Error())
		return f
	}

	start := loc[1]
	end := spanEnd(sql, start, fromKeyword, false)
	if end >= len(sql) || !strings.EqualFold(keywordAt(sql, end), "FROM") {
		f.diagnostics = append(f.diagnostics, fallbackError("no FROM clause found after SELECT").Error())
	}

	list := distinctPrefix.ReplaceAllString(strings.TrimSpace(sql[start:end]), "")
	index := make(map[string]int)
	for _, piece := range splitTopLevel(list) {
		piece = stripComments(piece)
		if piece == "" {
			continue
		}
		col := fallbackColumn(piece)
		if i, ok := index[col.Name]; ok {
			f.columns[i] = col
			continue
		}
		index[col.Name] = len(f.columns)
		f.columns = append(f.columns, col)
	}

	if len(f.columns) == 0 {
		f.diagnostics = append(f.diagnostics, fallbackError("no columns recovered from select list").Error())
	}
	return f
}

func fallbackColumn(piece string) core.ColumnFact {
	col := core.ColumnFact{Name: piece, SourceExpression: piece}
	if m := aliasSplit.FindStringSubmatch(piece); m != nil {
		col.SourceExpression = strings.TrimSpace(m[1])
		col.Name = m[2]
	}
	if m := aggregateCall.FindStringSubmatch(col.SourceExpression); m != nil {
		col.IsAggregated = true
		col.AggregateFunction = core.AggregateFunc(strings.ToUpper(m[1]))
	}
	return col
}

func fallbackTables(sql string) []string {
	seen := make(map[string]bool)
	for _, re := range []*regexp.Regexp{fromTable, joinTable} {
		for _, m := range re.FindAllStringSubmatch(sql, -1) {
			seen[m[1]] = true
		}
	}
	return sortedKeys(seen)
}

// fallbackCTEs finds every WITH list and follows its comma-chained entries by
// skipping each parenthesised body.
func fallbackCTEs(sql string) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	for _, m := range withCTE.FindAllStringSubmatchIndex(sql, -1) {
		add(sql[m[2]:m[3]])
		pos := m[1]
		for {
			end := spanEnd(sql, pos, nil, false)
			if end >= len(sql) || sql[end] != ')' {
				break
			}
			next := chainedCTE.FindStringSubmatchIndex(sql[end+1:])
			if next == nil {
				break
			}
			add(sql[end+1+next[2] : end+1+next[3]])
			pos = end + 1 + next[1]
		}
	}
	return names
}

func keywordAt(sql string, i int) string {
	j := i
	for j < len(sql) && isIdentChar(sql[j]) {
		j++
	}
	return sql[i:j]
}
