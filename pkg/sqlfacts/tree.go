package sqlfacts

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// aggregateFuncs maps lower-cased function names to aggregate tags.
var aggregateFuncs = map[string]core.AggregateFunc{
	"sum":                   core.AggSum,
	"count":                 core.AggCount,
	"count_if":              core.AggCount,
	"approx_count_distinct": core.AggCount,
	"avg":                   core.AggAvg,
	"average":               core.AggAverage,
	"max":                   core.AggMax,
	"min":                   core.AggMin,
	"median":                core.AggMedian,
	"stddev":                core.AggStddev,
	"stddev_pop":            core.AggStddev,
	"stddev_samp":           core.AggStddev,
	"variance":              core.AggVariance,
	"var_pop":               core.AggVariance,
	"var_samp":              core.AggVariance,
	"array_agg":             core.AggArrayAgg,
	"string_agg":            core.AggStringAgg,
	"listagg":               core.AggStringAgg,
	"any_value":             core.AggAnyValue,
	"percentile_cont":       core.AggPercentile,
	"percentile_disc":       core.AggPercentile,
}

// walk visits msg and its descendants in pre-order. Message fields are
// followed in declaration order so traversal is deterministic. Returning
// false from visit skips the children of that message.
func walk(msg protoreflect.Message, visit func(protoreflect.ProtoMessage) bool) {
	if !msg.IsValid() {
		return
	}
	if !visit(msg.Interface()) {
		return
	}

	fields := msg.Descriptor().Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		if fd.Message() == nil || fd.IsMap() || !msg.Has(fd) {
			continue
		}
		if fd.IsList() {
			list := msg.Get(fd).List()
			for j := 0; j < list.Len(); j++ {
				walk(list.Get(j).Message(), visit)
			}
			continue
		}
		walk(msg.Get(fd).Message(), visit)
	}
}

func walkNode(node *pg_query.Node, visit func(protoreflect.ProtoMessage) bool) {
	if node == nil {
		return
	}
	walk(node.ProtoReflect(), visit)
}

// firstAggregate returns the first aggregate call under node in pre-order.
func firstAggregate(node *pg_query.Node) core.AggregateFunc {
	found := core.AggNone
	walkNode(node, func(m protoreflect.ProtoMessage) bool {
		if found != core.AggNone {
			return false
		}
		if fc, ok := m.(*pg_query.FuncCall); ok {
			if tag, ok := aggregateFuncs[funcName(fc)]; ok {
				found = tag
				return false
			}
		}
		return true
	})
	return found
}

// referencedTables returns every relation referenced under node, sorted and
// deduplicated. Targets of SELECT INTO are not references.
func referencedTables(node *pg_query.Node) []string {
	seen := make(map[string]bool)
	walkNode(node, func(m protoreflect.ProtoMessage) bool {
		switch n := m.(type) {
		case *pg_query.IntoClause:
			return false
		case *pg_query.RangeVar:
			if name := qualifiedName(n); name != "" {
				seen[name] = true
			}
		}
		return true
	})
	return sortedKeys(seen)
}

// namedSubqueries returns CTE names: the top-level WITH list in declaration
// order, followed by any nested CTEs in traversal order.
func namedSubqueries(sel *pg_query.SelectStmt, root *pg_query.Node) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	for _, cte := range sel.GetWithClause().GetCtes() {
		add(cte.GetCommonTableExpr().GetCtename())
	}
	walkNode(root, func(m protoreflect.ProtoMessage) bool {
		if cte, ok := m.(*pg_query.CommonTableExpr); ok {
			add(cte.GetCtename())
		}
		return true
	})
	return names
}

func funcName(fc *pg_query.FuncCall) string {
	parts := fc.GetFuncname()
	if len(parts) == 0 {
		return ""
	}
	return strings.ToLower(parts[len(parts)-1].GetString_().GetSval())
}

func qualifiedName(rv *pg_query.RangeVar) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{rv.GetCatalogname(), rv.GetSchemaname(), rv.GetRelname()} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// fieldNames returns the identifier parts of a column reference.
func fieldNames(ref *pg_query.ColumnRef) []string {
	names := make([]string, 0, len(ref.GetFields()))
	for _, f := range ref.GetFields() {
		if s := f.GetString_(); s != nil {
			names = append(names, s.GetSval())
		}
	}
	return names
}

func isWildcard(ref *pg_query.ColumnRef) bool {
	fields := ref.GetFields()
	return len(fields) > 0 && fields[len(fields)-1].GetAStar() != nil
}
