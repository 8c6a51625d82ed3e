package core

// ParseAttempt records which extraction path produced a ParseResult.
type ParseAttempt int

// ParseAttempt values.
const (
	// AttemptNone means no SQL text was available to parse.
	AttemptNone ParseAttempt = iota
	// AttemptStructural means the syntax tree was built and walked.
	AttemptStructural
	// AttemptFallback means tree construction failed and regex extraction ran.
	AttemptFallback
)

// String returns the attempt name.
func (a ParseAttempt) String() string {
	switch a {
	case AttemptStructural:
		return "structural"
	case AttemptFallback:
		return "fallback"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a ParseAttempt) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// AggregateFunc tags the aggregate function found in a column expression.
type AggregateFunc string

// Aggregate function tags.
const (
	AggNone       AggregateFunc = ""
	AggSum        AggregateFunc = "SUM"
	AggCount      AggregateFunc = "COUNT"
	AggAvg        AggregateFunc = "AVG"
	AggAverage    AggregateFunc = "AVERAGE"
	AggMax        AggregateFunc = "MAX"
	AggMin        AggregateFunc = "MIN"
	AggMedian     AggregateFunc = "MEDIAN"
	AggStddev     AggregateFunc = "STDDEV"
	AggVariance   AggregateFunc = "VARIANCE"
	AggArrayAgg   AggregateFunc = "ARRAY_AGG"
	AggStringAgg  AggregateFunc = "STRING_AGG"
	AggAnyValue   AggregateFunc = "ANY_VALUE"
	AggPercentile AggregateFunc = "PERCENTILE"
)

// ColumnFact describes one selected output column.
type ColumnFact struct {
	// Name is the output alias or inferred name
	Name string `json:"name"`
	// SourceExpression is the verbatim expression text that produced the column
	SourceExpression string `json:"source_expression"`
	// QualifyingTable is set only when the expression is a bare table.column reference
	QualifyingTable string `json:"qualifying_table,omitempty"`
	// IsAggregated is true if the expression contains an aggregate function call
	IsAggregated bool `json:"is_aggregated"`
	// AggregateFunction is set only if IsAggregated
	AggregateFunction AggregateFunc `json:"aggregate_function,omitempty"`
}

// ParseResult is the output of parsing one SQL unit.
type ParseResult struct {
	SourcePath string `json:"source_path"`
	UnitName   string `json:"unit_name"`
	// Columns are in SELECT-list order
	Columns []ColumnFact `json:"columns"`
	// ReferencedTables is sorted and deduplicated
	ReferencedTables []string `json:"referenced_tables"`
	// NamedSubqueries are CTE names in declaration order
	NamedSubqueries []string `json:"named_subqueries"`
	IsRollupUnit    bool     `json:"is_rollup_unit"`
	// ParseErrors is non-empty only when structural parsing failed or was partial
	ParseErrors []string     `json:"parse_errors"`
	Attempt     ParseAttempt `json:"attempt"`
	RawText     string       `json:"-"`
}

// ColumnNames returns the column names in order.
func (r *ParseResult) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// HasErrors returns true if any parse diagnostic was recorded.
func (r *ParseResult) HasErrors() bool {
	return len(r.ParseErrors) > 0
}

// UsedFallback returns true if the regex fallback produced the columns.
func (r *ParseResult) UsedFallback() bool {
	return r.Attempt == AttemptFallback
}
