package core

// MetricKind is the shape of a metric candidate.
type MetricKind int

// Metric kinds, in generation order.
const (
	KindSingleValue MetricKind = iota
	KindRatio
	KindCustomExpression
)

// String returns the kind name.
func (k MetricKind) String() string {
	switch k {
	case KindSingleValue:
		return "single_value"
	case KindRatio:
		return "ratio"
	case KindCustomExpression:
		return "custom_expression"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k MetricKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Category is the inferred business category of a metric.
type Category string

// Categories.
const (
	CategoryFinancial   Category = "Financial"
	CategoryMarketing   Category = "Marketing"
	CategoryEngagement  Category = "Engagement"
	CategoryPerformance Category = "Performance"
	CategoryCustomer    Category = "Customer"
	CategoryOrder       Category = "Order"
	CategoryProduct     Category = "Product"
	CategoryGeneral     Category = "General"
)

// MetricCandidate is a proposed metric derived from one or more output columns.
//
// Candidates are values: the scorer returns an adjusted copy and nothing
// mutates a candidate once it is stored in a DiscoveryResult.
type MetricCandidate struct {
	Kind             MetricKind `json:"kind"`
	DerivedName      string     `json:"derived_name"`
	DerivedShortCode string     `json:"derived_short_code"`
	Category         Category   `json:"category"`

	// ValueColumn is set for KindSingleValue
	ValueColumn string `json:"value_column,omitempty"`
	// NumeratorColumn and DenominatorColumn are set for KindRatio
	NumeratorColumn   string `json:"numerator_column,omitempty"`
	DenominatorColumn string `json:"denominator_column,omitempty"`
	// RawExpression is set for KindCustomExpression
	RawExpression string `json:"raw_expression,omitempty"`

	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
	// SourceUnit is the model the candidate was discovered in
	SourceUnit string `json:"source_unit"`
}

// Columns returns the output columns the candidate is built from.
func (c MetricCandidate) Columns() []string {
	switch c.Kind {
	case KindSingleValue:
		return []string{c.ValueColumn}
	case KindRatio:
		return []string{c.NumeratorColumn, c.DenominatorColumn}
	default:
		return nil
	}
}

// WithConfidence returns a copy of c carrying the given confidence.
func (c MetricCandidate) WithConfidence(confidence float64) MetricCandidate {
	c.Confidence = confidence
	return c
}
