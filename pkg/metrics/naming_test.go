package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

func TestDerivedName(t *testing.T) {
	tests := map[string]string{
		"total_revenue_value": "Total Revenue",
		"ORDER_COUNT":         "Order",
		"value":               "Value",
		"conversion":          "Conversion",
		"gross_margin_pct":    "Gross Margin Pct",
		"sessions_avg":        "Sessions",
		"p95latency_value":    "P95Latency",
		"top3_products_count": "Top3 Products",
	}
	for in, want := range tests {
		assert.Equal(t, want, DerivedName(in), in)
	}
}

func TestShortCode(t *testing.T) {
	tests := map[string]string{
		"total_revenue_value": "tot_rev_val",
		"Gross_Margin":        "gro_mar",
		"a__b":                "a_b",
		"conversion":          "con",
		"":                    "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ShortCode(in), in)
	}
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "conversion", BaseName("conversion_numerator"))
	assert.Equal(t, "conversion", BaseName("conversion_denominator"))
	assert.Equal(t, "order", BaseName("order_count"))
	assert.Equal(t, "margin_pct", BaseName("margin_pct"))
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		derived string
		unit    string
		want    core.Category
	}{
		{"Total Revenue", "anything", core.CategoryFinancial},
		{"Churn Rate", "customer_rollup", core.CategoryMarketing},
		{"Daily Usage", "", core.CategoryEngagement},
		{"Growth", "", core.CategoryPerformance},
		{"Visits", "customer_rollup", core.CategoryCustomer},
		{"Visits", "ORDERS_DAILY", core.CategoryOrder},
		{"Weekly Active", "product_usage", core.CategoryProduct},
		{"Visits", "daily", core.CategoryGeneral},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InferCategory(tt.derived, tt.unit), tt.derived+"/"+tt.unit)
	}
}

func TestBusinessKeyword(t *testing.T) {
	kw, ok := BusinessKeyword("Net Revenue Growth")
	assert.True(t, ok)
	assert.Equal(t, "revenue", kw, "first keyword in list order wins")

	_, ok = BusinessKeyword("Visits")
	assert.False(t, ok)
}
