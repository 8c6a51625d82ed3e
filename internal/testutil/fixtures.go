package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Model SQL shared across package tests.
const (
	// CustomerRollupSQL aggregates orders per customer.
	CustomerRollupSQL = `SELECT customer_id, SUM(revenue) AS total_revenue_value, COUNT(*) AS order_count FROM orders GROUP BY customer_id`

	// ConversionSQL exposes a numerator/denominator pair.
	ConversionSQL = `SELECT
    campaign_id,
    SUM(converted) AS conversion_numerator,
    COUNT(*) AS conversion_denominator
FROM {{ ref('stg_sessions') }}
GROUP BY campaign_id`

	// RawCustomersSQL is a row-level passthrough with nothing to aggregate.
	RawCustomersSQL = `SELECT customer_id, name, email FROM raw_customers`

	// MalformedSQL fails to parse but keeps a SELECT ... FROM shape.
	MalformedSQL = `SELECT customer_id, SUM(amount) AS total_amount FROM orders GROUP BY`
)

// WriteModel writes a model file under dir, creating parent directories, and
// returns its path.
func WriteModel(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create model dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return path
}
