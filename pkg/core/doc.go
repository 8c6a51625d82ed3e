// Package core defines the shared language of the leapmetrics system.
//
// This package contains:
//   - Model identity (Unit) handed in by project model providers
//   - Structural parse facts (ColumnFact, ParseResult, ParseAttempt)
//   - Metric proposals (MetricCandidate, MetricKind, Category)
//   - Discovery output (DiscoveryResult)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
